package sensimap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type fakeGradientModel struct {
	acts, grads []*mat.Dense
	layers      []string
}

func (f *fakeGradientModel) Score(*Image) ([]float64, error) {
	return []float64{0.2, 0.8}, nil
}

func (f *fakeGradientModel) LayerGradients(_ *Image, layer string, _ int) ([]*mat.Dense, []*mat.Dense, error) {
	f.layers = append(f.layers, layer)
	return f.acts, f.grads, nil
}

func constDense(r, c int, v float64) *mat.Dense {
	d := mat.NewDense(r, c, nil)
	d.Apply(func(_, _ int, _ float64) float64 { return v }, d)
	return d
}

func TestGradCAM(t *testing.T) {
	m := &fakeGradientModel{
		acts: []*mat.Dense{
			mat.NewDense(2, 2, []float64{2, 0, 0, 0}),
			mat.NewDense(2, 2, []float64{0, 0, 0, 3}),
		},
		grads: []*mat.Dense{
			constDense(2, 2, 0.5),
			constDense(2, 2, -1),
		},
	}

	cam, err := GradCAM(NewImage(3, 4, 4), 1, m, "block")
	require.NoError(t, err)
	assert.Equal(t, []string{"block"}, m.layers)

	r, c := cam.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 4, c)
	// Weighted sum is [[1, 0], [0, -3]]; ReLU keeps only the top-left cell.
	assert.Equal(t, 1.0, cam.At(0, 0))
	assert.Equal(t, 0.0, cam.At(3, 3))
	assert.Equal(t, 0.0, cam.At(0, 3))
	assert.InDelta(t, 0.75*0.75, cam.At(1, 1), 1e-12)
}

func TestGradCAMNegativeMapIsZero(t *testing.T) {
	m := &fakeGradientModel{
		acts:  []*mat.Dense{constDense(2, 2, 1)},
		grads: []*mat.Dense{constDense(2, 2, -2)},
	}
	cam, err := GradCAM(NewImage(3, 8, 8), 0, m, "block")
	require.NoError(t, err)
	assert.Zero(t, mat.Max(cam))
}

func TestGradCAMMalformedLayer(t *testing.T) {
	img := NewImage(3, 8, 8)

	_, err := GradCAM(img, 0, &fakeGradientModel{}, "block")
	require.ErrorIs(t, err, ErrMalformedScores)

	_, err = GradCAM(img, 0, &fakeGradientModel{
		acts:  []*mat.Dense{constDense(2, 2, 1)},
		grads: []*mat.Dense{constDense(2, 2, 1), constDense(2, 2, 1)},
	}, "block")
	require.ErrorIs(t, err, ErrMalformedScores)

	_, err = GradCAM(img, 0, &fakeGradientModel{
		acts:  []*mat.Dense{constDense(2, 2, 1), constDense(3, 2, 1)},
		grads: []*mat.Dense{constDense(2, 2, 1), constDense(3, 2, 1)},
	}, "block")
	require.ErrorIs(t, err, ErrMalformedScores)
}

func TestTargetLayer(t *testing.T) {
	layer, err := TargetLayer(KindResNet)
	require.NoError(t, err)
	assert.Equal(t, "layer4.-1", layer)

	layer, err = TargetLayer(KindSwin)
	require.NoError(t, err)
	assert.Equal(t, "features.-1.-1.mlp.0", layer)

	_, err = TargetLayer("alexnet")
	require.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestGradCAMAttribution(t *testing.T) {
	m := &fakeGradientModel{
		acts:  []*mat.Dense{constDense(2, 2, 1)},
		grads: []*mat.Dense{constDense(2, 2, 1)},
	}
	img := NewImage(3, 4, 4)

	_, err := GradCAMAttribution(KindRegNet, "")(img, 0, m)
	require.NoError(t, err)
	_, err = GradCAMAttribution(KindRegNet, "custom")(img, 0, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"trunk_output", "custom"}, m.layers)

	_, err = GradCAMAttribution("unknown", "")(img, 0, m)
	require.ErrorIs(t, err, ErrUnsupportedModel)

	plain := ScorerFunc(func(*Image) ([]float64, error) { return []float64{1}, nil })
	_, err = GradCAMAttribution(KindResNet, "")(img, 0, plain)
	require.ErrorIs(t, err, ErrUnsupportedModel)
}
