package model

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/setanarut/sensimap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// topLeftModel responds only to the top-left pooled cell of every channel.
func topLeftModel() *PooledLinear {
	m := &PooledLinear{
		Classes:  2,
		Channels: 3,
		Grid:     2,
		Weights:  mat.NewDense(2, 12, nil),
		Bias:     []float64{0, 0},
	}
	for c := range 3 {
		m.Weights.Set(0, c*4, 2)
	}
	return m
}

func TestScore(t *testing.T) {
	m := NewRandom(5, 3, 4, 1)
	img := sensimap.RandomImage(3, 16, 16, rand.NewPCG(1, 1))

	probs, err := m.Score(img)
	require.NoError(t, err)
	require.Len(t, probs, 5)
	assert.InDelta(t, 1.0, floats.Sum(probs), 1e-12)
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
	}

	_, err = m.Score(sensimap.NewImage(1, 16, 16))
	require.ErrorIs(t, err, errShape)
	_, err = m.Score(sensimap.NewImage(3, 2, 16))
	require.ErrorIs(t, err, errShape)
}

func TestPoolUnevenCells(t *testing.T) {
	m := &PooledLinear{Classes: 1, Channels: 1, Grid: 2, Weights: mat.NewDense(1, 4, nil), Bias: []float64{0}}
	img := sensimap.NewImage(1, 3, 3)
	for i := range img.Pix {
		img.Pix[i] = float64(i)
	}
	maps := m.pool(img)
	// Adaptive pooling cells overlap on the middle row and column.
	assert.Equal(t, []float64{2, 3, 5, 6}, maps[0].RawMatrix().Data)
}

func TestLayerGradientsMatchFiniteDifference(t *testing.T) {
	m := NewRandom(4, 3, 7, 9)
	img := sensimap.RandomImage(3, 14, 14, rand.NewPCG(2, 2))
	const target, delta = 2, 1e-3

	acts, grads, err := m.LayerGradients(img, FeatureLayer, target)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	require.Len(t, grads, 3)

	base, err := m.Logits(img)
	require.NoError(t, err)
	for _, cell := range [][2]int{{0, 0}, {3, 5}, {6, 6}} {
		i, j := cell[0], cell[1]
		p := img.Clone()
		p.AddRect(j*2, i*2, (j+1)*2, (i+1)*2, delta)
		got, err := m.Logits(p)
		require.NoError(t, err)

		want := 0.0
		for c := range grads {
			want += grads[c].At(i, j) * delta
		}
		assert.InDelta(t, want, got[target]-base[target], 1e-9, "cell %v", cell)
	}
}

func TestLayerGradientsErrors(t *testing.T) {
	m := NewRandom(2, 3, 2, 1)
	img := sensimap.NewImage(3, 8, 8)

	_, _, err := m.LayerGradients(img, "layer4", 0)
	require.ErrorIs(t, err, sensimap.ErrUnsupportedModel)
	_, _, err = m.LayerGradients(img, FeatureLayer, 2)
	require.ErrorIs(t, err, sensimap.ErrMalformedScores)
	_, _, err = m.LayerGradients(sensimap.NewImage(1, 8, 8), FeatureLayer, 0)
	require.ErrorIs(t, err, errShape)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	m := NewRandom(3, 3, 2, 5)
	m.Bias = []float64{0.1, -0.2, 0.3}
	require.NoError(t, m.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Classes, got.Classes)
	assert.Equal(t, m.Grid, got.Grid)
	assert.Equal(t, m.Bias, got.Bias)
	assert.True(t, mat.Equal(m.Weights, got.Weights))
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "model.yaml"))
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(`{"classes":2,"channels":3,"grid":2,"weights":[1,2],"bias":[0,0]}`), 0o644))
	_, err = Load(short)
	require.ErrorContains(t, err, "weights have 2 values")

	zero := filepath.Join(dir, "zero.json")
	require.NoError(t, os.WriteFile(zero, []byte(`{"classes":0,"channels":3,"grid":2}`), 0o644))
	_, err = Load(zero)
	require.ErrorContains(t, err, "invalid model dimensions")
}

func TestExplanationsFindTopLeft(t *testing.T) {
	m := topLeftModel()
	img := sensimap.NewImage(3, 32, 32)

	heat, err := sensimap.Heatmap(img, 0, m, sensimap.Options{PatchSize: 16, NumSamples: 1, Delta: 0.1, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, heat.At(0, 0))
	assert.Equal(t, 0.0, heat.At(31, 31))

	img.AddRect(0, 0, 16, 16, 1)
	layer, err := sensimap.TargetLayer(sensimap.KindPooledLinear)
	require.NoError(t, err)
	cam, err := sensimap.GradCAM(img, 0, m, layer)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cam.At(0, 0))
	assert.Equal(t, 0.0, cam.At(31, 31))
}
