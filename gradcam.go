package sensimap

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ModelKind tags a model architecture for target layer lookup.
type ModelKind string

const (
	KindConvNeXt     ModelKind = "convnext"
	KindEfficientNet ModelKind = "efficientnet"
	KindResNet       ModelKind = "resnet"
	KindViT          ModelKind = "vit"
	KindSwin         ModelKind = "swin"
	KindRegNet       ModelKind = "regnet"
	KindMobileNetV3  ModelKind = "mobilenetv3"
	KindDenseNet     ModelKind = "densenet"
	KindPooledLinear ModelKind = "pooled-linear"
)

// TargetLayers maps a model kind to the layer Grad-CAM reads by default.
// Layer paths are opaque to this package and only interpreted by the model.
var TargetLayers = map[ModelKind]string{
	KindConvNeXt:     "features.-1",
	KindEfficientNet: "features.-1",
	KindResNet:       "layer4.-1",
	KindViT:          "encoder.layers.-1",
	KindSwin:         "features.-1.-1.mlp.0",
	KindRegNet:       "trunk_output",
	KindMobileNetV3:  "features.-1",
	KindDenseNet:     "features.-1",
	KindPooledLinear: "features",
}

// TargetLayer returns the default Grad-CAM layer for kind.
func TargetLayer(kind ModelKind) (string, error) {
	layer, ok := TargetLayers[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, kind)
	}
	return layer, nil
}

// GradientModel is a Scorer that can expose the activations of a named
// layer together with the gradient of the target logit with respect to
// them, one (h, w) map per channel.
type GradientModel interface {
	Scorer
	LayerGradients(img *Image, layer string, target int) (acts, grads []*mat.Dense, err error)
}

// GradCAM computes the gradient-weighted class activation map of layer for
// the target class, scaled to [0, 1] and upsampled to the image size.
func GradCAM(img *Image, target int, m GradientModel, layer string) (*mat.Dense, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	acts, grads, err := m.LayerGradients(img, layer, target)
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 || len(acts) != len(grads) {
		return nil, fmt.Errorf("%w: layer %q returned %d activation and %d gradient maps",
			ErrMalformedScores, layer, len(acts), len(grads))
	}

	r, c := acts[0].Dims()
	cam := mat.NewDense(r, c, nil)
	for k := range acts {
		if ar, ac := acts[k].Dims(); ar != r || ac != c {
			return nil, fmt.Errorf("%w: channel %d has shape %dx%d, want %dx%d", ErrMalformedScores, k, ar, ac, r, c)
		}
		gr, gc := grads[k].Dims()
		alpha := mat.Sum(grads[k]) / float64(gr*gc)
		var weighted mat.Dense
		weighted.Scale(alpha, acts[k])
		cam.Add(cam, &weighted)
	}

	cam.Apply(func(_, _ int, v float64) float64 { return max(v, 0) }, cam)
	if hi := mat.Max(cam); hi > degenerateRange {
		cam.Apply(func(_, _ int, v float64) float64 { return v / hi }, cam)
	} else {
		cam.Zero()
	}
	return UpsampleBilinear(cam, img.H, img.W), nil
}
