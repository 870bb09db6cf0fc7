package sensimap

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Shape of the synthetic image used by WarmUp.
const (
	WarmUpChannels = 3
	WarmUpSize     = 224
)

// AttributionFunc produces a heatmap for one image and target class.
type AttributionFunc func(img *Image, target int, s Scorer) (*mat.Dense, error)

// MorrisAttribution binds opt to Heatmap.
func MorrisAttribution(opt Options) AttributionFunc {
	return func(img *Image, target int, s Scorer) (*mat.Dense, error) {
		return Heatmap(img, target, s, opt)
	}
}

// GradCAMAttribution runs GradCAM on the default layer of kind, or on layer
// when it is non-empty. The scorer must implement GradientModel.
func GradCAMAttribution(kind ModelKind, layer string) AttributionFunc {
	return func(img *Image, target int, s Scorer) (*mat.Dense, error) {
		gm, ok := s.(GradientModel)
		if !ok {
			return nil, fmt.Errorf("%w: %T does not expose layer gradients", ErrUnsupportedModel, s)
		}
		l := layer
		if l == "" {
			var err error
			if l, err = TargetLayer(kind); err != nil {
				return nil, err
			}
		}
		return GradCAM(img, target, gm, l)
	}
}

// WarmUp classifies a random 3x224x224 image and runs fn once on it so
// lazily initialized state is ready before timing. A nil src uses the
// global source.
func WarmUp(s Scorer, fn AttributionFunc, src rand.Source) error {
	img := RandomImage(WarmUpChannels, WarmUpSize, WarmUpSize, src)
	class, _, err := Classify(s, img)
	if err != nil {
		return err
	}
	_, err = fn(img, class, s)
	return err
}

// Sample is one input of the timing harness. Label is -1 when unknown.
type Sample struct {
	Image *Image
	Label int
}

// Timing is the result of MeasureAverageTime.
type Timing struct {
	Mean  time.Duration
	Times []time.Duration
}

// MeasureAverageTime classifies every sample and times only the fn call.
// Scorers implementing CacheReleaser are asked to drop cached state after
// each item.
func MeasureAverageTime(samples []Sample, s Scorer, fn AttributionFunc) (Timing, error) {
	if len(samples) == 0 {
		return Timing{}, fmt.Errorf("%w: no samples to time", ErrInvalidConfiguration)
	}
	times := make([]time.Duration, 0, len(samples))
	secs := make([]float64, 0, len(samples))
	for i, smp := range samples {
		class, _, err := Classify(s, smp.Image)
		if err != nil {
			return Timing{}, fmt.Errorf("sample %d: %w", i, err)
		}

		start := time.Now()
		if _, err := fn(smp.Image, class, s); err != nil {
			return Timing{}, fmt.Errorf("sample %d: %w", i, err)
		}
		d := time.Since(start)

		times = append(times, d)
		secs = append(secs, d.Seconds())
		if r, ok := s.(CacheReleaser); ok {
			r.ReleaseCache()
		}
	}
	mean := time.Duration(stat.Mean(secs, nil) * float64(time.Second))
	Logf("timed %d samples, mean %v", len(times), mean)
	return Timing{Mean: mean, Times: times}, nil
}
