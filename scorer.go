package sensimap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Scorer is the classifier under explanation. Score returns a probability
// vector with one entry per class and must not modify img.
type Scorer interface {
	Score(img *Image) ([]float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(img *Image) ([]float64, error)

func (f ScorerFunc) Score(img *Image) ([]float64, error) { return f(img) }

// LogitScorer turns a model that emits raw logits into a Scorer.
type LogitScorer struct {
	Logits func(img *Image) ([]float64, error)
}

func (s LogitScorer) Score(img *Image) ([]float64, error) {
	logits, err := s.Logits(img)
	if err != nil {
		return nil, err
	}
	return Softmax(logits), nil
}

// CacheReleaser is implemented by scorers that hold reusable buffers which
// should be dropped between images.
type CacheReleaser interface {
	ReleaseCache()
}

// Softmax returns the numerically stable softmax of logits.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	out := make([]float64, len(logits))
	hi := floats.Max(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - hi)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Classify scores img and returns the arg-max class with the full vector.
func Classify(s Scorer, img *Image) (int, []float64, error) {
	probs, err := s.Score(img)
	if err != nil {
		return 0, nil, err
	}
	if len(probs) == 0 {
		return 0, nil, fmt.Errorf("%w: empty probability vector", ErrMalformedScores)
	}
	return floats.MaxIdx(probs), probs, nil
}

// classProb scores img and picks the target entry.
func classProb(s Scorer, img *Image, target int) (float64, error) {
	probs, err := s.Score(img)
	if err != nil {
		return 0, err
	}
	if target < 0 || target >= len(probs) {
		return 0, fmt.Errorf("%w: class %d out of range for %d scores", ErrMalformedScores, target, len(probs))
	}
	return probs[target], nil
}
