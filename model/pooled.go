// Package model provides a small deterministic image classifier that can be
// explained with both Morris sensitivity analysis and Grad-CAM.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/setanarut/sensimap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FeatureLayer is the only layer PooledLinear exposes to Grad-CAM.
const FeatureLayer = "features"

var errShape = errors.New("input shape mismatch")

// PooledLinear average-pools every channel onto a Grid x Grid map, flattens
// the maps channel-major and applies one linear layer followed by softmax.
type PooledLinear struct {
	Classes  int
	Channels int
	Grid     int
	Weights  *mat.Dense // Classes x (Channels*Grid*Grid)
	Bias     []float64  // len = Classes
}

// NewRandom draws weights from N(0, 1) and zero bias.
func NewRandom(classes, channels, grid int, seed uint64) *PooledLinear {
	n := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	features := channels * grid * grid
	w := make([]float64, classes*features)
	for i := range w {
		w[i] = n.Rand()
	}
	return &PooledLinear{
		Classes:  classes,
		Channels: channels,
		Grid:     grid,
		Weights:  mat.NewDense(classes, features, w),
		Bias:     make([]float64, classes),
	}
}

func (m *PooledLinear) check(img *sensimap.Image) error {
	if img.C != m.Channels {
		return fmt.Errorf("%w: model wants %d channels, image has %d", errShape, m.Channels, img.C)
	}
	if img.H < m.Grid || img.W < m.Grid {
		return fmt.Errorf("%w: image %dx%d is smaller than the %dx%d pooling grid", errShape, img.H, img.W, m.Grid, m.Grid)
	}
	return nil
}

// pool returns one Grid x Grid map per channel. Cell bounds follow adaptive
// average pooling: start = floor(i*H/g), end = ceil((i+1)*H/g).
func (m *PooledLinear) pool(img *sensimap.Image) []*mat.Dense {
	g := m.Grid
	maps := make([]*mat.Dense, img.C)
	for c := range img.C {
		d := mat.NewDense(g, g, nil)
		for i := range g {
			y0, y1 := i*img.H/g, ((i+1)*img.H+g-1)/g
			for j := range g {
				x0, x1 := j*img.W/g, ((j+1)*img.W+g-1)/g
				sum := 0.0
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						sum += img.At(c, x, y)
					}
				}
				d.Set(i, j, sum/float64((y1-y0)*(x1-x0)))
			}
		}
		maps[c] = d
	}
	return maps
}

func (m *PooledLinear) logits(maps []*mat.Dense) []float64 {
	g := m.Grid
	feat := mat.NewVecDense(m.Channels*g*g, nil)
	for c, d := range maps {
		for i := range g {
			for j := range g {
				feat.SetVec(c*g*g+i*g+j, d.At(i, j))
			}
		}
	}
	var out mat.VecDense
	out.MulVec(m.Weights, feat)
	logits := make([]float64, m.Classes)
	for k := range logits {
		logits[k] = out.AtVec(k) + m.Bias[k]
	}
	return logits
}

// Logits returns the raw class scores for img.
func (m *PooledLinear) Logits(img *sensimap.Image) ([]float64, error) {
	if err := m.check(img); err != nil {
		return nil, err
	}
	return m.logits(m.pool(img)), nil
}

// Score implements sensimap.Scorer.
func (m *PooledLinear) Score(img *sensimap.Image) ([]float64, error) {
	return sensimap.LogitScorer{Logits: m.Logits}.Score(img)
}

// LayerGradients implements sensimap.GradientModel for FeatureLayer. The
// target logit is linear in the pooled maps, so each gradient map is the
// matching slice of the target weight row.
func (m *PooledLinear) LayerGradients(img *sensimap.Image, layer string, target int) ([]*mat.Dense, []*mat.Dense, error) {
	if layer != FeatureLayer {
		return nil, nil, fmt.Errorf("%w: unknown layer %q", sensimap.ErrUnsupportedModel, layer)
	}
	if target < 0 || target >= m.Classes {
		return nil, nil, fmt.Errorf("%w: class %d out of range for %d classes", sensimap.ErrMalformedScores, target, m.Classes)
	}
	if err := m.check(img); err != nil {
		return nil, nil, err
	}
	g := m.Grid
	acts := m.pool(img)
	grads := make([]*mat.Dense, m.Channels)
	for c := range grads {
		row := m.Weights.RawRowView(target)[c*g*g : (c+1)*g*g]
		grads[c] = mat.NewDense(g, g, append([]float64(nil), row...))
	}
	return acts, grads, nil
}

type pooledLinearJSON struct {
	Classes  int       `json:"classes"`
	Channels int       `json:"channels"`
	Grid     int       `json:"grid"`
	Weights  []float64 `json:"weights"`
	Bias     []float64 `json:"bias"`
}

// Save writes the model as JSON.
func (m *PooledLinear) Save(path string) error {
	r, c := m.Weights.Dims()
	w := make([]float64, 0, r*c)
	for i := range r {
		w = append(w, m.Weights.RawRowView(i)...)
	}
	data, err := json.MarshalIndent(pooledLinearJSON{
		Classes:  m.Classes,
		Channels: m.Channels,
		Grid:     m.Grid,
		Weights:  w,
		Bias:     m.Bias,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a model written by Save.
func Load(path string) (*PooledLinear, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("model file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var raw pooledLinearJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if raw.Classes <= 0 || raw.Channels <= 0 || raw.Grid <= 0 {
		return nil, fmt.Errorf("invalid model dimensions: classes=%d channels=%d grid=%d", raw.Classes, raw.Channels, raw.Grid)
	}
	features := raw.Channels * raw.Grid * raw.Grid
	if len(raw.Weights) != raw.Classes*features {
		return nil, fmt.Errorf("weights have %d values, want %d", len(raw.Weights), raw.Classes*features)
	}
	if len(raw.Bias) != raw.Classes {
		return nil, fmt.Errorf("bias has %d values, want %d", len(raw.Bias), raw.Classes)
	}
	return &PooledLinear{
		Classes:  raw.Classes,
		Channels: raw.Channels,
		Grid:     raw.Grid,
		Weights:  mat.NewDense(raw.Classes, features, raw.Weights),
		Bias:     raw.Bias,
	}, nil
}
