package sensimap

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// degenerateRange is the smallest sensitivity spread that is still
// normalized; anything narrower yields an all-zero heatmap.
const degenerateRange = 1e-8

// Options configures Heatmap.
type Options struct {
	// Side of the square perturbation patch in pixels.
	// Trailing rows and columns that do not fill a whole patch are ignored.
	PatchSize int
	// Perturbations averaged per patch. With a deterministic scorer every
	// sample is identical, so values above 1 only matter for noisy models.
	NumSamples int
	// Additive perturbation applied to every pixel of the patch, in all
	// channels. Also the finite-difference denominator.
	Delta float64
	// Patches scored concurrently. 0 or 1 runs sequentially in row-major
	// order; a negative value uses runtime.NumCPU(). The scorer must be
	// safe for concurrent use when more than one worker runs.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		PatchSize:  16,
		NumSamples: 10,
		Delta:      0.05,
		Workers:    1,
	}
}

// OptionsFromSize picks a patch size that keeps the grid at roughly 14x14
// patches so the forward pass count stays bounded for large inputs.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	side := min(size.X, size.Y)
	opt.PatchSize = max(opt.PatchSize, side/14)
	if opt.PatchSize > side {
		opt.PatchSize = side
	}
	return opt
}

// Validate reports whether opt can tile an image of h x w pixels.
func (opt Options) Validate(h, w int) error {
	switch {
	case opt.PatchSize <= 0:
		return fmt.Errorf("%w: patch size must be positive, got %d", ErrInvalidConfiguration, opt.PatchSize)
	case opt.NumSamples <= 0:
		return fmt.Errorf("%w: sample count must be positive, got %d", ErrInvalidConfiguration, opt.NumSamples)
	case opt.Delta == 0 || math.IsNaN(opt.Delta) || math.IsInf(opt.Delta, 0):
		return fmt.Errorf("%w: delta must be finite and non-zero, got %v", ErrInvalidConfiguration, opt.Delta)
	case h < opt.PatchSize || w < opt.PatchSize:
		return fmt.Errorf("%w: patch size %d exceeds image %dx%d", ErrInvalidConfiguration, opt.PatchSize, h, w)
	}
	return nil
}

// Heatmap runs Morris sensitivity analysis for the target class and returns
// an (H, W) map with values in [0, 1].
//
// Each patch is shifted by opt.Delta in a fresh copy of img and scored
// opt.NumSamples times; the mean elementary effect (p - p0) / Delta is
// taken in absolute value, min-max normalized over the grid and upsampled
// bilinearly. img is never modified. Scorer errors are returned as is.
func Heatmap(img *Image, target int, s Scorer, opt Options) (*mat.Dense, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	if err := opt.Validate(img.H, img.W); err != nil {
		return nil, err
	}

	p0, err := classProb(s, img, target)
	if err != nil {
		return nil, err
	}

	grid, err := patchSensitivity(img, target, s, opt, p0)
	if err != nil {
		return nil, err
	}
	normalizeAbs(grid)
	return UpsampleBilinear(grid, img.H, img.W), nil
}

// patchSensitivity fills one cell per patch with its mean elementary effect.
func patchSensitivity(img *Image, target int, s Scorer, opt Options, p0 float64) (*mat.Dense, error) {
	rows, cols := img.H/opt.PatchSize, img.W/opt.PatchSize
	grid := mat.NewDense(rows, cols, nil)

	workers := opt.Workers
	if workers < 0 {
		workers = runtime.NumCPU()
	}
	if workers <= 1 {
		for k := range rows * cols {
			v, err := patchEffect(img, target, s, opt, p0, k/cols, k%cols)
			if err != nil {
				return nil, err
			}
			grid.Set(k/cols, k%cols, v)
		}
		return grid, nil
	}

	n := rows * cols
	workers = min(workers, n)
	chunk := (n + workers - 1) / workers
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for wi := range workers {
		start := wi * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(wi, start, end int) {
			defer wg.Done()
			for k := start; k < end; k++ {
				v, err := patchEffect(img, target, s, opt, p0, k/cols, k%cols)
				if err != nil {
					errs[wi] = err
					return
				}
				// Each k owns a distinct element of the backing slice.
				grid.RawMatrix().Data[k] = v
			}
		}(wi, start, end)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return grid, nil
}

func patchEffect(img *Image, target int, s Scorer, opt Options, p0 float64, i, j int) (float64, error) {
	p := opt.PatchSize
	sum := 0.0
	for range opt.NumSamples {
		perturbed := img.Clone()
		perturbed.AddRect(j*p, i*p, (j+1)*p, (i+1)*p, opt.Delta)
		prob, err := classProb(s, perturbed, target)
		if err != nil {
			return 0, err
		}
		sum += (prob - p0) / opt.Delta
	}
	return sum / float64(opt.NumSamples), nil
}

// normalizeAbs takes |v| and min-max scales m in place. A spread at or
// below degenerateRange zeroes the matrix.
func normalizeAbs(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 { return math.Abs(v) }, m)
	lo, hi := mat.Min(m), mat.Max(m)
	if hi-lo <= degenerateRange {
		m.Zero()
		return
	}
	span := hi - lo
	m.Apply(func(_, _ int, v float64) float64 { return (v - lo) / span }, m)
}
