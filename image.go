package sensimap

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Image is a single planar float tensor of shape (C, H, W). Batch size is
// implicitly 1.
type Image struct {
	C, H, W int
	Pix     []float64 // channel-major, len = C*H*W
}

// NewImage returns a zero image of the given shape.
func NewImage(c, h, w int) *Image {
	return &Image{C: c, H: h, W: w, Pix: make([]float64, c*h*w)}
}

// RandomImage fills a new (c, h, w) image with standard normal samples.
// A nil src uses the global source.
func RandomImage(c, h, w int, src rand.Source) *Image {
	img := NewImage(c, h, w)
	n := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i := range img.Pix {
		img.Pix[i] = n.Rand()
	}
	return img
}

func pixOffset(w, h, c, x, y int) int {
	return (c*h+y)*w + x
}

func (m *Image) At(c, x, y int) float64 {
	return m.Pix[pixOffset(m.W, m.H, c, x, y)]
}

func (m *Image) Set(c, x, y int, v float64) {
	m.Pix[pixOffset(m.W, m.H, c, x, y)] = v
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{C: m.C, H: m.H, W: m.W, Pix: make([]float64, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// AddRect adds delta to every pixel of [x0,x1) x [y0,y1) in all channels.
func (m *Image) AddRect(x0, y0, x1, y1 int, delta float64) {
	x0, x1 = clampInt(x0, 0, m.W), clampInt(x1, 0, m.W)
	y0, y1 = clampInt(y0, 0, m.H), clampInt(y1, 0, m.H)
	for c := range m.C {
		for y := y0; y < y1; y++ {
			row := pixOffset(m.W, m.H, c, 0, y)
			for x := x0; x < x1; x++ {
				m.Pix[row+x] += delta
			}
		}
	}
}

// RectMean is the mean over all channels of [x0,x1) x [y0,y1).
func (m *Image) RectMean(x0, y0, x1, y1 int) float64 {
	x0, x1 = clampInt(x0, 0, m.W), clampInt(x1, 0, m.W)
	y0, y1 = clampInt(y0, 0, m.H), clampInt(y1, 0, m.H)
	n := m.C * (x1 - x0) * (y1 - y0)
	if n <= 0 {
		return 0
	}
	sum := 0.0
	for c := range m.C {
		for y := y0; y < y1; y++ {
			row := pixOffset(m.W, m.H, c, 0, y)
			for x := x0; x < x1; x++ {
				sum += m.Pix[row+x]
			}
		}
	}
	return sum / float64(n)
}

func (m *Image) validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidConfiguration)
	}
	if m.C <= 0 || m.H <= 0 || m.W <= 0 {
		return fmt.Errorf("%w: empty image shape (%d, %d, %d)", ErrInvalidConfiguration, m.C, m.H, m.W)
	}
	if len(m.Pix) != m.C*m.H*m.W {
		return fmt.Errorf("%w: pixel buffer has %d values, shape (%d, %d, %d) needs %d",
			ErrInvalidConfiguration, len(m.Pix), m.C, m.H, m.W, m.C*m.H*m.W)
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
