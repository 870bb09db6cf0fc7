package utils

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// Overlay weights used by Overlay: out = imageWeight*base + heatWeight*jet.
const (
	imageWeight = 0.6
	heatWeight  = 0.4
)

type jetStop struct {
	at  float64
	col colorful.Color
}

// Dark blue through cyan and yellow to dark red.
var jetStops = []jetStop{
	{0, colorful.Color{R: 0, G: 0, B: 0.5}},
	{0.125, colorful.Color{R: 0, G: 0, B: 1}},
	{0.375, colorful.Color{R: 0, G: 1, B: 1}},
	{0.625, colorful.Color{R: 1, G: 1, B: 0}},
	{0.875, colorful.Color{R: 1, G: 0, B: 0}},
	{1, colorful.Color{R: 0.5, G: 0, B: 0}},
}

// Jet maps v in [0, 1] to the jet colour map. Values outside the range
// are clamped and NaN maps to the lowest colour.
func Jet(v float64) colorful.Color {
	if math.IsNaN(v) || v <= 0 {
		return jetStops[0].col
	}
	if v >= 1 {
		return jetStops[len(jetStops)-1].col
	}
	for i := 1; i < len(jetStops); i++ {
		if v <= jetStops[i].at {
			lo, hi := jetStops[i-1], jetStops[i]
			return lo.col.BlendRgb(hi.col, (v-lo.at)/(hi.at-lo.at))
		}
	}
	return jetStops[len(jetStops)-1].col
}

// ColorizeHeatmap renders heat with the jet colour map.
func ColorizeHeatmap(heat *mat.Dense) *image.RGBA {
	h, w := heat.Dims()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			r, g, b := Jet(heat.At(y, x)).Clamped().RGB255()
			out.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return out
}

// Overlay blends the jet rendering of heat over base. heat must have the
// same size as base.
func Overlay(base image.Image, heat *mat.Dense) (*image.RGBA, error) {
	b := base.Bounds()
	h, w := heat.Dims()
	if b.Dx() != w || b.Dy() != h {
		return nil, fmt.Errorf("heatmap is %dx%d, image is %dx%d", w, h, b.Dx(), b.Dy())
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			src, _ := colorful.MakeColor(base.At(b.Min.X+x, b.Min.Y+y))
			hc := Jet(heat.At(y, x))
			out.SetRGBA(x, y, color.RGBA{
				blend(src.R, hc.R),
				blend(src.G, hc.G),
				blend(src.B, hc.B),
				255,
			})
		}
	}
	return out, nil
}

func blend(a, b float64) uint8 {
	return uint8(max(0, min(255, math.Round((imageWeight*a+heatWeight*b)*255))))
}
