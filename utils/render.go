package utils

import (
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync/atomic"

	"github.com/setanarut/sensimap/labels"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/mat"
)

const (
	titleHeight = 20
	panelGap    = 16
	panelMargin = 8
)

// saveCount counts visualizations written by Visualize since process start
// or the last ResetSaveCount.
var saveCount atomic.Int64

// SaveCount returns the number of visualizations saved by Visualize.
func SaveCount() int64 { return saveCount.Load() }

// ResetSaveCount sets the save counter back to zero.
func ResetSaveCount() { saveCount.Store(0) }

// Visualize renders base and the heat overlay side by side. The left
// panel is titled "Input" when trueLabel is labels.Unknown and
// "True: <label>" otherwise; the right panel "Predicted: <label>". When
// savePath is non-empty the figure is written as PNG and the save counter
// is incremented.
func Visualize(base image.Image, heat *mat.Dense, predicted, trueLabel, savePath string) (*image.RGBA, error) {
	overlay, err := Overlay(base, heat)
	if err != nil {
		return nil, err
	}

	left := "Input"
	if trueLabel != labels.Unknown {
		left = "True: " + trueLabel
	}
	fig := RenderPanels([]image.Image{base, overlay}, []string{left, "Predicted: " + predicted})

	if savePath != "" {
		if err := SaveImage(fig, savePath); err != nil {
			return nil, err
		}
		saveCount.Add(1)
		log.Printf("Saved visualization at %s", savePath)
	}
	return fig, nil
}

// RenderPanels places panels left to right on a white figure with a title
// above each one.
func RenderPanels(panels []image.Image, titles []string) *image.RGBA {
	w, h := panelMargin, 0
	for _, p := range panels {
		w += p.Bounds().Dx() + panelGap
		h = max(h, p.Bounds().Dy())
	}
	w += panelMargin - panelGap
	h += titleHeight + 2*panelMargin

	fig := image.NewRGBA(image.Rect(0, 0, max(w, 1), h))
	draw.Draw(fig, fig.Bounds(), image.White, image.Point{}, draw.Src)

	x := panelMargin
	for i, p := range panels {
		b := p.Bounds()
		if i < len(titles) {
			drawTitle(fig, x, b.Dx(), titles[i])
		}
		r := image.Rect(x, panelMargin+titleHeight, x+b.Dx(), panelMargin+titleHeight+b.Dy())
		draw.Draw(fig, r, p, b.Min, draw.Src)
		x += b.Dx() + panelGap
	}
	return fig
}

// drawTitle centers label over a panel of the given width.
func drawTitle(img *image.RGBA, x, width int, label string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	textWidth := d.MeasureString(label).Ceil()
	left := x + max(0, (width-textWidth)/2)
	d.Dot = fixed.Point26_6{
		X: fixed.I(left),
		Y: fixed.I(panelMargin + face.Ascent),
	}
	d.DrawString(label)
}
