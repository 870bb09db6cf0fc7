package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotHeatmap writes heat as a gonum/plot heat map with a colour legend.
// The output format follows the file extension (png, pdf, svg, ...).
func PlotHeatmap(heat *mat.Dense, title, filename string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"

	pal := palette.Heat(12, 1)
	hm := plotter.NewHeatMap(imageGrid{heat}, pal)
	hm.Min = 0
	hm.Max = 1
	hm.Rasterized = true
	p.Add(hm)

	l := plot.NewLegend()
	thumbs := plotter.PaletteThumbnailers(pal)
	for i := len(thumbs) - 1; i >= 0; i-- {
		t := thumbs[i]
		if i != 0 && i != len(thumbs)-1 {
			l.Add("", t)
			continue
		}
		val := hm.Min
		if i == len(thumbs)-1 {
			val = hm.Max
		}
		l.Add(fmt.Sprintf("%.1f", val), t)
	}

	p.X.Padding = 0
	p.Y.Padding = 0

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	c, err := draw.NewFormattedCanvas(5*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return err
	}
	dc := draw.New(c)

	l.Top = true
	r := l.Rectangle(dc)
	legendWidth := r.Max.X - r.Min.X
	l.YOffs = -p.Title.TextStyle.FontExtents().Height

	l.Draw(dc)
	dc = draw.Crop(dc, 0, -legendWidth-vg.Millimeter, 0, 0)
	p.Draw(dc)

	w, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = c.WriteTo(w)
	return err
}

// imageGrid exposes a heatmap in image orientation: row 0 is drawn on top.
type imageGrid struct {
	m *mat.Dense
}

func (g imageGrid) Dims() (c, r int) {
	rows, cols := g.m.Dims()
	return cols, rows
}

func (g imageGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g imageGrid) X(c int) float64 { return float64(c) }
func (g imageGrid) Y(r int) float64 { return float64(r) }
