package utils

import (
	"image"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/mat"
)

// Hotspot is the centre of a cluster of salient pixels.
type Hotspot struct {
	Center image.Point
	Pixels int     // salient pixels assigned to the cluster
	Heat   float64 // mean heat of those pixels
}

// Hotspots clusters the coordinates of pixels with heat >= threshold into
// at most k groups and returns them largest first.
func Hotspots(heat *mat.Dense, threshold float64, k int) ([]Hotspot, error) {
	if k <= 0 {
		return nil, nil
	}
	h, w := heat.Dims()
	var dataset clusters.Observations
	for y := range h {
		for x := range w {
			if heat.At(y, x) >= threshold {
				dataset = append(dataset, clusters.Coordinates{float64(x), float64(y)})
			}
		}
	}
	if len(dataset) == 0 {
		return nil, nil
	}

	cc, err := kmeans.New().Partition(dataset, min(k, len(dataset)))
	if err != nil {
		return nil, err
	}
	sortByPopulation(cc)

	out := make([]Hotspot, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 {
			continue
		}
		sum := 0.0
		for _, o := range c.Observations {
			p := o.Coordinates()
			sum += heat.At(int(p[1]), int(p[0]))
		}
		out = append(out, Hotspot{
			Center: image.Pt(int(c.Center[0]+0.5), int(c.Center[1]+0.5)),
			Pixels: len(c.Observations),
			Heat:   sum / float64(len(c.Observations)),
		})
	}
	slices.SortStableFunc(out, func(a, b Hotspot) int { return b.Pixels - a.Pixels })
	return out, nil
}
