package sensimap

import "gonum.org/v1/gonum/mat"

// UpsampleBilinear resizes src to (h, w) with bilinear interpolation using
// half-pixel centers (align_corners = false). Source coordinates that fall
// before the first sample clamp to it.
func UpsampleBilinear(src *mat.Dense, h, w int) *mat.Dense {
	inH, inW := src.Dims()
	out := mat.NewDense(h, w, nil)
	ys := sourceIndices(inH, h)
	xs := sourceIndices(inW, w)
	for y, sy := range ys {
		for x, sx := range xs {
			top := (1-sx.lambda)*src.At(sy.i0, sx.i0) + sx.lambda*src.At(sy.i0, sx.i1)
			bottom := (1-sx.lambda)*src.At(sy.i1, sx.i0) + sx.lambda*src.At(sy.i1, sx.i1)
			out.Set(y, x, (1-sy.lambda)*top+sy.lambda*bottom)
		}
	}
	return out
}

type sampleIndex struct {
	i0, i1 int
	lambda float64
}

func sourceIndices(in, out int) []sampleIndex {
	idx := make([]sampleIndex, out)
	scale := float64(in) / float64(out)
	for d := range out {
		s := scale*(float64(d)+0.5) - 0.5
		if s < 0 {
			s = 0
		}
		i0 := int(s)
		if i0 > in-1 {
			i0 = in - 1
		}
		i1 := i0
		if i0 < in-1 {
			i1 = i0 + 1
		}
		idx[d] = sampleIndex{i0: i0, i1: i1, lambda: s - float64(i0)}
	}
	return idx
}
