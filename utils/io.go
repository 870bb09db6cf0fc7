package utils

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/setanarut/sensimap"
)

// ImageNet channel statistics used to normalize model inputs.
var (
	Mean = [3]float64{0.485, 0.456, 0.406}
	Std  = [3]float64{0.229, 0.224, 0.225}
)

func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// ImageToTensor converts img to a normalized 3-channel tensor:
// (v/255 - Mean[c]) / Std[c].
func ImageToTensor(img image.Image) *sensimap.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	t := sensimap.NewImage(3, h, w)
	for y := range h {
		for x := range w {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			for c, v := range [3]uint32{r >> 8, g >> 8, bl >> 8} {
				t.Set(c, x, y, (float64(v)/255.0-Mean[c])/Std[c])
			}
		}
	}
	return t
}

// TensorToImage reverses ImageToTensor, clipping to [0, 255]. Tensors with
// fewer than three channels repeat their last channel.
func TensorToImage(t *sensimap.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, t.W, t.H))
	for y := range t.H {
		for x := range t.W {
			var px [3]uint8
			for c := range 3 {
				v := t.At(min(c, t.C-1), x, y)
				px[c] = uint8(max(0, min(255, (v*Std[c]+Mean[c])*255)))
			}
			out.SetRGBA(x, y, color.RGBA{px[0], px[1], px[2], 255})
		}
	}
	return out
}
