package visuals

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"
)

// DecodeFlatten decodes any supported image and composites transparency
// over a solid background. The final container has no alpha, so every
// still is flattened before it enters the pipeline.
func DecodeFlatten(r io.Reader, bg color.Color) (*image.NRGBA, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Over)
	return out, nil
}

// ResizeTo scales img to exactly w×h with a Catmull-Rom kernel.
func ResizeTo(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		if n, ok := img.(*image.NRGBA); ok {
			return n
		}
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, b, xdraw.Over, nil)
	return out
}

// Sharpen applies a mild unsharp enhancement. amount 1.0 is identity;
// 1.12 matches the upload path, 1.15 the generated-image path.
func Sharpen(img *image.NRGBA, amount float64) *image.NRGBA {
	if amount <= 1.0 {
		return img
	}
	k := amount - 1.0
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(out.Pix, img.Pix)

	at := func(x, y, c int) float64 {
		return float64(img.Pix[y*img.Stride+x*4+c])
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			for c := 0; c < 3; c++ {
				center := at(x, y, c)
				blur := (at(x-1, y, c) + at(x+1, y, c) + at(x, y-1, c) + at(x, y+1, c) + center) / 5.0
				v := center + k*(center-blur)*4.0
				out.Pix[y*out.Stride+x*4+c] = clamp8(v)
			}
			out.Pix[y*out.Stride+x*4+3] = img.Pix[y*img.Stride+x*4+3]
		}
	}
	return out
}

// AdjustContrast scales pixel distance from mid-gray. factor 1.0 is
// identity; 1.08 matches the generated-image path.
func AdjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	if factor == 1.0 {
		return img
	}
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(out.Pix[i+c])
			out.Pix[i+c] = clamp8((v-128)*factor + 128)
		}
	}
	return out
}

// SavePNG writes img to path.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
