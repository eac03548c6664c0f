package visuals

import (
	"image"
	"image/color"

	"script2video/textdraw"
)

// TextCard paints the always-available fallback visual: a dark vertical
// gradient with the scene text word-wrapped, drop-shadowed, and centered.
func TextCard(text string, w, h int) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		r := uint8(25 + 20*y/h)
		g := uint8(25 + 10*y/h)
		b := uint8(45 + 20*y/h)
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 255
		}
	}

	fontSize := float64(h) * 0.065
	face, err := textdraw.Face(fontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lines := textdraw.Wrap(face, text, int(float64(w)*0.85))
	lineHeight := int(fontSize * 1.4)
	y := (h - len(lines)*lineHeight) / 2
	for _, line := range lines {
		x := (w - textdraw.Width(face, line)) / 2
		textdraw.Draw(img, face, x+3, y+3, line, color.Black)
		textdraw.Draw(img, face, x, y, line, color.White)
		y += lineHeight
	}
	return img, nil
}
