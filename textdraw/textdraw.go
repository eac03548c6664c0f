// Package textdraw rasterizes caption text with the bundled Go bold face.
package textdraw

import (
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	parseOnce sync.Once
	parsed    *opentype.Font
	parseErr  error
)

// Face returns a bold face at the given pixel size.
func Face(size float64) (font.Face, error) {
	parseOnce.Do(func() {
		parsed, parseErr = opentype.Parse(gobold.TTF)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Width measures the rendered width of s in pixels.
func Width(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// Wrap breaks text into lines using greedy word fill: words are appended to
// the current line while its rendered width stays within maxWidth. A single
// word wider than maxWidth gets a line of its own.
func Wrap(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	var lines []string
	var cur []string
	for _, w := range words {
		test := strings.Join(append(cur, w), " ")
		if Width(face, test) <= maxWidth {
			cur = append(cur, w)
			continue
		}
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
		}
		cur = []string{w}
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	if len(lines) == 0 {
		lines = []string{text}
	}
	return lines
}

// Draw renders s onto dst with its baseline anchored near the top of the
// line box at (x, y).
func Draw(dst *image.NRGBA, face font.Face, x, y int, s string, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}
