// Package subtitle rasterizes styled caption overlays that share the frame
// with a docked presenter avatar.
package subtitle

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/google/uuid"

	"script2video/textdraw"
	"script2video/visuals"
)

// Side names which edge of the frame the avatar occupies.
type Side string

const (
	SideNone  Side = "none"
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Zone describes screen space reserved for the avatar. Width covers the
// avatar plus its margin; captions shrink their usable span by it so the
// two never collide.
type Zone struct {
	Side  Side
	Width int
}

// UsableZone returns the horizontal span captions may occupy on a canvas
// of the given width.
func UsableZone(canvasW int, z Zone) (x, w int) {
	switch {
	case z.Side == SideRight && z.Width > 0:
		return 0, canvasW - z.Width
	case z.Side == SideLeft && z.Width > 0:
		return z.Width, canvasW - z.Width
	default:
		return 0, canvasW
	}
}

// WrapWidth is the maximum rendered line width inside a zone: 85% of the
// usable span, floored at 200px so extreme reservations still fit a word.
func WrapWidth(canvasW int, z Zone) int {
	_, w := UsableZone(canvasW, z)
	max := int(float64(w) * 0.85)
	if max < 200 {
		max = 200
	}
	return max
}

// Render rasterizes the caption as a transparent canvas-wide image whose
// height matches the wrapped text block, each line stroked and centered
// within the usable zone. Returns the PNG path.
func Render(text string, canvasW, canvasH, fontSize int, zone Zone, outDir string) (string, error) {
	face, err := textdraw.Face(float64(fontSize))
	if err != nil {
		return "", err
	}
	defer face.Close()

	zoneX, zoneW := UsableZone(canvasW, zone)
	lines := textdraw.Wrap(face, text, WrapWidth(canvasW, zone))

	lineHeight := fontSize + 10
	blockH := len(lines)*lineHeight + 16
	img := image.NewNRGBA(image.Rect(0, 0, canvasW, blockH))

	stroke := fontSize / 13
	if stroke < 2 {
		stroke = 2
	}

	y := 8
	for _, line := range lines {
		tw := textdraw.Width(face, line)
		tx := zoneX + (zoneW-tw)/2
		outline := color.NRGBA{0, 0, 0, 230}
		for dx := -stroke; dx <= stroke; dx++ {
			for dy := -stroke; dy <= stroke; dy++ {
				if dx != 0 || dy != 0 {
					textdraw.Draw(img, face, tx+dx, y+dy, line, outline)
				}
			}
		}
		textdraw.Draw(img, face, tx+1, y+2, line, color.NRGBA{0, 0, 0, 130})
		textdraw.Draw(img, face, tx, y, line, color.White)
		y += lineHeight
	}

	out := filepath.Join(outDir, fmt.Sprintf("subtitle_%s.png", uuid.NewString()[:8]))
	if err := visuals.SavePNG(img, out); err != nil {
		return "", err
	}
	return out, nil
}
