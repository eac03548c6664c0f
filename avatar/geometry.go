package avatar

import "script2video/types"

// EstimateWidth derives the on-canvas avatar width for a preset height
// from the standard portrait aspect ratio (572×618). Used before the
// lip-sync output exists, e.g. to reserve subtitle space.
func EstimateWidth(height int) int {
	return widthFor(height, 572, 618)
}

func widthFor(height, srcW, srcH int) int {
	w := height * srcW / srcH
	if w < 80 {
		w = 80
	}
	return w
}

// Geometry computes the avatar rectangle on the canvas for a position and
// size preset, given the lip-sync frame dimensions. Width preserves the
// source aspect ratio; the rectangle is clamped inside canvas bounds, so
// for a fixed preset and canvas the top-left corner is deterministic.
func Geometry(pos types.AvatarPosition, size types.AvatarSize, canvasW, canvasH, srcW, srcH int) (x, y, w, h int) {
	h = types.AvatarHeight(size)
	w = widthFor(h, srcW, srcH)

	x, y = canvasW-w, canvasH-h
	switch pos {
	case types.AvatarBottomLeft:
		x = 0
	case types.AvatarTopRight:
		y = 0
	case types.AvatarTopLeft:
		x, y = 0, 0
	case types.AvatarBottomRight:
		// default placement
	}

	x = clampInt(x, 0, canvasW-w)
	y = clampInt(y, 0, canvasH-h)
	return x, y, w, h
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
