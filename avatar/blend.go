package avatar

import "math"

// FrameIndex maps an output frame index to the lip-sync frame covering the
// same moment when the two streams run at different rates: the time ratio
// rounded to the nearest source frame, clamped to the last one.
func FrameIndex(i int, srcFPS, dstFPS float64, frameCount int) int {
	if frameCount <= 0 {
		return 0
	}
	idx := int(math.Round(float64(i) * srcFPS / dstFPS))
	if idx >= frameCount {
		idx = frameCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// BlendRect alpha-blends the fg RGB24 frame into bg at (x, y):
// out = fg*alpha + bg*(1-alpha), computed in floating point and rounded
// back to 8-bit. The mask must match fg's dimensions; the rectangle is
// clipped against the bg bounds.
func BlendRect(bg []byte, bgW, bgH int, fg []byte, fgW, fgH int, m *Mask, x, y int) {
	for fy := 0; fy < fgH; fy++ {
		by := y + fy
		if by < 0 || by >= bgH {
			continue
		}
		for fx := 0; fx < fgW; fx++ {
			bx := x + fx
			if bx < 0 || bx >= bgW {
				continue
			}
			a := m.A[fy*fgW+fx]
			fi := (fy*fgW + fx) * 3
			bi := (by*bgW + bx) * 3
			for c := 0; c < 3; c++ {
				v := float32(fg[fi+c])*a + float32(bg[bi+c])*(1-a)
				bg[bi+c] = byte(v + 0.5)
			}
		}
	}
}
