package avatar

// Resize scales the mask to w×h with bilinear interpolation.
func (m *Mask) Resize(w, h int) *Mask {
	if m.W == w && m.H == h {
		return m
	}
	out := &Mask{W: w, H: h, A: make([]float32, w*h)}
	sx := float32(m.W) / float32(w)
	sy := float32(m.H) / float32(h)
	for y := 0; y < h; y++ {
		fy := (float32(y)+0.5)*sy - 0.5
		y0, wy := floorWeight(fy, m.H)
		for x := 0; x < w; x++ {
			fx := (float32(x)+0.5)*sx - 0.5
			x0, wx := floorWeight(fx, m.W)
			x1, y1 := min(x0+1, m.W-1), min(y0+1, m.H-1)
			top := m.A[y0*m.W+x0]*(1-wx) + m.A[y0*m.W+x1]*wx
			bot := m.A[y1*m.W+x0]*(1-wx) + m.A[y1*m.W+x1]*wx
			out.A[y*w+x] = top*(1-wy) + bot*wy
		}
	}
	return out
}

// blur3 applies a light 3×3 feather so composited edges stay smooth.
func blur3(m *Mask) *Mask {
	out := &Mask{W: m.W, H: m.H, A: make([]float32, len(m.A))}
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			var sum, n float32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					yy, xx := y+dy, x+dx
					if yy < 0 || yy >= m.H || xx < 0 || xx >= m.W {
						continue
					}
					sum += m.A[yy*m.W+xx]
					n++
				}
			}
			out.A[y*m.W+x] = sum / n
		}
	}
	return out
}

// resizeRGB scales a packed RGB24 frame to dw×dh with bilinear sampling.
func resizeRGB(src []byte, sw, sh, dw, dh int) []byte {
	out := make([]byte, dw*dh*3)
	sx := float32(sw) / float32(dw)
	sy := float32(sh) / float32(dh)
	for y := 0; y < dh; y++ {
		fy := (float32(y)+0.5)*sy - 0.5
		y0, wy := floorWeight(fy, sh)
		y1 := min(y0+1, sh-1)
		for x := 0; x < dw; x++ {
			fx := (float32(x)+0.5)*sx - 0.5
			x0, wx := floorWeight(fx, sw)
			x1 := min(x0+1, sw-1)
			for c := 0; c < 3; c++ {
				p00 := float32(src[(y0*sw+x0)*3+c])
				p01 := float32(src[(y0*sw+x1)*3+c])
				p10 := float32(src[(y1*sw+x0)*3+c])
				p11 := float32(src[(y1*sw+x1)*3+c])
				v := (p00*(1-wx)+p01*wx)*(1-wy) + (p10*(1-wx)+p11*wx)*wy
				out[(y*dw+x)*3+c] = byte(v + 0.5)
			}
		}
	}
	return out
}

// floorWeight clamps a sample coordinate and splits it into an integer
// base and fractional weight.
func floorWeight(f float32, limit int) (int, float32) {
	if f < 0 {
		return 0, 0
	}
	i := int(f)
	if i >= limit-1 {
		return limit - 1, 0
	}
	return i, f - float32(i)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
