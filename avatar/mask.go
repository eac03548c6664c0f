// Package avatar blends a lip-synced presenter video onto the rendered
// timeline using a per-pixel alpha mask extracted from the portrait.
package avatar

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	_ "image/png"

	"github.com/rs/zerolog"
)

// ErrNoAlpha marks a portrait without a transparency channel. Prepare the
// presenter photo with a background-removal tool and save it as PNG.
var ErrNoAlpha = errors.New("portrait has no alpha channel")

// Mask is a 2D opacity map with values in [0,1].
type Mask struct {
	W, H int
	A    []float32
}

// Opaque returns a fully-opaque mask: the whole rectangle shows, with no
// background see-through.
func Opaque(w, h int) *Mask {
	m := &Mask{W: w, H: h, A: make([]float32, w*h)}
	for i := range m.A {
		m.A[i] = 1
	}
	return m
}

// CacheKey derives the content-addressed cache key for a portrait/style
// pair: md5 of the image bytes truncated to 16 hex chars, plus the style.
func CacheKey(portraitPath, style string) (string, error) {
	data, err := os.ReadFile(portraitPath)
	if err != nil {
		return "", err
	}
	digest := fmt.Sprintf("%x", md5.Sum(data))[:16]
	return digest + "_" + style, nil
}

// ExtractAlpha pulls the portrait's native transparency channel, feathers
// it lightly for smooth compositing edges, and resizes it to w×h.
func ExtractAlpha(portraitPath string, w, h int) (*Mask, error) {
	f, err := os.Open(portraitPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode portrait: %w", err)
	}

	native, ok := alphaChannel(img)
	if !ok {
		return nil, ErrNoAlpha
	}
	return blur3(native).Resize(w, h), nil
}

// alphaChannel reads the alpha plane from image types that carry one.
func alphaChannel(img image.Image) (*Mask, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	m := &Mask{W: w, H: h, A: make([]float32, w*h)}

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				m.A[y*w+x] = float32(src.Pix[y*src.Stride+x*4+3]) / 255
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				m.A[y*w+x] = float32(src.Pix[y*src.Stride+x*4+3]) / 255
			}
		}
	case *image.NRGBA64:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				_, _, _, a := src.NRGBA64At(b.Min.X+x, b.Min.Y+y).RGBA()
				m.A[y*w+x] = float32(a) / 0xffff
			}
		}
	default:
		return nil, false
	}
	return m, true
}

const maskMagic = "A2VM"

// Build returns the blending mask for a portrait at w×h, consulting the
// disk cache first. It never fails: a missing alpha channel or unreadable
// portrait degrades to a fully-opaque mask with a warning.
func Build(portraitPath, style string, w, h int, cacheDir string, log zerolog.Logger) *Mask {
	base, err := CacheKey(portraitPath, style)
	if err != nil {
		log.Warn().Err(err).Msg("portrait unreadable, using opaque mask")
		return Opaque(w, h)
	}
	key := fmt.Sprintf("%s_%dx%d", base, w, h)

	if cached, err := loadCached(cacheDir, key, w, h); err == nil {
		return cached
	}

	m, err := ExtractAlpha(portraitPath, w, h)
	if err != nil {
		log.Warn().Err(err).Msg("no usable portrait alpha, using opaque mask")
		m = Opaque(w, h)
	}
	saveCached(cacheDir, key, m, log)
	return m
}

func maskPath(dir, key string) string {
	return filepath.Join(dir, fmt.Sprintf("alpha_%s.mask", key))
}

// loadCached reads a persisted mask, treating any dimension mismatch as a
// miss so the caller recomputes.
func loadCached(dir, key string, w, h int) (*Mask, error) {
	data, err := os.ReadFile(maskPath(dir, key))
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[:4]) != maskMagic {
		return nil, fmt.Errorf("bad mask file")
	}
	mw := int(binary.LittleEndian.Uint32(data[4:8]))
	mh := int(binary.LittleEndian.Uint32(data[8:12]))
	if mw != w || mh != h || len(data) != 12+mw*mh*4 {
		return nil, fmt.Errorf("mask shape mismatch")
	}
	m := &Mask{W: mw, H: mh, A: make([]float32, mw*mh)}
	for i := range m.A {
		m.A[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[12+i*4:]))
	}
	return m, nil
}

func saveCached(dir, key string, m *Mask, log zerolog.Logger) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn().Err(err).Msg("mask cache dir")
		return
	}
	buf := make([]byte, 12+len(m.A)*4)
	copy(buf, maskMagic)
	binary.LittleEndian.PutUint32(buf[4:], uint32(m.W))
	binary.LittleEndian.PutUint32(buf[8:], uint32(m.H))
	for i, a := range m.A {
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(a))
	}
	if err := os.WriteFile(maskPath(dir, key), buf, 0644); err != nil {
		log.Warn().Err(err).Msg("mask cache write failed")
	}
}
