package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"script2video/types"
)

func TestEstimateWidth(t *testing.T) {
	// standard portrait aspect 572:618
	assert.Equal(t, 360*572/618, EstimateWidth(360))
	assert.Equal(t, 80, EstimateWidth(10))
}

func TestGeometryCorners(t *testing.T) {
	const cw, ch = 1280, 720
	const srcW, srcH = 572, 618

	x, y, w, h := Geometry(types.AvatarBottomRight, types.AvatarMedium, cw, ch, srcW, srcH)
	assert.Equal(t, 360, h)
	assert.Equal(t, 360*572/618, w)
	assert.Equal(t, cw-w, x)
	assert.Equal(t, ch-h, y)

	x, y, _, _ = Geometry(types.AvatarBottomLeft, types.AvatarMedium, cw, ch, srcW, srcH)
	assert.Equal(t, 0, x)
	assert.Equal(t, ch-360, y)

	x, y, _, _ = Geometry(types.AvatarTopRight, types.AvatarMedium, cw, ch, srcW, srcH)
	assert.Equal(t, cw-360*572/618, x)
	assert.Equal(t, 0, y)

	x, y, _, _ = Geometry(types.AvatarTopLeft, types.AvatarMedium, cw, ch, srcW, srcH)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
}

func TestGeometryDeterministic(t *testing.T) {
	x1, y1, w1, h1 := Geometry(types.AvatarBottomRight, types.AvatarLarge, 1280, 720, 572, 618)
	x2, y2, w2, h2 := Geometry(types.AvatarBottomRight, types.AvatarLarge, 1280, 720, 572, 618)
	assert.Equal(t, [4]int{x1, y1, w1, h1}, [4]int{x2, y2, w2, h2})
}

func TestGeometryClampsInsideCanvas(t *testing.T) {
	// canvas smaller than the avatar: rectangle pins to the origin
	x, y, _, _ := Geometry(types.AvatarBottomRight, types.AvatarLarge, 300, 300, 572, 618)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
}

func TestGeometryUnknownPositionDefaultsBottomRight(t *testing.T) {
	x, y, w, h := Geometry("middle", types.AvatarSmall, 1280, 720, 572, 618)
	assert.Equal(t, 1280-w, x)
	assert.Equal(t, 720-h, y)
	assert.Equal(t, 260, h)
}
