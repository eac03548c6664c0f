package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script2video/config"
	"script2video/scriptgen"
	"script2video/stock"
	"script2video/tts"
	"script2video/types"
	"script2video/visuals"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.Outputs = filepath.Join(base, "outputs")
	cfg.Paths.MusicCache = filepath.Join(base, "music")
	cfg.Paths.Uploads = filepath.Join(base, "uploads")
	cfg.Paths.GeneratedImages = filepath.Join(base, "generated_images")
	for _, d := range []string{cfg.Paths.Outputs, cfg.Paths.MusicCache, cfg.Paths.Uploads, cfg.Paths.GeneratedImages} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}

	log := zerolog.Nop()
	caps := types.Capabilities{}
	eleven := tts.NewElevenLabsClient("", "m", "v", log)
	voices := tts.NewCatalog(eleven, caps, filepath.Join(base, "voices.json"), log)
	scripts := scriptgen.New("", "", log)
	images := visuals.NewImageGenClient("", 1, 0, 7.5, 25, log)
	stockClient := stock.New("", log)

	return New(cfg, caps, nil, voices, scripts, images, stockClient, nil, log)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleRoot(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "script2video", body["service"])
	assert.Contains(t, body, "capabilities")
}

func TestHandleSplit(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "POST", "/api/split", `{"script":"One. Two. Three."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Scenes []types.Scene `json:"scenes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Scenes, 3)
	assert.Equal(t, "scene_1", body.Scenes[0].ID)
	assert.Equal(t, "One.", body.Scenes[0].Text)
	assert.Equal(t, 5.0, body.Scenes[0].Duration)
	assert.Equal(t, "Three.", body.Scenes[2].Text)
}

func TestHandleSplitEmptyScript(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "POST", "/api/split", `{"script":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSplitBadJSON(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "POST", "/api/split", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVoicesWithoutPremium(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/api/voices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"voices":[]}`, rec.Body.String())
}

func TestHandleGenerateScriptNotConfigured(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "POST", "/api/generate_script", `{"topic":"space","style":"narrative","duration":60}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleGenerateImagesWithoutCapability(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "POST", "/api/generate_images", `{"scenes":[{"id":"s1","text":"a cat"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Images map[string]string `json:"images"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Images)
	assert.Contains(t, body.Errors, "s1")
}

func TestHandleDownloadMissingParam(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/api/download", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDownloadTraversalRejected(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/api/download?file=..%2F..%2Fetc%2Fpasswd", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDownloadNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/api/download?file=nope.mp4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDownloadServesFile(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Paths.Outputs, "demo_abc.mp4"), []byte("video"), 0644))

	rec := doJSON(t, s.Router(), "GET", "/api/download?file=demo_abc.mp4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "demo_abc.mp4")
}

func TestHandleMusicUpload(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "track.mp3")
	require.NoError(t, err)
	fw.Write([]byte("mp3 bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/music/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data, err := os.ReadFile(body["path"])
	require.NoError(t, err)
	assert.Equal(t, "mp3 bytes", string(data))
}

func TestHandleMusicUploadRejectsExtension(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "malware.exe")
	require.NoError(t, err)
	fw.Write([]byte("nope"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/music/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadBackgroundFlattensImage(t *testing.T) {
	s := newTestServer(t)

	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{200, 40, 40, 128})
		}
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("scene_id", "scene_2"))
	fw, err := mw.CreateFormFile("file", "bg.png")
	require.NoError(t, err)
	fw.Write(pngBuf.Bytes())
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/upload_background", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "scene_2", body["scene_id"])
	assert.Equal(t, "scene_2_uploaded.png", filepath.Base(body["background_path"]))

	f, err := os.Open(body["background_path"])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	_, _, _, a := img.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), a, "stored background must be fully opaque")
}

func TestHandleUploadBackgroundKeepsVideoAsSent(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "clip.mp4")
	require.NoError(t, err)
	fw.Write([]byte("mp4 bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/upload_background", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "scene.mp4", filepath.Base(body["background_path"]))
	data, err := os.ReadFile(body["background_path"])
	require.NoError(t, err)
	assert.Equal(t, "mp4 bytes", string(data))
}

func TestHandleDownloadImage(t *testing.T) {
	s := newTestServer(t)

	path := filepath.Join(s.cfg.Paths.GeneratedImages, "scene_1_ab12cd34.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0644))

	rec := doJSON(t, s.Router(), "GET", "/api/download_image?path="+url.QueryEscape(path), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "scene_1_ab12cd34.png")
}

func TestHandleDownloadImageRejectsOutsidePath(t *testing.T) {
	s := newTestServer(t)

	outside := filepath.Join(s.cfg.Paths.Outputs, "demo.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("video"), 0644))

	for _, p := range []string{outside, "/etc/passwd", ""} {
		rec := doJSON(t, s.Router(), "GET", "/api/download_image?path="+url.QueryEscape(p), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, p)
	}
}

func TestHandleRendersWithoutHistory(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/api/renders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"renders":[]}`, rec.Body.String())
}

func TestHandleStockSearchNotConfigured(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/api/stock_search?query=cats", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
