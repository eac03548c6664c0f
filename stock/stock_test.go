package stock

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "mountains", r.URL.Query().Get("query"))
		assert.Equal(t, "15", r.URL.Query().Get("per_page"))
		assert.Equal(t, "key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"photos":[{"id":7,"url":"https://pexels.com/photo/7","photographer":"Ann",
			"alt":"snowy peak","src":{"large":"https://img/large.jpg","medium":"https://img/medium.jpg"}}]}`))
	}))
	defer srv.Close()

	c := New("key", zerolog.Nop())
	c.SetBaseURL(srv.URL)

	results, err := c.Search(context.Background(), "mountains", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 7, results[0].ID)
	assert.Equal(t, "https://img/large.jpg", results[0].URL)
	assert.Equal(t, "https://img/medium.jpg", results[0].Thumbnail)
	assert.Equal(t, "snowy peak", results[0].Alt)
	assert.Equal(t, "Ann", results[0].Photographer)
}

func TestSearchNotConfigured(t *testing.T) {
	c := New("", zerolog.Nop())
	_, err := c.Search(context.Background(), "mountains", 5)
	assert.Error(t, err)
}

func TestSearchEmptyQuery(t *testing.T) {
	c := New("key", zerolog.Nop())
	_, err := c.Search(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("key", zerolog.Nop())
	c.SetBaseURL(srv.URL)
	_, err := c.Search(context.Background(), "mountains", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestDownload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 12, 8))))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := New("key", zerolog.Nop())
	dir := t.TempDir()
	path, err := c.Download(context.Background(), srv.URL+"/img.png", dir)
	require.NoError(t, err)
	assert.Contains(t, path, "stock_")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
}

func TestDownloadBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	c := New("key", zerolog.Nop())
	_, err := c.Download(context.Background(), srv.URL, t.TempDir())
	assert.Error(t, err)
}
