package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script2video/types"
)

func TestCatalogNoPremiumReturnsEmpty(t *testing.T) {
	client := NewElevenLabsClient("", "m", "v", zerolog.Nop())
	c := NewCatalog(client, types.Capabilities{}, filepath.Join(t.TempDir(), "voices.json"), zerolog.Nop())

	voices := c.List(context.Background())
	assert.NotNil(t, voices)
	assert.Empty(t, voices)
}

func TestCatalogServesDiskCache(t *testing.T) {
	cacheFile := filepath.Join(t.TempDir(), "voices.json")
	cached := []Voice{{VoiceID: "v1", Name: "Rachel", Category: "premade"}}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cacheFile, data, 0644))

	client := NewElevenLabsClient("key", "m", "v", zerolog.Nop())
	c := NewCatalog(client, types.Capabilities{PremiumVoice: true}, cacheFile, zerolog.Nop())

	voices := c.List(context.Background())
	require.Len(t, voices, 1)
	assert.Equal(t, "Rachel", voices[0].Name)
}

func TestCatalogFetchesAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voices", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("xi-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[{"voice_id":"v1","name":"Adam","category":"premade","description":"deep"}]}`))
	}))
	defer srv.Close()

	cacheFile := filepath.Join(t.TempDir(), "voices.json")
	client := NewElevenLabsClient("key", "m", "v", zerolog.Nop())
	client.SetBaseURL(srv.URL)
	c := NewCatalog(client, types.Capabilities{PremiumVoice: true}, cacheFile, zerolog.Nop())

	voices := c.List(context.Background())
	require.Len(t, voices, 1)
	assert.Equal(t, "Adam", voices[0].Name)

	// persisted for the next process
	data, err := os.ReadFile(cacheFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Adam")

	// memory cache serves the second call even if the server is gone
	srv.Close()
	again := c.List(context.Background())
	require.Len(t, again, 1)
	assert.Equal(t, "Adam", again[0].Name)
}

func TestCatalogFetchFailureIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewElevenLabsClient("key", "m", "v", zerolog.Nop())
	client.SetBaseURL(srv.URL)
	c := NewCatalog(client, types.Capabilities{PremiumVoice: true}, filepath.Join(t.TempDir(), "voices.json"), zerolog.Nop())

	assert.Empty(t, c.List(context.Background()))
}
