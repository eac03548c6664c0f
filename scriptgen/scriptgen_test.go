package scriptgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var captured groqRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Once upon a time. The end."}}]}`))
	}))
	defer srv.Close()

	g := New("key", "", zerolog.Nop())
	g.SetBaseURL(srv.URL)

	script, err := g.Generate(context.Background(), "space travel", "narrative", 60)
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time. The end.", script)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "space travel")
	// 60 seconds at ~150 words/minute
	assert.Contains(t, captured.Messages[1].Content, "150 words")
}

func TestGenerateUnknownStyleFallsBackToNarrative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req groqRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Messages[1].Content, "storytelling")
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	g := New("key", "", zerolog.Nop())
	g.SetBaseURL(srv.URL)
	_, err := g.Generate(context.Background(), "topic", "vaporwave", 30)
	require.NoError(t, err)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	g := New("key", "", zerolog.Nop())
	g.SetBaseURL(srv.URL)
	_, err := g.Generate(context.Background(), "topic", "narrative", 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGenerateNotConfigured(t *testing.T) {
	g := New("", "", zerolog.Nop())
	_, err := g.Generate(context.Background(), "topic", "narrative", 60)
	assert.Error(t, err)
}

func TestGenerateEmptyTopic(t *testing.T) {
	g := New("key", "", zerolog.Nop())
	_, err := g.Generate(context.Background(), "", "narrative", 60)
	assert.Error(t, err)
}
