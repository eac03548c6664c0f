package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1"

// ElevenLabsClient is the premium voice provider.
type ElevenLabsClient struct {
	apiKey   string
	baseURL  string
	model    string
	fallback string // default voice id
	client   *http.Client
	log      zerolog.Logger
}

func NewElevenLabsClient(apiKey, model, defaultVoice string, log zerolog.Logger) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:   apiKey,
		baseURL:  elevenLabsEndpoint,
		model:    model,
		fallback: defaultVoice,
		client:   &http.Client{Timeout: 60 * time.Second},
		log:      log.With().Str("provider", "elevenlabs").Logger(),
	}
}

func (c *ElevenLabsClient) IsAvailable() bool {
	return c != nil && c.apiKey != ""
}

type synthesisRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings map[string]float64 `json:"voice_settings"`
}

// Synthesize writes premium speech for text to outPath.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID, outPath string) error {
	if !c.IsAvailable() {
		return fmt.Errorf("elevenlabs api key not set")
	}
	if voiceID == "" {
		voiceID = c.fallback
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return fmt.Errorf("elevenlabs HTTP %d: %s", resp.StatusCode, body)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, audio, 0644)
}

type voicesResponse struct {
	Voices []struct {
		VoiceID     string `json:"voice_id"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		Description string `json:"description"`
	} `json:"voices"`
}

// FetchVoices retrieves the provider's voice catalog.
func (c *ElevenLabsClient) FetchVoices(ctx context.Context) ([]Voice, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("elevenlabs api key not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs voices HTTP %d", resp.StatusCode)
	}

	var parsed voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse voices: %w", err)
	}
	out := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		out = append(out, Voice{
			VoiceID:     v.VoiceID,
			Name:        v.Name,
			Category:    v.Category,
			Description: v.Description,
		})
	}
	return out, nil
}

// SetBaseURL points the client at a different endpoint, for tests.
func (c *ElevenLabsClient) SetBaseURL(url string) { c.baseURL = url }
