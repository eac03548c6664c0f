// Package scriptgen turns a topic into a narration script via the Groq
// chat-completions API.
package scriptgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// styleBriefs steer the tone per script style. Unknown styles fall back
// to narrative.
var styleBriefs = map[string]string{
	"educational": "Write a clear, informative script that teaches the topic step by step.",
	"narrative":   "Write an engaging storytelling script with a hook, arc, and resolution.",
	"promotional": "Write a persuasive promotional script that builds excitement and ends with a call to action.",
	"documentary": "Write an authoritative documentary-style script with vivid factual detail.",
	"tutorial":    "Write a practical how-to script walking the viewer through the topic.",
}

const systemPrompt = `You are a professional video scriptwriter. You write scripts meant to be read aloud as video narration.

Rules:
- Respond with ONLY the narration text. No headings, no scene markers, no stage directions, no markdown.
- Write in complete spoken sentences. Each sentence should stand on its own when shown as a caption.
- Natural pace is about 150 words per 60 seconds of video.`

// Generator is a Groq chat-completions client.
type Generator struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     zerolog.Logger
}

func New(apiKey, model string, log zerolog.Logger) *Generator {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &Generator{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log.With().Str("component", "scriptgen").Logger(),
	}
}

// SetBaseURL overrides the API endpoint.
func (g *Generator) SetBaseURL(u string) { g.baseURL = strings.TrimRight(u, "/") }

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate returns a narration script for the topic sized to
// durationSec at a natural reading pace.
func (g *Generator) Generate(ctx context.Context, topic, style string, durationSec int) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("script generation not configured")
	}
	if topic == "" {
		return "", fmt.Errorf("topic required")
	}
	if durationSec <= 0 {
		durationSec = 60
	}
	brief, ok := styleBriefs[style]
	if !ok {
		brief = styleBriefs["narrative"]
	}
	words := durationSec * 150 / 60

	userPrompt := fmt.Sprintf("%s\n\nTopic: %s\nTarget length: about %d words (a %d second video).",
		brief, topic, words, durationSec)

	reqBody := groqRequest{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var groqResp groqResponse
	if err := json.Unmarshal(respBytes, &groqResp); err != nil {
		return "", fmt.Errorf("parse groq response: %w", err)
	}
	if groqResp.Error != nil {
		return "", fmt.Errorf("groq error: %s", groqResp.Error.Message)
	}
	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	script := strings.TrimSpace(groqResp.Choices[0].Message.Content)
	if script == "" {
		return "", fmt.Errorf("groq returned an empty script")
	}
	g.log.Info().Str("style", style).Int("duration_sec", durationSec).
		Int("words", len(strings.Fields(script))).Msg("script generated")
	return script, nil
}
