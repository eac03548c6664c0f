package visuals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FluxPrompt is the decorated prompt pair sent to the inference worker.
type FluxPrompt struct {
	Positive string
	Negative string
	Guidance float64
	Steps    int
}

// BuildFluxPrompt wraps a raw user prompt with the photographic style and
// quality modifiers the worker model responds to.
func BuildFluxPrompt(prompt string, guidance float64, steps int) FluxPrompt {
	p := strings.TrimSpace(prompt)
	return FluxPrompt{
		Positive: fmt.Sprintf("professional photograph of %s, high quality, detailed, realistic", p),
		Negative: "blurry, low quality, distorted, ugly, deformed, watermark",
		Guidance: guidance,
		Steps:    steps,
	}
}

// ImageGenClient calls the remote inference endpoint with bounded retries
// and exponential backoff. It returns an error only after all attempts are
// exhausted; callers fall back to the text card.
type ImageGenClient struct {
	url        string
	maxRetries int
	guidance   float64
	steps      int
	client     *http.Client
	sleep      func(time.Duration)
	now        func() int64
	log        zerolog.Logger
}

func NewImageGenClient(url string, maxRetries int, timeout time.Duration,
	guidance float64, steps int, log zerolog.Logger) *ImageGenClient {
	return &ImageGenClient{
		url:        url,
		maxRetries: maxRetries,
		guidance:   guidance,
		steps:      steps,
		client:     &http.Client{Timeout: timeout},
		sleep:      time.Sleep,
		now:        func() int64 { return time.Now().Unix() },
		log:        log.With().Str("component", "imagegen").Logger(),
	}
}

func (c *ImageGenClient) IsAvailable() bool {
	return c != nil && c.url != ""
}

type generateRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Guidance       float64 `json:"guidance"`
	NumSteps       int     `json:"num_steps"`
	Seed           int64   `json:"seed"`
}

// Generate requests an image for prompt, normalizes it to w×h (flattened
// over black, sharpened and contrast-lifted), and writes it to outPath.
func (c *ImageGenClient) Generate(ctx context.Context, prompt string, w, h int, outPath string) error {
	if !c.IsAvailable() {
		return fmt.Errorf("image generation endpoint not configured")
	}
	fp := BuildFluxPrompt(prompt, c.guidance, c.steps)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
		data, err := c.fetch(ctx, fp, attempt)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("image generation attempt failed")
			continue
		}
		img, err := DecodeFlatten(bytes.NewReader(data), color.Black)
		if err != nil {
			lastErr = err
			continue
		}
		out := AdjustContrast(Sharpen(ResizeTo(img, w, h), 1.15), 1.08)
		return SavePNG(out, outPath)
	}
	return fmt.Errorf("image generation failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *ImageGenClient) fetch(ctx context.Context, fp FluxPrompt, attempt int) ([]byte, error) {
	payload, err := json.Marshal(generateRequest{
		Prompt:         fp.Positive,
		NegativePrompt: fp.Negative,
		Guidance:       fp.Guidance,
		NumSteps:       fp.Steps,
		Seed:           (c.now() + int64(attempt)*1000) % 10000,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("worker HTTP %d", resp.StatusCode)
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "application/json") {
		// The worker reports overload and model errors as JSON bodies.
		return nil, fmt.Errorf("worker returned JSON instead of image")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(ct, "image/") && len(data) <= 1000 {
		return nil, fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return data, nil
}
