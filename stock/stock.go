// Package stock searches and downloads stock photos from Pexels.
package stock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"script2video/visuals"
)

const defaultBaseURL = "https://api.pexels.com/v1"

// Result is one stock search hit.
type Result struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Thumbnail    string `json:"thumbnail"`
	Alt          string `json:"alt"`
	Photographer string `json:"photographer"`
}

// Client talks to the Pexels API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func New(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "stock").Logger(),
	}
}

// SetBaseURL overrides the API endpoint.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

type pexelsResponse struct {
	Photos []struct {
		ID           int    `json:"id"`
		URL          string `json:"url"`
		Photographer string `json:"photographer"`
		Alt          string `json:"alt"`
		Src          struct {
			Large  string `json:"large"`
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// Search returns up to perPage photo results for the query.
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("stock search not configured")
	}
	if query == "" {
		return nil, fmt.Errorf("query required")
	}
	if perPage <= 0 {
		perPage = 15
	}

	u := fmt.Sprintf("%s/search?query=%s&per_page=%d", c.baseURL, url.QueryEscape(query), perPage)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels returned status %d", resp.StatusCode)
	}

	var parsed pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse pexels response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Photos))
	for _, p := range parsed.Photos {
		results = append(results, Result{
			ID:           p.ID,
			URL:          p.Src.Large,
			Thumbnail:    p.Src.Medium,
			Alt:          p.Alt,
			Photographer: p.Photographer,
		})
	}
	c.log.Info().Str("query", query).Int("results", len(results)).Msg("stock search complete")
	return results, nil
}

// Download fetches a stock image and stores it as PNG in destDir,
// flattened over white so later pipeline stages never see alpha.
func (c *Client) Download(ctx context.Context, imageURL, destDir string) (string, error) {
	if imageURL == "" {
		return "", fmt.Errorf("image url required")
	}
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download stock image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stock image returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", err
	}
	img, err := visuals.DecodeFlatten(bytes.NewReader(body), color.White)
	if err != nil {
		return "", fmt.Errorf("decode stock image: %w", err)
	}

	out := filepath.Join(destDir, fmt.Sprintf("stock_%s.png", uuid.NewString()[:8]))
	if err := visuals.SavePNG(img, out); err != nil {
		return "", err
	}
	return out, nil
}
