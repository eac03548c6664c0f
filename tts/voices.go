package tts

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"script2video/types"
)

// Catalog serves the premium voice list, cached in memory for the process
// lifetime and persisted to a JSON file so restarts skip the network call.
// Without premium configuration it serves an empty list, never an error.
type Catalog struct {
	mu        sync.Mutex
	voices    []Voice
	populated bool

	client    *ElevenLabsClient
	caps      types.Capabilities
	cacheFile string
	log       zerolog.Logger
}

func NewCatalog(client *ElevenLabsClient, caps types.Capabilities, cacheFile string, log zerolog.Logger) *Catalog {
	return &Catalog{
		client:    client,
		caps:      caps,
		cacheFile: cacheFile,
		log:       log.With().Str("component", "voices").Logger(),
	}
}

// List returns the available premium voices.
func (c *Catalog) List(ctx context.Context) []Voice {
	if !c.caps.PremiumVoice || !c.client.IsAvailable() {
		return []Voice{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.populated {
		return c.voices
	}

	if cached, err := c.loadDisk(); err == nil {
		c.voices, c.populated = cached, true
		return c.voices
	}

	fetched, err := c.client.FetchVoices(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("voice catalog fetch failed")
		return []Voice{}
	}
	c.voices, c.populated = fetched, true
	c.saveDisk(fetched)
	return c.voices
}

func (c *Catalog) loadDisk() ([]Voice, error) {
	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return nil, err
	}
	var voices []Voice
	if err := json.Unmarshal(data, &voices); err != nil {
		return nil, err
	}
	return voices, nil
}

func (c *Catalog) saveDisk(voices []Voice) {
	data, err := json.MarshalIndent(voices, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(c.cacheFile, data, 0644); err != nil {
		c.log.Warn().Err(err).Msg("could not persist voice cache")
	}
}
