// Package tts turns scene text into narration audio, with a premium
// provider that falls back to a free offline synthesizer on any failure.
package tts

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"script2video/proc"
	"script2video/types"
)

// Voice aliases the shared catalog entry type.
type Voice = types.Voice

// Synthesizer implements synthesize(text, voice_id?, use_premium).
type Synthesizer struct {
	premium *ElevenLabsClient
	caps    types.Capabilities
	runner  proc.Runner
	command string
	timeout time.Duration
	outDir  string
	log     zerolog.Logger
}

func NewSynthesizer(premium *ElevenLabsClient, caps types.Capabilities, runner proc.Runner,
	command string, timeout time.Duration, outDir string, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		premium: premium,
		caps:    caps,
		runner:  runner,
		command: command,
		timeout: timeout,
		outDir:  outDir,
		log:     log.With().Str("component", "tts").Logger(),
	}
}

// Synthesize produces a new audio file for text and returns its path.
// Premium failures are absorbed: the free synthesizer always gets a turn,
// so the only errors escaping here are from the fallback itself. Empty text
// becomes a single space so the output file is never empty.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string, usePremium bool) (string, error) {
	if text == "" {
		text = " "
	}

	if usePremium && s.caps.PremiumVoice && s.premium.IsAvailable() {
		out := filepath.Join(s.outDir, fmt.Sprintf("tts_%s.mp3", uuid.NewString()[:6]))
		if err := s.premium.Synthesize(ctx, text, voiceID, out); err == nil {
			return out, nil
		} else {
			s.log.Warn().Err(err).Msg("premium synthesis failed, falling back to offline engine")
		}
	}

	out := filepath.Join(s.outDir, fmt.Sprintf("tts_%s.wav", uuid.NewString()[:6]))
	if err := s.runner.Run(ctx, s.command, s.commandArgs(text, out), s.timeout); err != nil {
		return "", fmt.Errorf("offline synthesis: %w", err)
	}
	return out, nil
}

// commandArgs builds the argument list for the offline engine. espeak-ng
// takes "-w out text"; anything else is assumed to follow the generic
// --text/--output convention.
func (s *Synthesizer) commandArgs(text, out string) []string {
	if s.command == "espeak-ng" || s.command == "espeak" {
		return []string{"-w", out, text}
	}
	return []string{"--text", text, "--output", out}
}
