// Package visuals resolves each scene's background to a canvas-sized
// visual: supplied media, AI-generated imagery, or a text card.
package visuals

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"script2video/config"
	"script2video/ffmpegcmd"
	"script2video/types"
)

// Kind distinguishes how a visual is held for its clip's duration.
type Kind int

const (
	Still Kind = iota // static image shown for the full duration
	Video             // pre-trimmed video clip at exactly the duration
)

// Visual is a resolved, canvas-normalized background. Temp visuals are
// render-scoped artifacts the assembler removes after the clip is built.
type Visual struct {
	Path string
	Kind Kind
	Temp bool
}

var (
	stillExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true, ".webp": true}
	videoExts = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".mkv": true}
)

// Provider implements the background resolution priority chain.
type Provider struct {
	video config.VideoConfig
	paths config.PathsConfig
	caps  types.Capabilities
	run   ffmpegcmd.Runner
	gen   *ImageGenClient
	log   zerolog.Logger
}

func NewProvider(cfg *config.Config, caps types.Capabilities, run ffmpegcmd.Runner,
	gen *ImageGenClient, log zerolog.Logger) *Provider {
	return &Provider{
		video: cfg.Video,
		paths: cfg.Paths,
		caps:  caps,
		run:   run,
		gen:   gen,
		log:   log.With().Str("component", "visuals").Logger(),
	}
}

// Resolve returns a visual for the scene at the given effective duration.
// Priority: explicit media path, then AI generation, then the text card.
// Generation failures degrade to the card; only card I/O can fail.
func (p *Provider) Resolve(ctx context.Context, scene types.Scene, autoAI bool, duration float64) (*Visual, error) {
	if bg := strings.TrimSpace(scene.BackgroundPath); bg != "" {
		if _, err := os.Stat(bg); err == nil {
			ext := strings.ToLower(filepath.Ext(bg))
			switch {
			case stillExts[ext]:
				if v, err := p.normalizeStill(bg); err == nil {
					return v, nil
				} else {
					p.log.Warn().Err(err).Str("path", bg).Msg("supplied image unusable")
				}
			case videoExts[ext]:
				if v, err := p.normalizeVideo(ctx, bg, duration); err == nil {
					return v, nil
				} else {
					p.log.Warn().Err(err).Str("path", bg).Msg("supplied video unusable")
				}
			}
		}
	}

	if autoAI && p.caps.ImageGen {
		prompt := strings.TrimSpace(scene.ImagePrompt)
		if prompt == "" {
			prompt = strings.TrimSpace(scene.Text)
		}
		if prompt != "" {
			out := filepath.Join(p.paths.GeneratedImages,
				fmt.Sprintf("%s_%s.png", scene.ID, uuid.NewString()[:6]))
			if err := p.gen.Generate(ctx, prompt, p.video.Width, p.video.Height, out); err == nil {
				return &Visual{Path: out, Kind: Still}, nil
			} else {
				p.log.Warn().Err(err).Str("scene", scene.ID).Msg("image generation failed, using text card")
			}
		}
	}

	return p.textCard(scene)
}

// normalizeStill flattens alpha over white, resizes to the canvas, and
// applies a mild sharpen. The result is a render-scoped optimized copy.
func (p *Provider) normalizeStill(path string) (*Visual, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := DecodeFlatten(f, color.White)
	if err != nil {
		return nil, err
	}
	out := Sharpen(ResizeTo(img, p.video.Width, p.video.Height), 1.12)

	dst := filepath.Join(p.paths.Temp, fmt.Sprintf("bg_%s.png", uuid.NewString()[:8]))
	if err := SavePNG(out, dst); err != nil {
		return nil, err
	}
	return &Visual{Path: dst, Kind: Still, Temp: true}, nil
}

// normalizeVideo loops a too-short clip by repetition, trims to exactly
// duration, and scales to the canvas.
func (p *Provider) normalizeVideo(ctx context.Context, path string, duration float64) (*Visual, error) {
	srcDur, err := ffmpegcmd.MediaDuration(ctx, p.run, path)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(p.paths.Temp, fmt.Sprintf("bg_%s.mp4", uuid.NewString()[:8]))
	args := []string{}
	if srcDur < duration && srcDur > 0.1 {
		loops := int(duration/srcDur) + 1
		args = append(args, "-stream_loop", fmt.Sprintf("%d", loops))
	}
	args = append(args,
		"-i", path,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", fmt.Sprintf("scale=%d:%d,setsar=1", p.video.Width, p.video.Height),
		"-r", fmt.Sprintf("%d", p.video.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-an",
		dst,
	)
	if err := p.run.Run(ctx, args...); err != nil {
		return nil, err
	}
	return &Visual{Path: dst, Kind: Video, Temp: true}, nil
}

func (p *Provider) textCard(scene types.Scene) (*Visual, error) {
	text := strings.TrimSpace(scene.Text)
	if text == "" {
		text = "Generated Scene"
	}
	img, err := TextCard(text, p.video.Width, p.video.Height)
	if err != nil {
		return nil, fmt.Errorf("text card: %w", err)
	}
	dst := filepath.Join(p.paths.Temp, fmt.Sprintf("card_%s.png", uuid.NewString()[:8]))
	if err := SavePNG(img, dst); err != nil {
		return nil, fmt.Errorf("text card: %w", err)
	}
	return &Visual{Path: dst, Kind: Still, Temp: true}, nil
}
