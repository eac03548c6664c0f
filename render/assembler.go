// Package render assembles per-scene clips and encodes the final timeline.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"script2video/config"
	"script2video/ffmpegcmd"
	"script2video/subtitle"
	"script2video/tts"
	"script2video/types"
	"script2video/visuals"
)

// Clip is one assembled, time-bounded audiovisual unit. It owns its
// render-scoped artifacts until Release.
type Clip struct {
	Path         string
	Duration     float64
	HasNarration bool
	temps        []string
}

// Release removes every temporary artifact behind the clip.
func (c *Clip) Release() {
	for _, t := range c.temps {
		os.Remove(t)
	}
	c.temps = nil
}

// Assembler merges background, narration, and subtitles into clips.
type Assembler struct {
	cfg *config.Config
	tts *tts.Synthesizer
	vis *visuals.Provider
	run ffmpegcmd.Runner
	log zerolog.Logger
}

func NewAssembler(cfg *config.Config, synth *tts.Synthesizer, vis *visuals.Provider,
	run ffmpegcmd.Runner, log zerolog.Logger) *Assembler {
	return &Assembler{
		cfg: cfg,
		tts: synth,
		vis: vis,
		run: run,
		log: log.With().Str("component", "assembler").Logger(),
	}
}

// EffectiveDuration extends the scene's requested duration to cover the
// narration plus the fixed pad.
func EffectiveDuration(requested, audioDur, pad float64) float64 {
	if audioDur <= 0 {
		return requested
	}
	if withPad := audioDur + pad; withPad > requested {
		return withPad
	}
	return requested
}

// Assemble builds one clip for a scene. Narration and subtitle failures
// degrade (the clip proceeds without them); a scene with no resolvable
// visual is fatal.
func (a *Assembler) Assemble(ctx context.Context, scene types.Scene, opts types.RenderOptions, zone subtitle.Zone) (*Clip, error) {
	clip := &Clip{HasNarration: false}

	var audioPath string
	var audioDur float64
	if scene.Text != "" {
		path, err := a.tts.Synthesize(ctx, scene.Text, scene.VoiceID, opts.UsePremiumVoice)
		if err != nil {
			a.log.Warn().Err(err).Str("scene", scene.ID).Msg("narration failed, clip proceeds silent")
		} else {
			audioPath = path
			clip.temps = append(clip.temps, path)
			if dur, err := ffmpegcmd.MediaDuration(ctx, a.run, path); err == nil {
				audioDur = dur
			} else {
				a.log.Warn().Err(err).Str("scene", scene.ID).Msg("could not measure narration duration")
			}
		}
	}

	eff := EffectiveDuration(scene.Duration, audioDur, a.cfg.Video.ScenePadSec)
	clip.Duration = eff
	clip.HasNarration = audioPath != ""

	vis, err := a.vis.Resolve(ctx, scene, opts.AutoAIImages, eff)
	if err != nil {
		clip.Release()
		return nil, fmt.Errorf("scene %s: resolve visual: %w", scene.ID, err)
	}
	if vis.Temp {
		clip.temps = append(clip.temps, vis.Path)
	}

	base, err := a.buildClip(ctx, scene.ID, vis, audioPath, eff)
	if err != nil {
		clip.Release()
		return nil, fmt.Errorf("scene %s: build clip: %w", scene.ID, err)
	}
	clip.Path = base
	clip.temps = append(clip.temps, base)

	if opts.Subtitles && scene.Text != "" {
		if withSubs, err := a.overlaySubtitle(ctx, base, scene.Text, opts, zone); err != nil {
			a.log.Warn().Err(err).Str("scene", scene.ID).Msg("subtitle overlay failed, clip proceeds without captions")
		} else {
			clip.Path = withSubs
			clip.temps = append(clip.temps, withSubs)
		}
	}

	return clip, nil
}

// buildClip encodes the visual plus narration (or a silent filler track,
// so concatenated clips always have uniform streams) at exactly eff
// seconds.
func (a *Assembler) buildClip(ctx context.Context, sceneID string, vis *visuals.Visual, audioPath string, eff float64) (string, error) {
	out := filepath.Join(a.cfg.Paths.Temp, fmt.Sprintf("clip_%s_%s.mp4", sceneID, uuid.NewString()[:6]))

	var args []string
	switch vis.Kind {
	case visuals.Still:
		args = append(args, "-loop", "1", "-i", vis.Path)
	case visuals.Video:
		args = append(args, "-i", vis.Path)
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	} else {
		args = append(args, "-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
	}
	args = append(args,
		"-map", "0:v",
		"-map", "1:a",
		"-t", fmt.Sprintf("%.3f", eff),
		"-r", fmt.Sprintf("%d", a.cfg.Video.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", a.cfg.Video.AudioBitrate,
		out,
	)
	if err := a.run.Run(ctx, args...); err != nil {
		return "", err
	}
	return out, nil
}

func (a *Assembler) overlaySubtitle(ctx context.Context, clipPath, text string, opts types.RenderOptions, zone subtitle.Zone) (string, error) {
	vw, vh := a.cfg.Video.Width, a.cfg.Video.Height
	subPath, err := subtitle.Render(text, vw, vh, opts.FontSize, zone, a.cfg.Paths.Temp)
	if err != nil {
		return "", err
	}
	defer os.Remove(subPath)

	var yExpr string
	switch opts.SubtitleStyle {
	case types.SubtitleTop:
		yExpr = "20"
	case types.SubtitleCenter:
		yExpr = "(main_h-overlay_h)/2"
	default:
		yExpr = fmt.Sprintf("%d", vh-90)
	}

	out := filepath.Join(a.cfg.Paths.Temp, fmt.Sprintf("sub_%s.mp4", uuid.NewString()[:6]))
	err = a.run.Run(ctx,
		"-i", clipPath,
		"-i", subPath,
		"-filter_complex", fmt.Sprintf("[0:v][1:v]overlay=(main_w-overlay_w)/2:%s", yExpr),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}
