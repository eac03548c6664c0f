package render

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"script2video/avatar"
	"script2video/config"
	"script2video/ffmpegcmd"
	"script2video/subtitle"
	"script2video/types"
)

// Renderer drives a full render: per-scene assembly, concatenation,
// optional avatar and music passes, and the final encode.
type Renderer struct {
	cfg       *config.Config
	assembler *Assembler
	avatar    *avatar.Compositor
	run       ffmpegcmd.Runner
	log       zerolog.Logger
}

func NewRenderer(cfg *config.Config, assembler *Assembler, comp *avatar.Compositor,
	run ffmpegcmd.Runner, log zerolog.Logger) *Renderer {
	return &Renderer{
		cfg:       cfg,
		assembler: assembler,
		avatar:    comp,
		run:       run,
		log:       log.With().Str("component", "renderer").Logger(),
	}
}

// Render produces the output video for a request and returns its path.
func (r *Renderer) Render(ctx context.Context, req types.RenderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	opts := req.Options
	opts.Normalize()
	zone := r.subtitleZone(opts)

	var clips []*Clip
	defer func() {
		for _, c := range clips {
			c.Release()
		}
	}()

	for _, scene := range req.Scenes {
		clip, err := r.assembler.Assemble(ctx, scene, opts, zone)
		if err != nil {
			return "", err
		}
		clips = append(clips, clip)
		r.log.Info().Str("scene", scene.ID).Float64("duration", clip.Duration).Msg("scene assembled")
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no clips assembled")
	}

	var temps []string
	defer func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}()

	timeline, err := r.concat(ctx, clips)
	if err != nil {
		return "", fmt.Errorf("concat timeline: %w", err)
	}
	temps = append(temps, timeline)

	hasNarration := false
	for _, c := range clips {
		if c.HasNarration {
			hasNarration = true
			break
		}
	}

	if opts.UseAvatar {
		if hasNarration {
			withAvatar := r.avatar.Apply(ctx, timeline, opts)
			if withAvatar != timeline {
				temps = append(temps, withAvatar)
				timeline = withAvatar
			}
		} else {
			r.log.Warn().Msg("avatar requested but no scene has narration, skipping")
		}
	}

	if opts.BackgroundMusic != "" {
		if _, err := os.Stat(opts.BackgroundMusic); err != nil {
			r.log.Warn().Str("music", opts.BackgroundMusic).Msg("background music file missing, skipping")
		} else if mixed, err := r.mixMusic(ctx, timeline, opts.BackgroundMusic, opts.MusicVolume); err != nil {
			r.log.Warn().Err(err).Msg("music mix failed, continuing without music")
		} else {
			temps = append(temps, mixed)
			timeline = mixed
		}
	}

	out, err := r.encode(ctx, timeline, req.ProjectName)
	if err != nil {
		return "", fmt.Errorf("final encode: %w", err)
	}
	r.log.Info().Str("output", out).Msg("render complete")
	return out, nil
}

// subtitleZone reserves horizontal room for the avatar so bottom
// captions never sit under it.
func (r *Renderer) subtitleZone(opts types.RenderOptions) subtitle.Zone {
	if !opts.UseAvatar || opts.SubtitleStyle != types.SubtitleBottom {
		return subtitle.Zone{}
	}
	h := types.AvatarHeight(opts.AvatarSize)
	w := avatar.EstimateWidth(h) + r.cfg.Avatar.SubtitleMargin
	side := subtitle.SideRight
	if opts.AvatarPosition == types.AvatarBottomLeft || opts.AvatarPosition == types.AvatarTopLeft {
		side = subtitle.SideLeft
	}
	return subtitle.Zone{Side: side, Width: w}
}

// concat joins clips losslessly with the concat demuxer. Clips share
// codec, resolution, and frame rate by construction.
func (r *Renderer) concat(ctx context.Context, clips []*Clip) (string, error) {
	list := filepath.Join(r.cfg.Paths.Temp, fmt.Sprintf("concat_%s.txt", uuid.NewString()[:8]))
	f, err := os.Create(list)
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	for _, c := range clips {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			abs = c.Path
		}
		fmt.Fprintf(w, "file '%s'\n", abs)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(list)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(list)
		return "", err
	}
	defer os.Remove(list)

	out := filepath.Join(r.cfg.Paths.Temp, fmt.Sprintf("timeline_%s.mp4", uuid.NewString()[:8]))
	err = r.run.Run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

// mixMusic loops the track under the timeline's narration. The video
// stream is copied untouched.
func (r *Renderer) mixMusic(ctx context.Context, timeline, musicPath string, volume float64) (string, error) {
	out := filepath.Join(r.cfg.Paths.Temp, fmt.Sprintf("music_%s.mp4", uuid.NewString()[:8]))
	filter := fmt.Sprintf("[1:a]volume=%.2f[m];[0:a][m]amix=inputs=2:duration=first:normalize=0[aout]", volume)
	err := r.run.Run(ctx,
		"-i", timeline,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", r.cfg.Video.AudioBitrate,
		out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

// encode produces the delivery file. Audio is demuxed to a temporary
// m4a and muxed back with stream copy, so the encode pass never
// re-compresses it; the temporary is removed on every path.
func (r *Renderer) encode(ctx context.Context, timeline, project string) (string, error) {
	out := filepath.Join(r.cfg.Paths.Outputs, fmt.Sprintf("%s_%s.mp4", project, uuid.NewString()[:8]))
	v := r.cfg.Video

	tmpAudio := filepath.Join(r.cfg.Paths.Temp, fmt.Sprintf("tmp-%s.m4a", uuid.NewString()[:8]))
	defer os.Remove(tmpAudio)

	audioErr := r.run.Run(ctx,
		"-i", timeline,
		"-vn",
		"-c:a", "aac",
		"-b:a", v.AudioBitrate,
		tmpAudio,
	)
	if audioErr != nil {
		r.log.Warn().Err(audioErr).Msg("audio extraction failed, encoding video only")
		err := r.run.Run(ctx,
			"-i", timeline,
			"-an",
			"-c:v", "libx264",
			"-preset", v.Preset,
			"-crf", fmt.Sprintf("%d", v.CRF),
			"-b:v", v.Bitrate,
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
			"-threads", fmt.Sprintf("%d", v.Threads),
			out,
		)
		if err != nil {
			return "", err
		}
		return out, nil
	}

	err := r.run.Run(ctx,
		"-i", timeline,
		"-i", tmpAudio,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", v.Preset,
		"-crf", fmt.Sprintf("%d", v.CRF),
		"-b:v", v.Bitrate,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-threads", fmt.Sprintf("%d", v.Threads),
		"-c:a", "copy",
		out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}
