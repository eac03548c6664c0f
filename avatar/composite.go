package avatar

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"script2video/config"
	"script2video/ffmpegcmd"
	"script2video/proc"
	"script2video/types"
)

// Compositor runs the full avatar pipeline on a rendered timeline:
// extract audio, lip-sync it against the presenter portrait, and blend the
// resulting talking head into every frame.
type Compositor struct {
	cfg  *config.Config
	run  ffmpegcmd.Runner
	proc proc.Runner
	log  zerolog.Logger
}

func NewCompositor(cfg *config.Config, run ffmpegcmd.Runner, pr proc.Runner, log zerolog.Logger) *Compositor {
	return &Compositor{
		cfg:  cfg,
		run:  run,
		proc: pr,
		log:  log.With().Str("component", "avatar").Logger(),
	}
}

// Apply composites the avatar onto the timeline and returns the new video
// path. Avatar failure is never fatal: on any error the original path
// comes back untouched.
func (c *Compositor) Apply(ctx context.Context, videoPath string, opts types.RenderOptions) string {
	out, err := c.apply(ctx, videoPath, opts)
	if err != nil {
		c.log.Warn().Err(err).Msg("avatar pipeline failed, keeping timeline without avatar")
		return videoPath
	}
	return out
}

func (c *Compositor) apply(ctx context.Context, videoPath string, opts types.RenderOptions) (string, error) {
	portrait := c.cfg.Portrait(opts.AvatarStyle)
	if _, err := os.Stat(portrait); err != nil {
		return "", fmt.Errorf("presenter portrait: %w", err)
	}

	audioPath, cleanup, err := c.extractAudio(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	defer cleanup()

	lipPath := filepath.Join(c.cfg.Paths.Temp, fmt.Sprintf("wav2lip_%s.mp4", uuid.NewString()[:8]))
	defer os.Remove(lipPath)
	if err := c.runLipSync(ctx, portrait, audioPath, lipPath); err != nil {
		return "", fmt.Errorf("lip-sync: %w", err)
	}

	out, err := c.composite(ctx, videoPath, lipPath, portrait, opts)
	if err != nil {
		return "", fmt.Errorf("composite: %w", err)
	}
	return out, nil
}

// extractAudio converts the timeline's mixed audio to the mono 16kHz WAV
// the lip-sync model expects. The intermediate mp3 survives as a fallback
// input when the wav transcode fails.
func (c *Compositor) extractAudio(ctx context.Context, videoPath string) (string, func(), error) {
	base := filepath.Join(c.cfg.Paths.Temp, fmt.Sprintf("av_%s", uuid.NewString()[:8]))
	mp3 := base + ".mp3"
	wav := base + ".wav"
	cleanup := func() {
		os.Remove(mp3)
		os.Remove(wav)
	}

	if err := c.run.Run(ctx, "-i", videoPath, "-vn", "-c:a", "libmp3lame", "-q:a", "2", mp3); err != nil {
		cleanup()
		return "", nil, err
	}
	if err := c.run.Run(ctx, "-i", mp3, "-ac", "1", "-ar", "16000", wav); err != nil {
		c.log.Warn().Err(err).Msg("16k mono transcode failed, handing mp3 to lip-sync")
		return mp3, cleanup, nil
	}
	os.Remove(mp3)
	return wav, cleanup, nil
}

func (c *Compositor) runLipSync(ctx context.Context, portrait, audioPath, outPath string) error {
	timeout := time.Duration(c.cfg.LipSync.TimeoutSec) * time.Second
	args := []string{"--face", portrait, "--audio", audioPath, "--output", outPath}
	if err := c.proc.Run(ctx, c.cfg.LipSync.Command, args, timeout); err != nil {
		return err
	}
	st, err := os.Stat(outPath)
	if err != nil || st.Size() == 0 {
		return fmt.Errorf("lip-sync produced no output")
	}
	return nil
}

func (c *Compositor) composite(ctx context.Context, videoPath, lipPath, portrait string, opts types.RenderOptions) (string, error) {
	info, err := ffmpegcmd.Probe(ctx, c.run, lipPath)
	if err != nil {
		return "", err
	}
	if !info.HasVideo || info.Width == 0 || info.Height == 0 {
		return "", fmt.Errorf("lip-sync output has no video stream")
	}
	srcFPS := info.FrameRate
	if srcFPS == 0 {
		srcFPS = 25
	}

	frames, err := c.readFrames(ctx, lipPath, info.Width, info.Height)
	if err != nil {
		return "", err
	}
	if len(frames) == 0 {
		return "", fmt.Errorf("lip-sync output has no frames")
	}
	c.log.Info().Int("frames", len(frames)).Int("w", info.Width).Int("h", info.Height).Msg("lip-sync frames loaded")

	vw, vh := c.cfg.Video.Width, c.cfg.Video.Height
	ax, ay, aw, ah := Geometry(opts.AvatarPosition, opts.AvatarSize, vw, vh, info.Width, info.Height)

	// Mask is built at the lip-sync frame's native resolution so the cache
	// key matches the (portrait, style, w, h) tuple, then scaled to the
	// display rectangle alongside the frames.
	mask := Build(portrait, opts.AvatarStyle, info.Width, info.Height, c.cfg.Paths.AlphaMaskDir(), c.log).Resize(aw, ah)
	scaled := make([][]byte, len(frames))
	for i, f := range frames {
		scaled[i] = resizeRGB(f, info.Width, info.Height, aw, ah)
	}

	outPath := filepath.Join(c.cfg.Paths.Temp, fmt.Sprintf("avatar_%s.mp4", uuid.NewString()[:8]))
	if err := c.blendTimeline(ctx, videoPath, outPath, scaled, mask, srcFPS, ax, ay, aw, ah); err != nil {
		os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}

// readFrames decodes every lip-sync frame into memory as packed RGB24.
func (c *Compositor) readFrames(ctx context.Context, path string, w, h int) ([][]byte, error) {
	r, err := c.run.StreamOut(ctx, "-i", path, "-f", "rawvideo", "-pix_fmt", "rgb24", "-")
	if err != nil {
		return nil, err
	}
	defer r.Close()

	frameSize := w * h * 3
	var frames [][]byte
	for {
		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, err
		}
		frames = append(frames, buf)
	}
	return frames, nil
}

// blendTimeline streams the timeline's frames through the blend and into a
// fresh encode, carrying the original audio over unchanged.
func (c *Compositor) blendTimeline(ctx context.Context, videoPath, outPath string,
	frames [][]byte, mask *Mask, srcFPS float64, ax, ay, aw, ah int) error {

	vw, vh := c.cfg.Video.Width, c.cfg.Video.Height
	vfps := float64(c.cfg.Video.FPS)

	in, err := c.run.StreamOut(ctx, "-i", videoPath, "-f", "rawvideo", "-pix_fmt", "rgb24", "-")
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := c.run.StreamIn(ctx,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", vw, vh),
		"-r", fmt.Sprintf("%d", c.cfg.Video.FPS),
		"-i", "-",
		"-i", videoPath,
		"-map", "0:v",
		"-map", "1:a?",
		"-c:v", "libx264",
		"-preset", c.cfg.Video.Preset,
		"-crf", fmt.Sprintf("%d", c.cfg.Video.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		outPath,
	)
	if err != nil {
		return err
	}

	frameSize := vw * vh * 3
	buf := make([]byte, frameSize)
	for i := 0; ; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			out.Close()
			return err
		}
		fi := FrameIndex(i, srcFPS, vfps, len(frames))
		BlendRect(buf, vw, vh, frames[fi], aw, ah, mask, ax, ay)
		if _, err := out.Write(buf); err != nil {
			out.Close()
			return fmt.Errorf("write composited frame %d: %w", i, err)
		}
	}
	return out.Close()
}
