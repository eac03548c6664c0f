// Package ffmpegcmd drives ffmpeg and ffprobe as external collaborators.
package ffmpegcmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/rs/zerolog"
)

// Runner abstracts ffmpeg/ffprobe invocation so the pipeline can be tested
// with doubles that never spawn a process.
type Runner interface {
	// Run executes ffmpeg with the given args and waits for it.
	Run(ctx context.Context, args ...string) error
	// Probe executes ffprobe and returns its stdout.
	Probe(ctx context.Context, args ...string) ([]byte, error)
	// StreamOut starts ffmpeg and returns its stdout as a reader. Closing
	// the reader reaps the process.
	StreamOut(ctx context.Context, args ...string) (io.ReadCloser, error)
	// StreamIn starts ffmpeg and returns its stdin as a writer. Closing the
	// writer waits for the encode to finish and returns its error.
	StreamIn(ctx context.Context, args ...string) (io.WriteCloser, error)
}

// Exec is the real Runner.
type Exec struct {
	Log zerolog.Logger
}

func NewExec(log zerolog.Logger) *Exec {
	return &Exec{Log: log.With().Str("component", "ffmpeg").Logger()}
}

func (e *Exec) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	e.Log.Debug().Strs("args", args).Msg("ffmpeg")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 400))
	}
	return nil
}

func (e *Exec) Probe(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "ffprobe", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return out, nil
}

func (e *Exec) StreamOut(ctx context.Context, args ...string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	return &procReader{ReadCloser: stdout, cmd: cmd}, nil
}

func (e *Exec) StreamIn(ctx context.Context, args ...string) (io.WriteCloser, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	return &procWriter{WriteCloser: stdin, cmd: cmd, stderr: &stderr}, nil
}

type procReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (p *procReader) Close() error {
	p.ReadCloser.Close()
	return p.cmd.Wait()
}

type procWriter struct {
	io.WriteCloser
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

func (p *procWriter) Close() error {
	if err := p.WriteCloser.Close(); err != nil {
		p.cmd.Wait()
		return err
	}
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encode: %w: %s", err, tail(p.stderr.String(), 400))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
