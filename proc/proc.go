// Package proc runs external helper processes with a hard wall-clock
// timeout. The lip-sync tool and the offline speech synthesizer are both
// invoked through here, so tests can swap in a double that simulates
// timeouts and failures without spawning anything.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// ErrTimeout marks a process killed for exceeding its wall-clock limit.
var ErrTimeout = errors.New("process timed out")

// Runner executes one external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) error
}

// ExecRunner is the real Runner.
type ExecRunner struct {
	Log zerolog.Logger
}

func NewExecRunner(log zerolog.Logger) *ExecRunner {
	return &ExecRunner{Log: log.With().Str("component", "proc").Logger()}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.Log.Debug().Str("cmd", name).Dur("took", time.Since(start)).Err(err).Msg("process finished")

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w after %s", name, ErrTimeout, timeout)
		}
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, tail(msg, 400))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
