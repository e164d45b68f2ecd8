package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Runner executes external tools with a bounded number of concurrent
// invocations. ffmpeg saturates cores on its own, so running many copies
// at once only thrashes; the semaphore keeps total tool pressure fixed.
type Runner struct {
	sem *semaphore.Weighted
}

// NewRunner returns a runner allowing at most maxConcurrent simultaneous
// tool invocations. Values below 1 are clamped to 1.
func NewRunner(maxConcurrent int64) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run executes the tool and discards stdout. On failure the error carries
// the captured stderr so callers can surface the tool's own diagnostics.
func (r *Runner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.exec(ctx, nil, name, args...)
	return err
}

// RunDir is Run with a working directory.
func (r *Runner) RunDir(ctx context.Context, dir, name string, args ...string) error {
	_, err := r.exec(ctx, func(cmd *exec.Cmd) { cmd.Dir = dir }, name, args...)
	return err
}

// Output executes the tool and returns its stdout.
func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.exec(ctx, nil, name, args...)
}

func (r *Runner) exec(ctx context.Context, mod func(*exec.Cmd), name string, args ...string) ([]byte, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("media: acquire tool slot: %w", err)
	}
	defer r.sem.Release(1)

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if mod != nil {
		mod(cmd)
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("media: %s: %w", name, err)
		}
		return nil, fmt.Errorf("media: %s: %w: %s", name, err, tail(msg, 2000))
	}
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
