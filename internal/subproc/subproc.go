// Package subproc runs external tools with timeout protection and a
// graceful interrupt-then-kill shutdown sequence. Both the gtts
// synthesizer and the ffmpeg encoder go through it.
package subproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

// ErrTimedOut is returned when a process exceeds its wall-clock budget
// and had to be terminated.
var ErrTimedOut = errors.New("subprocess timed out")

// Options configures a single subprocess invocation.
type Options struct {
	// Name is the binary to run; resolved through PATH.
	Name string

	// Args are the command arguments.
	Args []string

	// Stdin is fed to the process. May be nil data.
	Stdin []byte

	// Timeout bounds the whole invocation. Zero means the Runner
	// default applies.
	Timeout time.Duration
}

// Runner executes subprocesses with consistent timeout handling.
type Runner struct {
	defaultTimeout time.Duration
	gracePeriod    time.Duration
	logger         *log.Logger
}

// NewRunner creates a runner with the given default timeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{
		defaultTimeout: timeout,
		gracePeriod:    500 * time.Millisecond,
		logger:         log.Default().WithPrefix("subproc"),
	}
}

// LookPath reports whether a binary exists on PATH.
func LookPath(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("binary %q not found in PATH: %w", name, err)
	}
	return nil
}

// Run executes the command and returns its stdout. Stdin is wired up
// before the process starts so there is no race between process start
// and input delivery. On timeout the process receives an interrupt,
// then a kill after the grace period.
func (r *Runner) Run(ctx context.Context, opts Options) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...)
	// Context expiry sends an interrupt first; Wait escalates to a
	// kill once the grace period runs out.
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = r.gracePeriod
	cmd.Stdin = bytes.NewReader(opts.Stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", opts.Name, err)
	}

	err := cmd.Wait()
	r.logger.Debug("subprocess finished",
		"cmd", opts.Name, "elapsed", time.Since(started), "err", err)

	// A deadline hit is a timeout even when the child caught the
	// interrupt and exited cleanly: its output is not trustworthy.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("subprocess deadline exceeded", "cmd", opts.Name, "timeout", timeout)
		return nil, fmt.Errorf("%w: %s after %v", ErrTimedOut, opts.Name, timeout)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s cancelled: %w", opts.Name, ctx.Err())
		}
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", opts.Name, err, firstLine(s))
		}
		return nil, fmt.Errorf("%s failed: %w", opts.Name, err)
	}
	return stdout.Bytes(), nil
}

// interrupt sends SIGINT where the platform supports it.
func interrupt(proc *os.Process) error {
	if runtime.GOOS == "windows" {
		return proc.Kill()
	}
	return proc.Signal(syscall.SIGINT)
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
