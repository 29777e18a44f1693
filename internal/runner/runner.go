// Package runner launches a single external command under a hard wall-clock
// deadline, capturing stdout, stderr and the exit code as one unit. A
// process that overruns the deadline is killed, never abandoned.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxOutput caps captured output per stream.
const DefaultMaxOutput = 4 << 20 // 4 MiB

// Runner executes commands with bounded waits and bounded output capture.
type Runner struct {
	MaxOutput int // bytes per stream; DefaultMaxOutput when <= 0
}

// New returns a Runner with default limits.
func New() *Runner {
	return &Runner{MaxOutput: DefaultMaxOutput}
}

// Run executes argv and waits up to timeout for it to exit. The first
// element is the binary (resolved via PATH), the rest are arguments.
//
// If the process exits within the deadline, the outcome carries its stdout,
// stderr and exit code. If the deadline elapses first, the process group is
// hard-killed (SIGKILL), the exit is reaped, and the outcome reports
// TimedOut with no result. A failure to spawn at all returns a non-nil
// error and is never reported as a timeout.
func (r *Runner) Run(ctx context.Context, argv []string, timeout time.Duration) (Outcome, error) {
	if len(argv) == 0 {
		return Outcome{}, fmt.Errorf("empty argv")
	}
	if timeout <= 0 {
		return Outcome{}, fmt.Errorf("non-positive timeout %v", timeout)
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	cmd := exec.Command(argv[0], argv[1:]...)

	// Own process group so the deadline kill reaches any children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("launching %s: %w", argv[0], err)
	}
	pid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		return r.completed(waitErr, &stdout, &stderr, time.Since(start))
	case <-timer.C:
		// The exit may already be observable when the timer fires; a real
		// exit wins the boundary race over the timeout verdict.
		select {
		case waitErr := <-done:
			return r.completed(waitErr, &stdout, &stderr, time.Since(start))
		default:
		}

		killGroup(pid)
		<-done // reap; the process is confirmed dead before returning
		return Outcome{TimedOut: true}, nil
	case <-ctx.Done():
		killGroup(pid)
		<-done
		return Outcome{}, fmt.Errorf("run cancelled: %w", ctx.Err())
	}
}

// completed builds the Completed outcome from a finished wait.
func (r *Runner) completed(waitErr error, stdout, stderr *bytes.Buffer, elapsed time.Duration) (Outcome, error) {
	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Outcome{}, fmt.Errorf("waiting for process: %w", waitErr)
		}
	}

	return Outcome{
		Result: &Result{
			RunID:    uuid.New().String(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitCode,
			Duration: elapsed,
		},
	}, nil
}

// killGroup hard-kills the process group, falling back to the single pid
// when the group is already gone.
func killGroup(pid int) {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		syscall.Kill(pid, syscall.SIGKILL)
	}
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
