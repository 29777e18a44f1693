package runner

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	r := New()

	outcome, err := r.Run(context.Background(), []string{"/bin/sh", "-c", "echo out; echo err >&2; exit 2"}, 5*time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if outcome.TimedOut {
		t.Fatal("expected Completed outcome, got TimedOut")
	}
	if !outcome.Completed() {
		t.Fatal("Completed() should be true")
	}

	res := outcome.Result
	if res.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", res.ExitCode)
	}
	if res.Stdout != "out\n" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "out\n")
	}
	if res.Stderr != "err\n" {
		t.Errorf("stderr = %q, want %q", res.Stderr, "err\n")
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	if res.Duration <= 0 {
		t.Error("Duration should be positive")
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	r := New()

	start := time.Now()
	outcome, err := r.Run(context.Background(), []string{"/bin/sh", "-c", "sleep 30"}, 200*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !outcome.TimedOut {
		t.Fatal("expected TimedOut outcome")
	}
	if outcome.Result != nil {
		t.Error("TimedOut outcome must carry no result")
	}

	// The kill must have happened long before the sleep would finish.
	if elapsed > 5*time.Second {
		t.Errorf("Run took %v, process was not killed promptly", elapsed)
	}
}

func TestRunExitJustBeforeDeadline(t *testing.T) {
	r := New()

	outcome, err := r.Run(context.Background(), []string{"/bin/sh", "-c", "sleep 0.05; exit 3"}, 5*time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if outcome.TimedOut {
		t.Fatal("a natural exit within the deadline must not be reported as TimedOut")
	}
	if outcome.Result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", outcome.Result.ExitCode)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	r := New()

	outcome, err := r.Run(context.Background(), []string{"/nonexistent/binary-that-is-not-there"}, time.Second)
	if err == nil {
		t.Fatal("expected spawn failure error")
	}
	if outcome.TimedOut {
		t.Error("spawn failure must not be reported as TimedOut")
	}
	if !strings.Contains(err.Error(), "launching") {
		t.Errorf("error %q should identify the launch failure", err)
	}
}

func TestRunArgValidation(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		timeout time.Duration
	}{
		{"empty argv", nil, time.Second},
		{"zero timeout", []string{"true"}, 0},
		{"negative timeout", []string{"true"}, -time.Second},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Run(context.Background(), tt.argv, tt.timeout); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunOutputTruncation(t *testing.T) {
	r := &Runner{MaxOutput: 10}

	outcome, err := r.Run(context.Background(), []string{"/bin/sh", "-c", "printf aaaaaaaaaaaaaaaaaaaa"}, 5*time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := len(outcome.Result.Stdout); got != 10 {
		t.Errorf("stdout length = %d, want 10 (truncated)", got)
	}
}

func TestRunCancelledContext(t *testing.T) {
	r := New()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := r.Run(ctx, []string{"/bin/sh", "-c", "sleep 30"}, 30*time.Second)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %v after cancellation", elapsed)
	}
}
