package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCollectorRecordsInOrder(t *testing.T) {
	c := NewCollector()
	c.Record(Attempt{Index: 1, ExitCode: 2, Passed: true})
	c.Record(Attempt{Index: 2, ExitCode: 2, Passed: true})
	c.Record(Attempt{Index: 3, ExitCode: 0, Passed: false})

	attempts := c.Attempts()
	if len(attempts) != 3 {
		t.Fatalf("got %d attempts, want 3", len(attempts))
	}
	for i, a := range attempts {
		if a.Index != i+1 {
			t.Errorf("attempt %d has index %d", i, a.Index)
		}
	}

	// The returned slice is a copy; mutating it must not affect the collector.
	attempts[0].Index = 99
	if c.Attempts()[0].Index != 1 {
		t.Error("Attempts should return a copy")
	}
}

func TestCollectorFailedAttempt(t *testing.T) {
	c := NewCollector()
	if c.FailedAttempt() != nil {
		t.Error("empty collector has no failed attempt")
	}

	c.Record(Attempt{Index: 1, Passed: true})
	c.Record(Attempt{Index: 2, Passed: false, Stderr: "boom"})
	c.Record(Attempt{Index: 3, Passed: false})

	failed := c.FailedAttempt()
	if failed == nil || failed.Index != 2 {
		t.Errorf("FailedAttempt = %+v, want attempt 2", failed)
	}
}

func TestWriteSummary(t *testing.T) {
	c := NewCollector()
	c.Record(Attempt{Index: 1, ExitCode: 2, Duration: 120 * time.Millisecond, Passed: true})
	c.Record(Attempt{Index: 2, TimedOut: true, Duration: 6 * time.Second})

	var buf bytes.Buffer
	c.WriteSummary(&buf)
	out := buf.String()

	for _, want := range []string{"completed", "timed out", "PASS", "FAIL"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewCollector().WriteSummary(&buf)
	if !strings.Contains(buf.String(), "No attempts") {
		t.Errorf("empty summary = %q", buf.String())
	}
}

func TestStderrExcerpt(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		max    int
		want   string
	}{
		{"first line only", "line one\nline two", 80, "line one"},
		{"capped", "aaaaaaaaaa", 4, "aaaa..."},
		{"empty", "", 80, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Attempt{Stderr: tt.stderr}
			if got := a.StderrExcerpt(tt.max); got != tt.want {
				t.Errorf("StderrExcerpt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveAttempt(Attempt{Index: 1, ExitCode: 2, Duration: 100 * time.Millisecond, Passed: true})
	m.ObserveAttempt(Attempt{Index: 2, ExitCode: 2, Duration: 110 * time.Millisecond, Passed: true})
	m.ObserveAttempt(Attempt{Index: 3, TimedOut: true, Duration: 6 * time.Second})

	path := filepath.Join(t.TempDir(), "textfile", "metrics.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{
		"nodeharness_restart_attempts_total 3",
		"nodeharness_restart_failures_total 1",
		"nodeharness_restart_timeouts_total 1",
		"nodeharness_restart_duration_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics file missing %q:\n%s", want, out)
		}
	}
}
