// Package report collects per-attempt records from a validation run and
// renders them for humans (summary table) and machines (metrics textfile).
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Attempt is one record per daemon launch. Set once, never changed.
type Attempt struct {
	Index    int           `json:"index"`
	TimedOut bool          `json:"timed_out"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Stderr   string        `json:"stderr,omitempty"`
	Passed   bool          `json:"passed"`
}

// Collector accumulates attempt records for one validation run.
type Collector struct {
	mu       sync.Mutex
	started  time.Time
	attempts []Attempt
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{started: time.Now()}
}

// Record appends an attempt record
func (c *Collector) Record(a Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, a)
}

// Attempts returns a copy of the recorded attempts in order
func (c *Collector) Attempts() []Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Attempt, len(c.attempts))
	copy(out, c.attempts)
	return out
}

// FailedAttempt returns the first failing attempt, or nil if all passed
func (c *Collector) FailedAttempt() *Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.attempts {
		if !c.attempts[i].Passed {
			a := c.attempts[i]
			return &a
		}
	}
	return nil
}

// Elapsed returns total wall-clock time since the collector was created
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.started)
}

// WriteSummary renders the attempt table
func (c *Collector) WriteSummary(w io.Writer) {
	attempts := c.Attempts()
	if len(attempts) == 0 {
		fmt.Fprintln(w, "No attempts recorded")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Attempt", "Outcome", "Exit Code", "Duration", "Verdict", "Stderr")

	for _, a := range attempts {
		outcome := "completed"
		exitCode := fmt.Sprintf("%d", a.ExitCode)
		if a.TimedOut {
			outcome = "timed out"
			exitCode = "-"
		}

		verdict := "PASS"
		if !a.Passed {
			verdict = "FAIL"
		}

		table.Append(
			fmt.Sprintf("%d", a.Index),
			outcome,
			exitCode,
			a.Duration.Round(time.Millisecond).String(),
			verdict,
			a.StderrExcerpt(48),
		)
	}

	table.Render()
}

// StderrExcerpt returns the first line of the attempt's stderr, capped for
// table display. The full stream stays on the record for error dumps.
func (a Attempt) StderrExcerpt(max int) string {
	s := a.Stderr
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if max > 0 && len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
