package runner

import "time"

// Result holds the captured output of a completed process run.
// It is set once when the process exits and never modified afterwards.
type Result struct {
	RunID    string        // unique identifier for this run
	Stdout   string        // captured stdout (may be truncated)
	Stderr   string        // captured stderr (may be truncated)
	ExitCode int           // process exit code
	Duration time.Duration // wall-clock time from start to exit
}

// Outcome is the tagged result of a bounded run: either the process exited
// within the deadline and Result is set, or it overran and was killed, in
// which case TimedOut is true and Result is nil. Exactly one of the two
// holds per call.
type Outcome struct {
	TimedOut bool
	Result   *Result
}

// Completed reports whether the process exited on its own within the
// deadline.
func (o Outcome) Completed() bool {
	return !o.TimedOut && o.Result != nil
}
