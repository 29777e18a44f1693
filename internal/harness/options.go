package harness

import (
	"fmt"
	"time"
)

// Options are the resolved harness settings for one run. They replace
// ambient flag globals: resolved once, passed explicitly.
type Options struct {
	Verbose          bool
	KeepLogs         bool          // retain node and harness logs after the run
	DumpErrorDetails bool          // dump captured stderr and node logs on failure
	LeaveRunning     bool          // skip killing daemons during teardown
	CleanRun         bool          // sweep stray daemon instances before bring-up
	Attempts         int           // restart attempts against the dirty state
	AttemptTimeout   time.Duration // hard wait deadline per attempt
}

// Validate rejects option combinations the harness cannot honor
func (o Options) Validate() error {
	if o.Attempts < 1 {
		return fmt.Errorf("attempts must be >= 1, got %d", o.Attempts)
	}
	if o.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %v", o.AttemptTimeout)
	}
	return nil
}
