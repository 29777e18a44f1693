// Package validate drives repeated daemon relaunches against a dirty data
// directory and asserts that every launch refuses to start with the same
// exit signature. One mismatch fails the whole run.
package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chainops/nodeharness/internal/report"
	"github.com/chainops/nodeharness/internal/runner"
	"github.com/chainops/nodeharness/pkg/logging"
)

// ProcessRunner is the bounded-execution dependency. *runner.Runner
// satisfies it.
type ProcessRunner interface {
	Run(ctx context.Context, argv []string, timeout time.Duration) (runner.Outcome, error)
}

// Signature is the exit contract expected from every launch attempt.
type Signature struct {
	ExitCode       int    `yaml:"exit_code"`
	StderrContains string `yaml:"stderr_contains"`
}

// Config parameterizes one validation run.
type Config struct {
	Argv     []string      // fixed daemon launch command
	Attempts int           // sequential attempts, 1..Attempts
	Timeout  time.Duration // hard wait deadline per attempt
	Expected Signature
}

// RestartValidator runs the loop and records every attempt.
type RestartValidator struct {
	Runner    ProcessRunner
	Log       *logging.Logger
	Collector *report.Collector
	Metrics   *report.Metrics
}

// Validate runs cfg.Attempts sequential launches of cfg.Argv. Attempt i+1
// starts only after attempt i's process is confirmed dead, so each launch
// observes the on-disk state the previous one left behind. The first
// timeout, exit-code mismatch or missing stderr substring aborts the run
// with an attempt-numbered error. Nil means all attempts matched.
func (v *RestartValidator) Validate(ctx context.Context, cfg Config) error {
	if v.Runner == nil {
		return fmt.Errorf("no process runner configured")
	}
	if cfg.Attempts < 1 {
		return fmt.Errorf("attempts must be >= 1, got %d", cfg.Attempts)
	}
	if len(cfg.Argv) == 0 {
		return fmt.Errorf("empty launch command")
	}

	log := v.Log
	if log == nil {
		log = logging.NewLogger(logging.INFO, false)
	}

	for i := 1; i <= cfg.Attempts; i++ {
		log.Info(fmt.Sprintf("Attempt %d: launching node daemon", i), map[string]interface{}{
			"cmd":     strings.Join(cfg.Argv, " "),
			"timeout": cfg.Timeout.String(),
		})

		outcome, err := v.Runner.Run(ctx, cfg.Argv, cfg.Timeout)
		if err != nil {
			// Spawn failure, not a counted attempt.
			return fmt.Errorf("attempt %d: failed to launch node daemon: %w", i, err)
		}

		if outcome.TimedOut {
			v.record(report.Attempt{
				Index:    i,
				TimedOut: true,
				Duration: cfg.Timeout,
			})
			return fmt.Errorf("attempt %d: node daemon is running beyond the defined wait time (%v); instance hard killed", i, cfg.Timeout)
		}

		res := outcome.Result
		attempt := report.Attempt{
			Index:    i,
			ExitCode: res.ExitCode,
			Duration: res.Duration,
			Stderr:   res.Stderr,
		}

		if res.ExitCode != cfg.Expected.ExitCode {
			v.record(attempt)
			return fmt.Errorf("attempt %d: expected exit code %d, got %d", i, cfg.Expected.ExitCode, res.ExitCode)
		}

		if !strings.Contains(res.Stderr, cfg.Expected.StderrContains) {
			v.record(attempt)
			return fmt.Errorf("attempt %d: stderr does not contain %q. stderr=\n%s", i, cfg.Expected.StderrContains, res.Stderr)
		}

		attempt.Passed = true
		v.record(attempt)

		log.Debug(fmt.Sprintf("Attempt %d: signature matched", i), map[string]interface{}{
			"exit_code": res.ExitCode,
			"duration":  res.Duration.Round(time.Millisecond).String(),
		})
	}

	log.Info(fmt.Sprintf("Dirty database flag held across %d restart attempts", cfg.Attempts))
	return nil
}

func (v *RestartValidator) record(a report.Attempt) {
	if v.Collector != nil {
		v.Collector.Record(a)
	}
	if v.Metrics != nil {
		v.Metrics.ObserveAttempt(a)
	}
}
