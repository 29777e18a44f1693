// Package harness owns the run-level lifecycle: option resolution and the
// guaranteed teardown that must execute exactly once on every exit path.
package harness

import (
	"context"
	"sync"
	"time"
)

// Finalizer collects teardown functions and runs them once, in reverse
// registration order, no matter how the run ends.
type Finalizer struct {
	mu      sync.Mutex
	funcs   []func(context.Context) error
	timeout time.Duration
	once    sync.Once
}

// NewFinalizer creates a finalizer with a total teardown deadline
func NewFinalizer(timeout time.Duration) *Finalizer {
	return &Finalizer{timeout: timeout}
}

// Register adds a teardown function. Functions run in reverse order (LIFO).
func (f *Finalizer) Register(fn func(context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs = append(f.funcs, fn)
}

// Finish runs all registered functions exactly once. Subsequent calls are
// no-ops, so it is safe to defer Finish and also call it on early exits.
// Individual errors do not stop later functions; the first one is returned.
func (f *Finalizer) Finish() error {
	var firstErr error

	f.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		f.mu.Lock()
		funcs := make([]func(context.Context) error, len(f.funcs))
		copy(funcs, f.funcs)
		f.mu.Unlock()

		for i := len(funcs) - 1; i >= 0; i-- {
			if err := funcs[i](ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})

	return firstErr
}
