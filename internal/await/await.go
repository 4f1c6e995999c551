// Package await provides a bounded-retry wait for external readiness
// signals that have no native completion event.
package await

import (
	"context"
	"fmt"
	"time"
)

// DefaultInterval is the poll cadence used when Options leaves it unset.
const DefaultInterval = 100 * time.Millisecond

// Options bounds a Poll call.
type Options struct {
	// Interval between predicate evaluations. Defaults to DefaultInterval.
	Interval time.Duration
	// Deadline is the total time allowed before Poll gives up.
	Deadline time.Duration
	// What names the awaited condition in the timeout error.
	What string
}

// Poll evaluates predicate at the configured interval until it reports ready,
// the deadline elapses, or ctx is cancelled. The predicate is evaluated once
// immediately before any waiting.
func Poll(ctx context.Context, opts Options, predicate func() bool) error {
	if predicate == nil {
		return fmt.Errorf("await: predicate required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	if predicate() {
		return nil
	}

	var deadline <-chan time.Time
	if opts.Deadline > 0 {
		timer := time.NewTimer(opts.Deadline)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return timeoutError(opts.What, opts.Deadline)
		case <-ticker.C:
			if predicate() {
				return nil
			}
		}
	}
}

func timeoutError(what string, deadline time.Duration) error {
	if what == "" {
		what = "condition"
	}
	return fmt.Errorf("await: %s not ready after %s", what, deadline)
}
