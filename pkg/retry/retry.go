// Package retry provides a bounded retry with a fixed inter-attempt delay.
// The sleep function is injectable so callers can test retry behavior with a
// fake clock.
package retry

import (
	"context"
	"time"
)

// Retrier runs an operation up to Attempts times, waiting Delay between
// attempts. The zero value performs a single attempt with no delay.
type Retrier struct {
	Attempts int
	Delay    time.Duration

	// Sleep, when set, replaces the cancellable timer wait between
	// attempts. Tests use it to record delays without waiting.
	Sleep func(time.Duration)
}

// Do runs fn until it succeeds, the attempt budget is spent, or ctx is done.
// Cancellation is honored during the inter-attempt wait. The error from the
// last attempt is returned on exhaustion.
func (r Retrier) Do(ctx context.Context, fn func() error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if waitErr := r.wait(ctx); waitErr != nil {
				return waitErr
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

func (r Retrier) wait(ctx context.Context) error {
	if r.Sleep != nil {
		r.Sleep(r.Delay)
		return ctx.Err()
	}
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
