package retry

import (
	"context"
	"errors"
	"time"
)

// ErrRetry marks a failure as worth another attempt.
// Wrap (or return) it from the function given to Do.
var ErrRetry = errors.New("retry")

// Backoff is a blocking function deciding when the next attempt may start.
// It returns ctx.Err() when the context is done while waiting.
type Backoff func(context.Context) error

// Static waits a fixed interval between attempts.
func Static(interval time.Duration) Backoff {
	return Exponential(interval, 1)
}

// Exponential waits initial, then initial*r, initial*r^2, ... between
// attempts.
func Exponential(initial time.Duration, r float64) Backoff {
	interval := initial
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer func() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			interval = time.Duration(float64(interval) * r)
			return nil
		}
	}
}

// Do calls f up to attempts times, sleeping per b between attempts
// (not before the first one).
//
// f is retried only when its error matches ErrRetry; any other error stops
// the attempts immediately. When attempts run out, the last error is
// returned as-is.
func Do[T any](ctx context.Context, attempts int, b Backoff, f func() (T, error)) (T, error) {
	var last T
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i != 0 {
			if err := b(ctx); err != nil {
				return last, err
			}
		}

		last, lastErr = f()
		if lastErr == nil {
			return last, nil
		}
		if !errors.Is(lastErr, ErrRetry) {
			return last, lastErr
		}
	}
	return last, lastErr
}
