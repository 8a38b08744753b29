package loop

import (
	"context"
	"time"
)

// Next tells Start what to do after a task pass: continue after an
// interval, or break (with or without error).
type Next struct {
	err      error
	quit     bool
	interval time.Duration
}

// Continue schedules the next pass after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break stops the loop. err may be nil.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is one pass of a recurring job. It receives the value returned by
// the previous pass.
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task in a loop until the task breaks or ctx is done.
//
// The value of the last pass is always returned, also when the loop ends
// with an error.
func Start[T any](ctx context.Context, init T, task Task[T]) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		v, n := task(ctx, value)
		if n.err != nil {
			return v, n.err
		}
		if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}
