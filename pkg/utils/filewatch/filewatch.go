package filewatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext returns a context that is canceled when any of the
// target files is modified (written, created, removed or renamed).
//
// The returned cancel function releases the watcher; call it when the
// watch is no longer needed. On error, context and cancel are nil.
func UntilModifyContext(ctx context.Context, targets ...string) (context.Context, func(), error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				cancel(fmt.Errorf("%s is updated (%s)", event.Name, event.Op))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(err)
			}
		}
	}()

	for _, f := range targets {
		if err := w.Add(f); err != nil {
			cancel(err)
			return nil, nil, err
		}
	}
	return cctx, func() { cancel(nil) }, nil
}
