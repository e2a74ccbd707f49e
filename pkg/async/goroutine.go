package async

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/tasktrack/pkg/observability"
)

// ErrPanicked is reported on the result channel when the task panicked
var ErrPanicked = errors.New("task panicked")

// SafeGo runs fn in a goroutine with a timeout derived from parentCtx.
// Panics are recovered and errors are logged through the context logger,
// so a failing background task never takes the process down.
//
// The returned channel receives the task's result once and is then closed.
// Callers that don't care may ignore it.
//
// Example:
//
//	async.SafeGo(ctx, 10*time.Second, "store warm-up", func(ctx context.Context) error {
//	    return store.Ready(ctx)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	logger := observability.FromContext(parentCtx).WithField("task", taskName)

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		err := run(ctx, logger, taskName, fn)
		if err != nil {
			logger.WithError(err).Warn("Background task failed")
		}
		done <- err
	}()

	return done
}

// SafeGoNoError is like SafeGo for functions that don't return errors
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) <-chan error {
	return SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func run(ctx context.Context, logger *observability.Logger, taskName string, fn func(context.Context) error) (err error) {
	defer observability.RecoverPanicWithCallback(logger, taskName, func(interface{}) {
		err = ErrPanicked
	})
	return fn(ctx)
}
