// Package retry runs a failable operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// ErrInvalidAttempts is returned when MaxAttempts is below one. The operation is never called.
var ErrInvalidAttempts = errors.New("retry: max attempts must be at least 1")

// Backoff yields the wait before the next attempt. *backoff.Backoff from jpillora/backoff
// satisfies it.
type Backoff interface {
	Duration() time.Duration
}

// Options configures Do.
type Options struct {
	MaxAttempts int
	// Delay is the fixed wait between attempts, used when Backoff is nil.
	Delay   time.Duration
	Backoff Backoff
	// OnRetry observes every failed attempt that will be retried. It is not called for the
	// final failure.
	OnRetry func(attempt int, err error)
}

// Exponential returns a backoff that starts at min and doubles up to max.
func Exponential(min, max time.Duration) Backoff {
	return &backoff.Backoff{Min: min, Max: max, Factor: 2}
}

// PanicError carries a value recovered from a panicking operation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

// Do calls op up to opts.MaxAttempts times and returns the first success. When every attempt
// fails the error of the last attempt is returned unchanged. If ctx is cancelled while waiting
// between attempts, Do stops and returns the most recent attempt's error.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T
	if opts.MaxAttempts < 1 {
		return zero, ErrInvalidAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := call(ctx, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}
		if !wait(ctx, opts.delay()) {
			break
		}
	}
	return zero, lastErr
}

// call runs op, turning a panic into a *PanicError.
func call[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return op(ctx)
}

func (o Options) delay() time.Duration {
	if o.Backoff != nil {
		return o.Backoff.Duration()
	}
	return o.Delay
}

// wait sleeps for d and reports whether the context is still alive.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
