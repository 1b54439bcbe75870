package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
)

// WithTimeout runs fn under a deadline of timeout. An overrun wraps both
// apperrors.ErrTimeout and context.DeadlineExceeded and stays retryable;
// cancellation of the parent ctx is returned as Permanent so Retry stops.
// timeout <= 0 runs fn without a deadline.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	var err error
	select {
	case err = <-done:
		if err == nil {
			return nil
		}
	case <-timeoutCtx.Done():
	}
	switch {
	case ctx.Err() != nil:
		return Permanent(fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err()))
	case timeoutCtx.Err() != nil:
		return fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
	}
	return err
}
