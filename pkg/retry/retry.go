package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"xhstoolbox/pkg/errors"
	"xhstoolbox/pkg/logger"
)

// Policy controls how an operation is retried. The zero value runs the
// operation once.
type Policy struct {
	// MaxAttempts counts the first try; values below 1 mean a single try
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf decides whether err is worth another attempt. Defaults to
	// DefaultRetryIf.
	RetryIf func(error) bool
	// OnRetry is called before sleeping for the next attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultRetryIf retries transport failures and 5xx answers
func DefaultRetryIf(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.IsTransport(err)
}

// Do runs op until it succeeds, fails permanently, runs out of attempts or
// ctx is done.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	_, err := DoWithResult(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoWithResult is Do for operations returning a value
func DoWithResult[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}
	log := logger.OrGlobal(p.Logger)

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("Operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return result, nil
		}

		if !retryIf(err) {
			return result, err
		}
		if attempt >= p.MaxAttempts {
			if p.MaxAttempts > 1 {
				return result, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
			}
			return result, err
		}

		delay := backoff.NextDelay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		log.WithError(err).WarnWithFields("Retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": p.MaxAttempts,
			"delay_ms":     delay.Milliseconds(),
		})

		if err := Wait(ctx, delay); err != nil {
			var zero T
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// Wait sleeps for d or until ctx is done
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
