package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xhstoolbox/pkg/errors"
	"xhstoolbox/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.25,
	}
	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.True(t, DefaultRetryIf(errors.New(errors.ErrorTypeNetwork, 0, "connection reset")))
	assert.True(t, DefaultRetryIf(errors.New(errors.ErrorTypeServerError, 502, "bad gateway")))
	assert.False(t, DefaultRetryIf(errors.New(errors.ErrorTypeNotFound, 404, "gone")))
	assert.False(t, DefaultRetryIf(errors.New(errors.ErrorTypeBackend, 0, "blocked")))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(stderrors.New("plain")))
}

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		Backoff:     ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	got, err := DoWithResult(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New(errors.ErrorTypeNetwork, 0, "reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	cause := errors.New(errors.ErrorTypeServerError, 503, "unavailable")
	err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		calls++
		return cause
	})
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gave up after 2 attempts")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	cause := errors.New(errors.ErrorTypeAuth, 401, "login required")
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		return cause
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, cause, err)
}

func TestZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	cause := errors.New(errors.ErrorTypeNetwork, 0, "reset")
	err := Do(context.Background(), Policy{Logger: logger.NewNopLogger()}, func(ctx context.Context) error {
		calls++
		return cause
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, cause, err)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 5,
		Backoff:     ConstantBackoff{Delay: time.Hour},
		OnRetry:     func(int, error, time.Duration) { cancel() },
		Logger:      logger.NewNopLogger(),
	}

	err := Do(ctx, p, func(ctx context.Context) error {
		return errors.New(errors.ErrorTypeNetwork, 0, "reset")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
