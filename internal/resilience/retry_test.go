package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(5), func(_ context.Context) error {
		calls++
		return errors.New("http 404")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, fastRetry(5), func(_ context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("temporary"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomShouldRetryAndOnRetry(t *testing.T) {
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(error) bool { return true }
	var retries []int
	cfg.OnRetry = func(attempt int, _ error) { retries = append(retries, attempt) }

	err := Do(context.Background(), cfg, func(_ context.Context) error { return errors.New("plain") })
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoVal(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewTransientError(errors.New("temporary"), 429)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	val, err = DoVal(context.Background(), fastRetry(1), func(_ context.Context) (int, error) {
		return 7, errors.New("permanent")
	})
	require.Error(t, err)
	assert.Zero(t, val)
}

func TestFromMaxRetries(t *testing.T) {
	assert.Equal(t, 4, FromMaxRetries(3).MaxAttempts)
	assert.Equal(t, 1, FromMaxRetries(0).MaxAttempts)
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, FromMaxRetries(-1).MaxAttempts)
}

func TestComputeBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, computeBackoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, computeBackoff(1, cfg))
	assert.Equal(t, 400*time.Millisecond, computeBackoff(2, cfg))
	assert.Equal(t, time.Second, computeBackoff(10, cfg))

	cfg.JitterFraction = 0.5
	for range 20 {
		d := computeBackoff(1, cfg)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetryLogger(t *testing.T) {
	fn := RetryLogger("example.com", "download")
	assert.NotPanics(t, func() { fn(1, errors.New("boom")) })
}
