package chain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
)

var errNonRetryable = errors.New("non-retryable error")

func fastRetry() chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()
	attempts := 0
	result, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, attempts)
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	t.Parallel()
	attempts := 0
	result, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, chain.ErrRateLimited
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()
	attempts := 0
	_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "", errNonRetryable
	})

	require.ErrorIs(t, err, errNonRetryable)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()
	attempts := 0
	_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "", chain.WrapRetryable(errNonRetryable)
	})

	require.ErrorIs(t, err, chain.ErrRetryable)
	require.ErrorIs(t, err, errNonRetryable)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestRetry_ContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := chain.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second}

	_, err := chain.RetryWithConfig(ctx, cfg, func(context.Context) (string, error) {
		cancel()
		return "", chain.ErrTimeout
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	assert.False(t, chain.IsRetryable(nil))
	assert.False(t, chain.IsRetryable(errNonRetryable))
	assert.True(t, chain.IsRetryable(chain.ErrTimeout))
	assert.True(t, chain.IsRetryable(chain.WrapRetryable(errNonRetryable)))
	assert.NoError(t, chain.WrapRetryable(nil))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3*time.Second, chain.ParseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), chain.ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), chain.ParseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), chain.ParseRetryAfter("-2"))
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()
	rl := chain.NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("a.example"))
	assert.True(t, rl.Allow("a.example"))
	assert.False(t, rl.Allow("a.example"))
	assert.True(t, rl.Allow("b.example"), "buckets are per host")

	unlimited := chain.NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow("x"))
	}

	var nilLimiter *chain.RateLimiter
	require.NoError(t, nilLimiter.Wait(context.Background(), "x"))
}
