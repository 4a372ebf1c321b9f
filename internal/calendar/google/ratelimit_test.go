package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowHonorsBurst(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestRateLimiter_BackoffBlocksAllow(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 100})
	limiter.RecordRateLimitError(60)

	assert.False(t, limiter.Allow())
}

func TestRateLimiter_WaitRespectsContextDuringBackoff(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 100})
	limiter.RecordRateLimitError(60)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_ZeroConfigFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(RateLimitConfig{})

	require.NoError(t, limiter.Wait(context.Background()))
}
