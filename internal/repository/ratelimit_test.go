package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, 30, time.Minute)

	for i := 1; i <= 30; i++ {
		allowed, err := limiter.Allow(ctx, "acc-1")
		require.NoError(t, err)
		require.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := limiter.Allow(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, allowed, "31st request must be rejected")

	// Rejections still consume slots.
	count, err := mr.Get(rateLimitKey("acc-1"))
	require.NoError(t, err)
	assert.Equal(t, "31", count)

	// Other accounts have their own window.
	allowed, err = limiter.Allow(ctx, "acc-2")
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(61 * time.Second)

	allowed, err = limiter.Allow(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, allowed, "window should reset after expiry")
}

func TestRateLimiterWindowAnchoredToFirstRequest(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, 2, time.Minute)

	_, err := limiter.Allow(ctx, "acc-1")
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)
	_, err = limiter.Allow(ctx, "acc-1")
	require.NoError(t, err)

	// Later increments must not extend the window.
	assert.Equal(t, 20*time.Second, mr.TTL(rateLimitKey("acc-1")))
}

// failFirst fails the first command whose name starts with prefix.
type failFirst struct {
	prefix string
	failed bool
}

func (h *failFirst) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *failFirst) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if !h.failed && strings.HasPrefix(cmd.Name(), h.prefix) {
			h.failed = true
			err := errors.New("i/o timeout")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (h *failFirst) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRateLimiterRecoversFromFailedCall(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	rdb.AddHook(&failFirst{prefix: "eval"})
	limiter := NewRateLimiter(rdb, 30, time.Minute)

	_, err := limiter.Allow(ctx, "acc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	for i := 0; i < 40; i++ {
		_, err := limiter.Allow(ctx, "acc-1")
		require.NoError(t, err)
	}
	assert.Greater(t, mr.TTL(rateLimitKey("acc-1")), time.Duration(0))

	mr.FastForward(61 * time.Second)

	allowed, err := limiter.Allow(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, allowed, "account must unlock once the window passes")
}

func TestRateLimiterRepairsCounterWithoutTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, 30, time.Minute)

	require.NoError(t, mr.Set(rateLimitKey("acc-1"), "45"))

	allowed, err := limiter.Allow(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL(rateLimitKey("acc-1")))

	mr.FastForward(61 * time.Second)

	allowed, err = limiter.Allow(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
