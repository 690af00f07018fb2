package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func rateLimitKey(accountID string) string { return "chat:ratelimit:" + accountID }

// incrWindow increments the counter and opens the window in one server-side
// step. A counter left without a TTL gets one on its next increment.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter is a fixed-window per-account counter. The first request after
// the key expires opens a new window.
type RateLimiter struct {
	rdb    redis.UniversalClient
	limit  int64
	window time.Duration
}

// NewRateLimiter allows limit requests per window.
func NewRateLimiter(rdb redis.UniversalClient, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{rdb: rdb, limit: int64(limit), window: window}
}

// Allow consumes one slot for accountID. A rejected request still counts.
func (l *RateLimiter) Allow(ctx context.Context, accountID string) (bool, error) {
	count, err := incrWindow.Run(ctx, l.rdb, []string{rateLimitKey(accountID)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, classify("rate limit", err)
	}
	return count <= l.limit, nil
}
