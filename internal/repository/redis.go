package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// NewRedisClient connects to the key-value store behind redisURL.
// An empty URL yields domain.ErrStoreNotConfigured.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, domain.ErrStoreNotConfigured
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.MaxRetries = 1
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return redis.NewClient(opts), nil
}

// connectionSignatures are the error fragments that identify an unreachable
// store as opposed to a command-level failure.
var connectionSignatures = []string{
	"connection refused",
	"i/o timeout",
	"connection reset",
	"broken pipe",
	"no such host",
	"redis: client is closed",
	"redis: connection pool timeout",
	"use of closed network connection",
	"EOF",
}

// IsConnectionError reports whether err means the store is unreachable.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, redis.ErrClosed) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, sig := range connectionSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// classify maps connection-level failures to domain.ErrStoreUnavailable so
// callers can tell them apart from other failures.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
