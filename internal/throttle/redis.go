// Package throttle limits how often account emails can be requested per address.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Actions throttled per email address.
const (
	ActionPasswordReset      = "reset"
	ActionVerificationResend = "verify"
)

// EmailLimiter throttles emails sent to a single address. Allow records one request
// for the action and reports whether it may proceed.
type EmailLimiter interface {
	Allow(ctx context.Context, action, email string) bool
}

var _ EmailLimiter = (*RedisLimiter)(nil)

// RedisLimiter counts requests per action and email in fixed windows shared by all
// instances. Redis failures are logged and the request is allowed.
type RedisLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	scope  string
	logger *slog.Logger
}

// NewRedisLimiter allows limit requests per window for each action and email.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, scope string, logger *slog.Logger) *RedisLimiter {
	if scope == "" {
		scope = "onboarding"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		redis:  client,
		limit:  int64(limit),
		window: window,
		scope:  scope,
		logger: logger,
	}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (l *RedisLimiter) key(action, email string) string {
	return l.scope + ":email:" + action + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Allow records one request and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, action, email string) bool {
	if l == nil || l.redis == nil || l.limit <= 0 {
		return true
	}

	key := l.key(action, email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("email throttle unavailable", "error", err, "action", action)
		return true
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("failed to set email throttle window", "error", err, "action", action)
		}
	}
	return count <= l.limit
}

// Reset clears the counter for an action and email.
func (l *RedisLimiter) Reset(ctx context.Context, action, email string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	return l.redis.Del(ctx, l.key(action, email)).Err()
}
