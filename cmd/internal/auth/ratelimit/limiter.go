// Package ratelimit throttles failed admin logins with Redis fixed-window
// counters keyed by identifier and by client IP.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadadmin/cmd/identity"
	"leadadmin/cmd/security/token"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LimitedError carries how long the caller should wait.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e LimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e LimitedError) Unwrap() error { return ErrRateLimited }

// Limiter is consulted before credentials are checked.
type Limiter interface {
	// Check returns a LimitedError once either counter has reached the limit.
	Check(ctx context.Context, identifier, ip string) error
	// Fail counts one failed attempt.
	Fail(ctx context.Context, identifier, ip string) error
	// Reset forgets the identifier counter after a successful login.
	Reset(ctx context.Context, identifier string) error
}

// Config tunes the login window.
type Config struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	Window      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	KeyPrefix   string        `env:"LOGIN_KEY_PREFIX" envDefault:"leadadmin:login"`
}

// RedisLimiter implements Limiter over INCR + EXPIRE.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	cfg    Config
	keyMAC []byte
}

// NewRedisLimiter builds a limiter. Identifiers are hashed with keyMAC (or
// plain SHA-256 when empty) so usernames never appear in Redis keys.
func NewRedisLimiter(rdb redis.UniversalClient, cfg Config, keyMAC []byte) *RedisLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "leadadmin:login"
	}
	return &RedisLimiter{rdb: rdb, cfg: cfg, keyMAC: keyMAC}
}

func (l *RedisLimiter) Check(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		n, err := l.rdb.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if n < int64(l.cfg.MaxAttempts) {
			continue
		}
		ttl, err := l.rdb.PTTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = l.cfg.Window
		}
		return LimitedError{RetryAfter: ttl}
	}
	return nil
}

func (l *RedisLimiter) Fail(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		n, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if n == 1 {
			if err := l.rdb.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.rdb.Del(ctx, l.userKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *RedisLimiter) keys(identifier, ip string) []string {
	keys := []string{l.userKey(identifier)}
	if ip != "" {
		keys = append(keys, l.cfg.KeyPrefix+":ip:"+ip)
	}
	return keys
}

func (l *RedisLimiter) userKey(identifier string) string {
	return l.cfg.KeyPrefix + ":user:" + token.Digest(identity.NormalizeUsername(identifier), l.keyMAC)
}

// Noop never limits. It is used when no Redis URL is configured.
type Noop struct{}

func (Noop) Check(context.Context, string, string) error { return nil }
func (Noop) Fail(context.Context, string, string) error  { return nil }
func (Noop) Reset(context.Context, string) error         { return nil }
