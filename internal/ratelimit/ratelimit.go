// Package ratelimit implements fixed-window request counters per
// (category, key) backed by Redis, plus the login lockout latch.
//
// Built around an INCR counter whose expiry is set on the first hit of
// each window, generalized
// from a single in-process token bucket to a distributed counter so
// limits hold across replicas.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vacationplanner/internal/clock"
	"vacationplanner/internal/config"
	"vacationplanner/internal/shared/apperror"
)

// Category names a rate-limit bucket.
type Category string

const (
	CategoryLogin                Category = "login"
	CategoryPasswordResetRequest Category = "password_reset_request"
	CategoryPasswordResetConfirm Category = "password_reset_confirm"
	CategoryRefresh              Category = "refresh"
	CategoryVacationWrite        Category = "vacation_write"
	CategoryVacationRead         Category = "vacation_read"
	CategoryExport               Category = "export"
	CategoryAPIDefault           Category = "api_default"
)

// Gate enforces per-category request limits and the login lockout latch.
type Gate struct {
	rdb    *redis.Client
	clock  clock.Clock
	rules  map[Category]config.RateLimitRule
	logger *zap.Logger

	lockoutThreshold int
	lockoutWindow    time.Duration
	lockoutDuration  time.Duration

	fallbackMu       sync.Mutex
	fallbackLimiters map[string]*rate.Limiter
}

func New(rdb *redis.Client, c clock.Clock, table config.RateLimitTable, logger ...*zap.Logger) *Gate {
	l := zap.L().Named("ratelimit.gate")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ratelimit.gate")
	}
	return &Gate{
		rdb:   rdb,
		clock: c,
		rules: map[Category]config.RateLimitRule{
			CategoryLogin:                table.Login,
			CategoryPasswordResetRequest: table.PasswordResetRequest,
			CategoryPasswordResetConfirm: table.PasswordResetConfirm,
			CategoryRefresh:              table.Refresh,
			CategoryVacationWrite:        table.VacationWrite,
			CategoryVacationRead:         table.VacationRead,
			CategoryExport:               table.Export,
			CategoryAPIDefault:           table.APIDefault,
		},
		logger:           l,
		lockoutThreshold: 5,
		lockoutWindow:    15 * time.Minute,
		lockoutDuration:  15 * time.Minute,
		fallbackLimiters: make(map[string]*rate.Limiter),
	}
}

// fallbackLimiter returns the in-process token bucket for (category, key),
// creating it on first use. Sized off the same Limit/Window rule the Redis
// counter enforces, so the degraded mode is a reasonable approximation
// rather than a wide-open gate.
func (g *Gate) fallbackLimiter(category Category, key string) *rate.Limiter {
	g.fallbackMu.Lock()
	defer g.fallbackMu.Unlock()

	fk := string(category) + ":" + key
	lim, ok := g.fallbackLimiters[fk]
	if !ok {
		rule := g.rules[category]
		lim = rate.NewLimiter(rate.Limit(float64(rule.Limit)/rule.Window.Seconds()), rule.Limit)
		g.fallbackLimiters[fk] = lim
	}
	return lim
}

// Allow increments the counter for (category, key) and fails with
// ErrRateLimited carrying a retry-after hint once the category's limit
// is exceeded within its window. key is usually a user ID or client IP.
// If Redis is unreachable, Allow degrades to an in-process token bucket
// per (category, key) rather than letting every request through.
func (g *Gate) Allow(ctx context.Context, category Category, key string) error {
	rule, ok := g.rules[category]
	if !ok {
		return fmt.Errorf("ratelimit: unknown category %q", category)
	}

	redisKey := fmt.Sprintf("ratelimit:%s:%s", category, key)

	count, err := g.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		g.logger.Warn("redis unavailable for rate limiting, using in-process fallback",
			zap.String("category", string(category)), zap.Error(err))
		if !g.fallbackLimiter(category, key).Allow() {
			return apperror.RetryAfter(apperror.ErrRateLimited, int(rule.Window.Seconds()))
		}
		return nil
	}
	if count == 1 {
		if err := g.rdb.Expire(ctx, redisKey, rule.Window).Err(); err != nil {
			return err
		}
	}

	if int(count) > rule.Limit {
		ttl, err := g.rdb.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = rule.Window
		}
		return apperror.RetryAfter(apperror.ErrRateLimited, int(ttl.Seconds()))
	}
	return nil
}

// --- Login lockout latch: N consecutive failures locks the account for
// a cooldown window, independent of the login rate-limit category. ---

func lockoutFailKey(userID string) string { return "lockout:fail:" + userID }
func lockoutLatchKey(userID string) string { return "lockout:latch:" + userID }

// CheckLockout fails with ErrLoginLocked if the account is currently
// latched. Call this before attempting password verification.
func (g *Gate) CheckLockout(ctx context.Context, userID string) error {
	ttl, err := g.rdb.TTL(ctx, lockoutLatchKey(userID)).Result()
	if err != nil {
		return err
	}
	if ttl > 0 {
		return apperror.RetryAfter(apperror.ErrLoginLocked, int(ttl.Seconds()))
	}
	return nil
}

// RecordFailure increments the consecutive-failure counter and latches
// the account once the threshold is reached within the failure window.
func (g *Gate) RecordFailure(ctx context.Context, userID string) error {
	key := lockoutFailKey(userID)
	count, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		if err := g.rdb.Expire(ctx, key, g.lockoutWindow).Err(); err != nil {
			return err
		}
	}
	if int(count) >= g.lockoutThreshold {
		if err := g.rdb.Set(ctx, lockoutLatchKey(userID), "1", g.lockoutDuration).Err(); err != nil {
			return err
		}
		_ = g.rdb.Del(ctx, key).Err()
	}
	return nil
}

// ClearFailures resets the consecutive-failure counter after a
// successful login.
func (g *Gate) ClearFailures(ctx context.Context, userID string) error {
	return g.rdb.Del(ctx, lockoutFailKey(userID)).Err()
}
