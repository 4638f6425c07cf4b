package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/task-sync/pkg/util/errorutil"
)

const loginAttemptsPrefix = "login:attempts:"

// LoginGuard throttles failed logins per username with a fixed Redis window.
// Redis failures fail open.
type LoginGuard struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginGuard builds a guard. A nil client or non-positive limit disables it.
func NewLoginGuard(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginGuard{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

func (g *LoginGuard) enabled() bool {
	return g != nil && g.client != nil && g.maxAttempts > 0 && g.window > 0
}

// Allow returns TOO_MANY_ATTEMPTS once username has used up its window.
func (g *LoginGuard) Allow(ctx context.Context, username string) error {
	if !g.enabled() {
		return nil
	}
	count, err := g.client.Get(ctx, attemptsKey(username)).Int()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		g.logger.Warn("login guard unavailable", zap.Error(err))
		return nil
	}
	if count >= g.maxAttempts {
		return apperrors.NewTooManyAttempts()
	}
	return nil
}

// RecordFailure counts a failed attempt. The counter and its expiry are set in
// one transaction; NX keeps the window fixed from the first failure.
func (g *LoginGuard) RecordFailure(ctx context.Context, username string) {
	if !g.enabled() {
		return
	}
	key := attemptsKey(username)
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, g.window)
		return nil
	})
	if err != nil {
		g.logger.Warn("login guard record failed", zap.Error(err))
	}
}

// Reset clears the counter after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, username string) {
	if !g.enabled() {
		return
	}
	if err := g.client.Del(ctx, attemptsKey(username)).Err(); err != nil {
		g.logger.Warn("login guard reset failed", zap.Error(err))
	}
}

func attemptsKey(username string) string {
	return loginAttemptsPrefix + strings.ToLower(username)
}
