package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// LoginThrottle caps failed login attempts per email within a window,
// backed by a Redis counter. A nil throttle or nil client disables
// throttling, so the service degrades gracefully without Redis.
type LoginThrottle struct {
	client *redis.Client
	logger *zap.Logger
	max    int
	window time.Duration
}

// NewLoginThrottle constructs the throttle.
func NewLoginThrottle(client *redis.Client, logger *zap.Logger, maxAttempts int, window time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{client: client, logger: logger, max: maxAttempts, window: window}
}

func throttleKey(email string) string {
	return "login_attempts:" + email
}

// Check records an attempt and rejects when the cap is exceeded.
func (t *LoginThrottle) Check(ctx context.Context, email string) error {
	if t == nil || t.client == nil {
		return nil
	}
	key := throttleKey(email)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		// Redis being down should never lock everyone out.
		t.logger.Warn("login throttle unavailable", zap.Error(err))
		return nil
	}
	if count == 1 {
		t.client.Expire(ctx, key, t.window)
	}
	if count > int64(t.max) {
		return apperrors.NewUnauthenticated("too many login attempts, try again later")
	}
	return nil
}

// Reset clears the attempt counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	if err := t.client.Del(ctx, throttleKey(email)).Err(); err != nil {
		t.logger.Warn("login throttle reset failed", zap.Error(err))
	}
}
