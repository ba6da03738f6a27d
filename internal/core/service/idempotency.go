package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

// idempotencyGuard claims a request id before fn runs and frees it again if
// fn fails, so only a successful request blocks its repeats.
type idempotencyGuard struct {
	cache  port.CacheRepository
	logger *slog.Logger
}

func (g idempotencyGuard) run(ctx context.Context, op string, borrowerID int64, requestID string, fn func() error) error {
	if g.cache == nil || requestID == "" {
		return fn()
	}

	key := fmt.Sprintf("%s:%d:%s", op, borrowerID, requestID)
	token := uuid.NewString()

	ok, err := g.cache.SetIdempotency(ctx, key, token)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateRequest
	}

	if err := fn(); err != nil {
		if releaseErr := g.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key, token); releaseErr != nil {
			g.logger.WarnContext(ctx, "release idempotency key failed",
				slog.String("key", key),
				slog.Any("error", releaseErr),
			)
		}
		return err
	}
	return nil
}
