package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/custody-service/internal/repository"
)

// StartTokenReaper periodically deletes expired provisioning tokens. Expired
// tokens are already unredeemable; the reaper only keeps the table small.
// Runs until ctx is cancelled.
func StartTokenReaper(ctx context.Context, tokens repository.ProvisionTokenRepository, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := tokens.DeleteExpired(ctx, time.Now())
				if err != nil {
					logger.Warn("token reap failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Info("expired provisioning tokens reaped", zap.Int64("count", removed))
				}
			}
		}
	}()
}
