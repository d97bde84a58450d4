package auth

import (
	"context"
	"time"

	"service-template/internal/logger"

	"go.uber.org/zap"
)

// StartResetTokenSweep periodically deactivates expired password reset
// tokens. Housekeeping only: redemption re-checks expiry itself, so a missed
// sweep never makes a stale token redeemable.
func (s *Service) StartResetTokenSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Reset token sweep started",
		zap.Duration("interval", interval),
	)

	s.sweepExpiredResetTokens(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reset token sweep stopped")
			return
		case <-ticker.C:
			s.sweepExpiredResetTokens(ctx)
		}
	}
}

func (s *Service) sweepExpiredResetTokens(ctx context.Context) {
	deactivated, err := s.resets.DeactivateExpired(ctx, s.now())
	if err != nil {
		logger.Error("Failed to deactivate expired reset tokens", zap.Error(err))
		return
	}

	if deactivated > 0 {
		logger.Debug("Expired reset tokens deactivated",
			zap.Int64("count", deactivated),
		)
	}
}
