package jobs

import (
	"context"
	"time"

	"support_directory_go/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunSessionCleanup deletes expired bearer sessions every interval until
// ctx is cancelled
func RunSessionCleanup(ctx context.Context, database *gorm.DB, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			CleanupSessions(ctx, database, logger)
		}
	}
}

// CleanupSessions runs one cleanup pass
func CleanupSessions(ctx context.Context, database *gorm.DB, logger *zap.Logger) {
	removed, err := services.CleanupExpiredSessions(database.WithContext(ctx))
	if err != nil {
		logger.Error("Error cleaning up expired sessions", zap.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("Cleaned up expired sessions", zap.Int64("count", removed))
	}
}
