package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
)

// RunPurgeSweeper deletes expired trash on a fixed interval until ctx is
// cancelled. It is a backstop for the lazy purge ListActive performs; both
// paths share the same idempotent PurgeExpired, so overlapping runs are
// harmless. onPurged, if non-nil, is called with the count of each sweep.
func RunPurgeSweeper(ctx context.Context, db *sql.DB, interval, retention time.Duration, logger zerolog.Logger, onPurged func(int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("purge sweeper stopped")
			return
		case <-ticker.C:
			purged, err := PurgeExpired(ctx, db, retention)
			if err != nil {
				logger.Error().Err(err).Msg("trash purge sweep failed")
				continue
			}
			if purged > 0 {
				logger.Info().Int64("purged", purged).Msg("purged expired products")
			}
			if onPurged != nil {
				onPurged(purged)
			}
		}
	}
}
