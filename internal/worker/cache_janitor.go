package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/tradedock/pkg/cache"
)

// CacheJanitor periodically purges expired entries from the in-process
// cache so long-lived processes don't accumulate dead keys.
type CacheJanitor struct {
	cache    *cache.Cache
	logger   *slog.Logger
	interval time.Duration
}

func NewCacheJanitor(c *cache.Cache, logger *slog.Logger, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheJanitor{cache: c, logger: logger, interval: interval}
}

// Start runs the purge loop until the context is cancelled
func (j *CacheJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", slog.Duration("interval", j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			if purged := j.cache.PurgeExpired(); purged > 0 {
				j.logger.Debug("purged expired cache entries",
					slog.Int("purged", purged),
					slog.Int("remaining", j.cache.Len()),
				)
			}
		}
	}
}
