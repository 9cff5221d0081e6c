package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"esagent/internal/cache"
)

// CacheCleanupJob prunes query cache entries past the configured age.
// Stale queries drift away from index mappings; letting them expire is
// cheaper than validating them against every mapping change.
type CacheCleanupJob struct {
	store      cache.Store
	maxAgeDays int
}

func NewCacheCleanupJob(store cache.Store, maxAgeDays int) *CacheCleanupJob {
	return &CacheCleanupJob{store: store, maxAgeDays: maxAgeDays}
}

func (j *CacheCleanupJob) Name() string {
	return "query_cache_cleanup"
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	removed, err := j.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("pruned query cache", zap.Int64("removed", removed))
	}
	return nil
}
