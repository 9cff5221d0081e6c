package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"esagent/internal/cache"
	"esagent/internal/model"
)

func TestCacheCleanupJobRun(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	old := &model.CacheEntry{
		ModelName: "embed-1",
		Question:  "old",
		Index:     "logs-app",
		Embedding: []float32{1, 0},
		Ctime:     time.Now().Add(-40 * 24 * time.Hour).Unix(),
	}
	recent := &model.CacheEntry{
		ModelName: "embed-1",
		Question:  "recent",
		Index:     "logs-app",
		Embedding: []float32{0, 1},
		Ctime:     time.Now().Unix(),
	}
	require.NoError(t, store.Insert(ctx, old))
	require.NoError(t, store.Insert(ctx, recent))

	j := NewCacheCleanupJob(store, 30)
	require.Equal(t, "query_cache_cleanup", j.Name())
	require.NoError(t, j.Run(ctx))
	require.Equal(t, 1, store.Len())
}

func TestCacheCleanupJobNilStore(t *testing.T) {
	j := NewCacheCleanupJob(nil, 30)
	require.NoError(t, j.Run(context.Background()))
}

func TestCacheCleanupJobDefaultAge(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	entry := &model.CacheEntry{
		ModelName: "embed-1",
		Question:  "q",
		Index:     "logs-app",
		Embedding: []float32{1},
		Ctime:     time.Now().Add(-10 * 24 * time.Hour).Unix(),
	}
	require.NoError(t, store.Insert(ctx, entry))

	// Zero config falls back to 30 days; a 10-day-old entry survives.
	j := NewCacheCleanupJob(store, 0)
	require.NoError(t, j.Run(ctx))
	require.Equal(t, 1, store.Len())
}
