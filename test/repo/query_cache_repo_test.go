package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"esagent/internal/model"
	"esagent/internal/repo"
	"esagent/test/testutil"
)

func setupRepo(t *testing.T) *repo.QueryCacheRepo {
	t.Helper()
	db, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)
	_, err := db.Exec("DELETE FROM query_cache")
	require.NoError(t, err)
	return repo.NewQueryCacheRepo(db)
}

func newEntry(question string, embedding []float32) *model.CacheEntry {
	return &model.CacheEntry{
		ModelName: "embed-1",
		Question:  question,
		Index:     "logs-app",
		Query: map[string]interface{}{
			"query": map[string]interface{}{"match": map[string]interface{}{"msg": question}},
		},
		Embedding: embedding,
	}
}

func TestQueryCacheRoundTrip(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, newEntry("how many errors today", []float32{1, 0, 0})))

	entry, ok, err := r.Lookup(ctx, "embed-1", []float32{1, 0, 0}, 0.9)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "how many errors today", entry.Question)
	require.Equal(t, "logs-app", entry.Index)
	require.Contains(t, entry.Query, "query")
	require.Equal(t, []float32{1, 0, 0}, entry.Embedding)
}

func TestQueryCacheThresholdAndModelScoping(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, newEntry("errors today", []float32{1, 0, 0})))

	// Orthogonal embedding misses.
	_, ok, err := r.Lookup(ctx, "embed-1", []float32{0, 1, 0}, 0.9)
	require.NoError(t, err)
	require.False(t, ok)

	// Different embedding model never matches.
	_, ok, err = r.Lookup(ctx, "embed-2", []float32{1, 0, 0}, 0.9)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestQueryCacheTieBreakMostRecent(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	older := newEntry("errors today", []float32{1, 0, 0})
	older.Ctime = time.Now().Unix() - 100
	newer := newEntry("errors today", []float32{1, 0, 0})
	newer.Ctime = time.Now().Unix()
	require.NoError(t, r.Insert(ctx, older))
	require.NoError(t, r.Insert(ctx, newer))

	entry, ok, err := r.Lookup(ctx, "embed-1", []float32{1, 0, 0}, 0.9)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newer.Ctime, entry.Ctime)
}

func TestQueryCacheIncrHit(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, newEntry("errors today", []float32{1, 0, 0})))
	entry, ok, err := r.Lookup(ctx, "embed-1", []float32{1, 0, 0}, 0.9)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.IncrHit(ctx, entry.ID))
	entry, ok, err = r.Lookup(ctx, "embed-1", []float32{1, 0, 0}, 0.9)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, entry.HitCount)
}

func TestQueryCacheDeleteBefore(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	old := newEntry("old", []float32{1, 0, 0})
	old.Ctime = 100
	recent := newEntry("recent", []float32{0, 1, 0})
	recent.Ctime = time.Now().Unix()
	require.NoError(t, r.Insert(ctx, old))
	require.NoError(t, r.Insert(ctx, recent))

	removed, err := r.DeleteBefore(ctx, 200)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	entries, err := r.ListRecent(ctx, "embed-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "recent", entries[0].Question)
}

func TestQueryCacheListRecent(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	for i, question := range []string{"first", "second", "third"} {
		entry := newEntry(question, []float32{float32(i), 1, 0})
		entry.Ctime = time.Now().Unix() + int64(i)
		require.NoError(t, r.Insert(ctx, entry))
	}

	entries, err := r.ListRecent(ctx, "embed-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "third", entries[0].Question)
	require.Equal(t, "second", entries[1].Question)
}
