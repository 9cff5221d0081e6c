package cache

import (
	"context"
	"math"

	"esagent/internal/model"
)

// Store is the capability interface of the semantic query cache. Any
// similarity-search backend can sit behind it; lookups must be safe to
// run concurrently with inserts, and a lookup that narrowly misses an
// in-flight insert is an accepted race.
type Store interface {
	// Lookup returns the stored entry nearest to embedding, provided its
	// cosine similarity meets threshold. Entries from other embedding
	// models are never returned.
	Lookup(ctx context.Context, modelName string, embedding []float32, threshold float32) (*model.CacheEntry, bool, error)
	// Insert appends an entry. Exact-duplicate embeddings are allowed;
	// lookup resolves ties toward the most recent insert.
	Insert(ctx context.Context, entry *model.CacheEntry) error
	// IncrHit bumps the hit counter of an entry, best effort.
	IncrHit(ctx context.Context, id int64) error
	// DeleteBefore prunes entries created before cutoff (unix seconds).
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// CosineSimilarity is the similarity metric shared by every store
// implementation.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
