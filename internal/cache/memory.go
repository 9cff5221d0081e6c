package cache

import (
	"context"
	"sync"
	"time"

	"esagent/internal/model"
)

// MemoryStore keeps entries in process memory behind an RWMutex. It loses
// state on restart; use the Postgres store when amortizing generation cost
// across runs matters.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []model.CacheEntry
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Lookup(ctx context.Context, modelName string, embedding []float32, threshold float32) (*model.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best      *model.CacheEntry
		bestScore float32
	)
	// Insertion order plus >= resolves exact-duplicate ties toward the
	// most recent entry.
	for i := range s.entries {
		entry := &s.entries[i]
		if entry.ModelName != modelName {
			continue
		}
		score := CosineSimilarity(embedding, entry.Embedding)
		if best == nil || score >= bestScore {
			best = entry
			bestScore = score
		}
	}
	if best == nil || bestScore < threshold {
		return nil, false, nil
	}
	clone := *best
	return &clone, true, nil
}

func (s *MemoryStore) Insert(ctx context.Context, entry *model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *entry
	stored.ID = s.nextID
	s.nextID++
	if stored.Ctime == 0 {
		stored.Ctime = time.Now().Unix()
	}
	s.entries = append(s.entries, stored)
	entry.ID = stored.ID
	return nil
}

func (s *MemoryStore) IncrHit(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].HitCount++
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var removed int64
	for _, entry := range s.entries {
		if entry.Ctime < cutoff {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return removed, nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
