package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"esagent/internal/model"
)

// QueryCacheRepo is the durable vector cache store, one row per cached
// question. Nearest-neighbor lookup runs on the pgvector cosine distance
// operator; readers and writers coordinate through Postgres, nothing here
// blocks a concurrent lookup.
type QueryCacheRepo struct {
	db *sqlx.DB
}

func NewQueryCacheRepo(db *sqlx.DB) *QueryCacheRepo {
	return &QueryCacheRepo{db: db}
}

func (r *QueryCacheRepo) Lookup(ctx context.Context, modelName string, embedding []float32, threshold float32) (*model.CacheEntry, bool, error) {
	const query = `
		SELECT id, model_name, question, target_index, query, embedding, hit_count, ctime,
		       1 - (embedding <=> $1) AS score
		FROM query_cache
		WHERE model_name = $2
		ORDER BY embedding <=> $1 ASC, ctime DESC, id DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, pgvector.NewVector(embedding), modelName)
	var (
		entry model.CacheEntry
		vec   pgvector.Vector
		blob  []byte
		score float32
	)
	if err := row.Scan(&entry.ID, &entry.ModelName, &entry.Question, &entry.Index, &blob, &vec, &entry.HitCount, &entry.Ctime, &score); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	if score < threshold {
		return nil, false, nil
	}
	if err := json.Unmarshal(blob, &entry.Query); err != nil {
		return nil, false, err
	}
	entry.Embedding = vec.Slice()
	return &entry, true, nil
}

func (r *QueryCacheRepo) Insert(ctx context.Context, entry *model.CacheEntry) error {
	blob, err := json.Marshal(entry.Query)
	if err != nil {
		return err
	}
	if entry.Ctime == 0 {
		entry.Ctime = time.Now().Unix()
	}
	data := map[string]interface{}{
		"model_name":   entry.ModelName,
		"question":     entry.Question,
		"target_index": entry.Index,
		"query":        blob,
		"embedding":    pgvector.NewVector(entry.Embedding),
		"hit_count":    entry.HitCount,
		"ctime":        entry.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("query_cache", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *QueryCacheRepo) IncrHit(ctx context.Context, id int64) error {
	const query = `UPDATE query_cache SET hit_count = hit_count + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *QueryCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM query_cache WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListRecent returns the newest entries for inspection endpoints.
func (r *QueryCacheRepo) ListRecent(ctx context.Context, modelName string, limit int) ([]model.CacheEntry, error) {
	where := map[string]interface{}{
		"model_name": modelName,
		"_orderby":   "ctime desc",
		"_limit":     []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("query_cache",
		where,
		[]string{"id", "model_name", "question", "target_index", "query", "hit_count", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.CacheEntry
	for rows.Next() {
		var (
			entry model.CacheEntry
			blob  []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ModelName, &entry.Question, &entry.Index, &blob, &entry.HitCount, &entry.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &entry.Query); err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}
