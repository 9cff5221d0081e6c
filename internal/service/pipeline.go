package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"esagent/internal/cache"
	"esagent/internal/model"
	appErr "esagent/internal/pkg/errors"
	"esagent/internal/query"
)

// Pipeline states, in resolution order. ERROR is reachable from every
// state and terminal for the run.
const (
	StateRoute       = "ROUTE"
	StateCacheLookup = "CACHE_LOOKUP"
	StateGenerate    = "GENERATE"
	StateValidate    = "VALIDATE"
	StateExecute     = "EXECUTE"
	StateSynthesize  = "SYNTHESIZE"
	StateDone        = "DONE"
	StateError       = "ERROR"
)

const embedTaskType = "RETRIEVAL_QUERY"

// LLM is the language-model surface the pipeline consumes.
type LLM interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	RouteDataQuery(ctx context.Context, question string) (bool, error)
	GenerateQuery(ctx context.Context, question string, schema *model.SchemaContext) (*model.StructuredQuery, error)
	Synthesize(ctx context.Context, question string, result *model.ExecutionResult) (string, error)
	EmbeddingModelName() string
	MaxInputChars() int
}

// Executor runs a validated query against the data store.
type Executor interface {
	Search(ctx context.Context, q *model.StructuredQuery) (*model.ExecutionResult, error)
}

// SchemaProvider supplies the index/field context for query generation.
type SchemaProvider interface {
	SchemaContext(ctx context.Context) (*model.SchemaContext, error)
}

// Answer is the caller-facing outcome of a resolved question.
type Answer struct {
	Text    string        `json:"text"`
	Cached  bool          `json:"cached"`
	Index   string        `json:"index,omitempty"`
	Elapsed time.Duration `json:"-"`
}

// Pipeline sequences one question through the resolution state machine.
// Distinct runs are independent; the cache store is the only shared
// state, and no lock is held across an external call.
type Pipeline struct {
	llm       LLM
	store     cache.Store
	executor  Executor
	schemas   SchemaProvider
	threshold float32
}

func NewPipeline(llm LLM, store cache.Store, executor Executor, schemas SchemaProvider, threshold float32) *Pipeline {
	return &Pipeline{
		llm:       llm,
		store:     store,
		executor:  executor,
		schemas:   schemas,
		threshold: threshold,
	}
}

// Resolve answers one natural-language question. It returns either a
// synthesized answer or a StageError naming the failing state; a rejected
// or failed query is never written to the cache.
func (p *Pipeline) Resolve(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrInvalid
	}
	if max := p.llm.MaxInputChars(); max > 0 && len(question) > max {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("question", truncate(question, 120)))
	start := time.Now()

	needsData, err := p.llm.RouteDataQuery(ctx, question)
	if err != nil {
		return nil, appErr.NewStageError(StateRoute, appErr.ErrGenerationFailed, "routing failed", err)
	}
	if !needsData {
		logger.Debug("question routed to general path")
		return p.synthesize(ctx, question, nil, false, "", start)
	}

	embedding, err := p.llm.Embed(ctx, question, embedTaskType)
	if err != nil {
		return nil, appErr.NewStageError(StateCacheLookup, appErr.ErrEmbeddingUnavailable, "embedding failed", err)
	}
	modelName := p.llm.EmbeddingModelName()

	var (
		q      *model.StructuredQuery
		cached *model.CacheEntry
	)
	entry, hit, err := p.store.Lookup(ctx, modelName, embedding, p.threshold)
	if err != nil {
		// A broken cache degrades to a miss; it must not fail the run.
		logger.Warn("cache lookup failed", zap.Error(err))
	}
	if hit {
		q = &model.StructuredQuery{Index: entry.Index, Body: entry.Query}
		cached = entry
		logger.Info("cache hit", zap.String("index", entry.Index), zap.Int64("entry_id", entry.ID))
	} else {
		schema, err := p.schemas.SchemaContext(ctx)
		if err != nil {
			return nil, appErr.NewStageError(StateGenerate, appErr.ErrGenerationFailed, "schema discovery failed", err)
		}
		q, err = p.llm.GenerateQuery(ctx, question, schema)
		if err != nil {
			return nil, appErr.NewStageError(StateGenerate, appErr.ErrGenerationFailed, "query generation failed", err)
		}
		logger.Info("query generated", zap.String("index", q.Index))
	}

	// Re-validation runs on the hit path too: a cached entry predates any
	// rule change, and defense in depth is cheap here.
	kind, err := query.Validate(q)
	if err != nil {
		logger.Warn("query rejected", zap.String("kind", string(kind)), zap.Error(err))
		return nil, appErr.NewStageError(StateValidate, appErr.ErrValidationRejected, err.Error(), err)
	}

	if cached == nil {
		insert := &model.CacheEntry{
			ModelName: modelName,
			Question:  question,
			Index:     q.Index,
			Query:     q.Body,
			Embedding: embedding,
		}
		if err := p.store.Insert(ctx, insert); err != nil {
			logger.Warn("cache insert failed", zap.Error(err))
		}
	} else if err := p.store.IncrHit(ctx, cached.ID); err != nil {
		logger.Warn("cache hit count update failed", zap.Error(err))
	}

	result, err := p.executor.Search(ctx, q)
	if err != nil {
		if errors.Is(err, appErr.ErrInvariantViolation) {
			return nil, appErr.NewStageError(StateExecute, appErr.ErrInvariantViolation, "unsafe query reached executor", err)
		}
		return nil, appErr.NewStageError(StateExecute, appErr.ErrExecutionFailed, "search failed", err)
	}
	logger.Debug("query executed", zap.Int64("total_hits", result.TotalHits), zap.Int64("took_ms", result.TookMs))

	return p.synthesize(ctx, question, result, cached != nil, q.Index, start)
}

func (p *Pipeline) synthesize(ctx context.Context, question string, result *model.ExecutionResult, fromCache bool, index string, start time.Time) (*Answer, error) {
	text, err := p.llm.Synthesize(ctx, question, result)
	if err != nil {
		return nil, appErr.NewStageError(StateSynthesize, appErr.ErrSynthesisFailed, "synthesis failed", err)
	}
	return &Answer{
		Text:    text,
		Cached:  fromCache,
		Index:   index,
		Elapsed: time.Since(start),
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
