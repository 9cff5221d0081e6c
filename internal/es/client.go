package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"esagent/internal/config"
	"esagent/internal/model"
	appErr "esagent/internal/pkg/errors"
	"esagent/internal/query"
)

// Client executes validated read/aggregate queries against the cluster
// and discovers index schemas. It never touches a write endpoint.
type Client struct {
	es            *elasticsearch.Client
	timeout       time.Duration
	maxResultDocs int
}

func NewClient(cfg config.ESConfig) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	}
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("init elasticsearch client: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxDocs := cfg.MaxResultDocs
	if maxDocs <= 0 {
		maxDocs = 100
	}
	return &Client{es: es, timeout: timeout, maxResultDocs: maxDocs}, nil
}

type searchResponse struct {
	Took     int64 `json:"took"`
	TimedOut bool  `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			ID     string                 `json:"_id"`
			Score  *float64               `json:"_score"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]interface{} `json:"aggregations"`
}

// Search runs a structured query against its target index. The query is
// re-validated here regardless of what the caller did: an unsafe query at
// this layer is an invariant violation, logged and refused, never
// executed.
func (c *Client) Search(ctx context.Context, q *model.StructuredQuery) (*model.ExecutionResult, error) {
	if kind, err := query.Validate(q); err != nil {
		index := ""
		if q != nil {
			index = q.Index
		}
		logutil.GetLogger(ctx).Error("unsafe query reached executor",
			zap.String("index", index),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: unsafe query reached executor", appErr.ErrInvariantViolation)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(q.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", appErr.ErrExecutionFailed, err)
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(q.Index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: search timed out after %s", appErr.ErrExecutionFailed, c.timeout)
		}
		return nil, fmt.Errorf("%w: %v", appErr.ErrExecutionFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("%w: %s: %s", appErr.ErrExecutionFailed, res.Status(), bytes.TrimSpace(data))
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", appErr.ErrExecutionFailed, err)
	}
	if len(out.Hits.Hits) > c.maxResultDocs {
		return nil, fmt.Errorf("%w: %d documents exceed cap %d", appErr.ErrResultTooLarge, len(out.Hits.Hits), c.maxResultDocs)
	}

	result := &model.ExecutionResult{
		TotalHits:    out.Hits.Total.Value,
		TookMs:       out.Took,
		TimedOut:     out.TimedOut,
		Aggregations: out.Aggregations,
	}
	if out.Hits.MaxScore != nil {
		result.MaxScore = *out.Hits.MaxScore
	}
	for _, hit := range out.Hits.Hits {
		doc := model.Document{ID: hit.ID, Source: hit.Source}
		if hit.Score != nil {
			doc.Score = *hit.Score
		}
		result.Documents = append(result.Documents, doc)
	}
	return result, nil
}

type catIndexRow struct {
	Index     string `json:"index"`
	DocsCount string `json:"docs.count"`
	StoreSize string `json:"store.size"`
}

// IndexInfo is one row of the cluster's index catalog.
type IndexInfo struct {
	Name      string
	DocCount  string
	StoreSize string
}

func (c *Client) ListIndices(ctx context.Context) ([]IndexInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithH("index", "docs.count", "store.size"),
	)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("list indices: %s: %s", res.Status(), bytes.TrimSpace(data))
	}
	var rows []catIndexRow
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("list indices: decode: %w", err)
	}
	infos := make([]IndexInfo, 0, len(rows))
	for _, row := range rows {
		if row.Index == "" {
			continue
		}
		infos = append(infos, IndexInfo{Name: row.Index, DocCount: row.DocsCount, StoreSize: row.StoreSize})
	}
	return infos, nil
}

// GetSchema fetches and flattens the mapping of one index.
func (c *Client) GetSchema(ctx context.Context, index string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, fmt.Errorf("get mapping for %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get mapping for %s: %s: %s", index, res.Status(), bytes.TrimSpace(data))
	}
	var raw map[string]struct {
		Mappings struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("get mapping for %s: decode: %w", index, err)
	}
	entry, ok := raw[index]
	if !ok {
		// Aliased index names come back under the concrete index.
		for _, v := range raw {
			entry = v
			break
		}
	}
	return SimplifyMapping(entry.Mappings.Properties), nil
}
