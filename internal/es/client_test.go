package es

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"esagent/internal/config"
	"esagent/internal/model"
	appErr "esagent/internal/pkg/errors"
)

// newTestCluster fakes just enough of the search API for the client. The
// product header is required or the official client refuses the server.
func newTestCluster(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ESConfig{
		Addresses:      []string{srv.URL},
		TimeoutSeconds: 5,
		MaxResultDocs:  3,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func readQuery() *model.StructuredQuery {
	return &model.StructuredQuery{
		Index: "logs-app",
		Body: map[string]interface{}{
			"query": map[string]interface{}{"term": map[string]interface{}{"level": "ERROR"}},
			"size":  3,
		},
	}
}

func searchBody(hits int) map[string]interface{} {
	docs := make([]map[string]interface{}, 0, hits)
	for i := 0; i < hits; i++ {
		docs = append(docs, map[string]interface{}{
			"_id":     "doc",
			"_score":  1.5,
			"_source": map[string]interface{}{"level": "ERROR"},
		})
	}
	return map[string]interface{}{
		"took":      7,
		"timed_out": false,
		"hits": map[string]interface{}{
			"total":     map[string]interface{}{"value": hits},
			"max_score": 1.5,
			"hits":      docs,
		},
	}
}

func TestSearch(t *testing.T) {
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/logs-app/_search", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body, "query")
		writeJSON(w, searchBody(2))
	})

	result, err := client.Search(context.Background(), readQuery())
	require.NoError(t, err)
	require.EqualValues(t, 2, result.TotalHits)
	require.EqualValues(t, 7, result.TookMs)
	require.InDelta(t, 1.5, result.MaxScore, 1e-6)
	require.Len(t, result.Documents, 2)
	require.Equal(t, "ERROR", result.Documents[0].Source["level"])
}

func TestSearchAggregations(t *testing.T) {
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"took":      2,
			"timed_out": false,
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": 100},
				"hits":  []interface{}{},
			},
			"aggregations": map[string]interface{}{
				"per_level": map[string]interface{}{
					"buckets": []interface{}{
						map[string]interface{}{"key": "ERROR", "doc_count": 60},
					},
				},
			},
		})
	})

	q := &model.StructuredQuery{
		Index: "logs-app",
		Body: map[string]interface{}{
			"size": 0,
			"aggs": map[string]interface{}{
				"per_level": map[string]interface{}{
					"terms": map[string]interface{}{"field": "level"},
				},
			},
		},
	}
	result, err := client.Search(context.Background(), q)
	require.NoError(t, err)
	require.EqualValues(t, 100, result.TotalHits)
	require.Contains(t, result.Aggregations, "per_level")
	require.Empty(t, result.Documents)
	require.Zero(t, result.MaxScore)
}

func TestSearchResultTooLarge(t *testing.T) {
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, searchBody(4)) // cap is 3
	})

	_, err := client.Search(context.Background(), readQuery())
	require.ErrorIs(t, err, appErr.ErrResultTooLarge)
}

func TestSearchClusterError(t *testing.T) {
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"type": "parsing_exception"}})
	})

	_, err := client.Search(context.Background(), readQuery())
	require.ErrorIs(t, err, appErr.ErrExecutionFailed)
	require.Contains(t, err.Error(), "parsing_exception")
}

func TestSearchRefusesUnsafeQuery(t *testing.T) {
	var requests int
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeJSON(w, searchBody(0))
	})

	unsafe := []*model.StructuredQuery{
		nil,
		{Body: map[string]interface{}{"query": map[string]interface{}{"match_all": map[string]interface{}{}}}},
		{Index: "logs-app", Body: map[string]interface{}{"delete_by_query": map[string]interface{}{}}},
		{Index: "logs-app", Body: map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": []interface{}{
						map[string]interface{}{"script": map[string]interface{}{}},
					},
				},
			},
		}},
	}
	for _, q := range unsafe {
		_, err := client.Search(context.Background(), q)
		require.ErrorIs(t, err, appErr.ErrInvariantViolation)
	}
	// Not one of those queries may touch the wire.
	require.Zero(t, requests)
}

func TestListIndices(t *testing.T) {
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_cat/indices", r.URL.Path)
		require.Equal(t, "json", r.URL.Query().Get("format"))
		writeJSON(w, []map[string]interface{}{
			{"index": "logs-app", "docs.count": "1024", "store.size": "4mb"},
			{"index": "orders", "docs.count": "77", "store.size": "1mb"},
			{"index": ""},
		})
	})

	infos, err := client.ListIndices(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "logs-app", infos[0].Name)
	require.Equal(t, "1024", infos[0].DocCount)
}

func TestGetSchema(t *testing.T) {
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/logs-app/_mapping"))
		writeJSON(w, map[string]interface{}{
			"logs-app": map[string]interface{}{
				"mappings": map[string]interface{}{
					"properties": map[string]interface{}{
						"level": map[string]interface{}{"type": "keyword"},
						"msg": map[string]interface{}{
							"type": "text",
							"fields": map[string]interface{}{
								"keyword": map[string]interface{}{"type": "keyword"},
							},
						},
					},
				},
			},
		})
	})

	fields, err := client.GetSchema(context.Background(), "logs-app")
	require.NoError(t, err)
	require.Contains(t, fields, "level")
	require.Contains(t, fields, "msg")
}

func TestGetSchemaAliasedIndex(t *testing.T) {
	client := newTestCluster(t, func(w http.ResponseWriter, r *http.Request) {
		// Requesting an alias returns the concrete index name.
		writeJSON(w, map[string]interface{}{
			"logs-app-000001": map[string]interface{}{
				"mappings": map[string]interface{}{
					"properties": map[string]interface{}{
						"level": map[string]interface{}{"type": "keyword"},
					},
				},
			},
		})
	})

	fields, err := client.GetSchema(context.Background(), "logs-app")
	require.NoError(t, err)
	require.Contains(t, fields, "level")
}
