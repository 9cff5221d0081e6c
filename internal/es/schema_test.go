package es

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimplifyMapping(t *testing.T) {
	properties := map[string]interface{}{
		"level": map[string]interface{}{"type": "keyword"},
		"msg": map[string]interface{}{
			"type": "text",
			"fields": map[string]interface{}{
				"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
			},
		},
		"ts": map[string]interface{}{"type": "date", "format": "epoch_millis"},
		"request": map[string]interface{}{
			"properties": map[string]interface{}{
				"path":   map[string]interface{}{"type": "keyword"},
				"status": map[string]interface{}{"type": "integer"},
			},
		},
		"tags": map[string]interface{}{
			"type": "nested",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "keyword"},
			},
		},
		"weird": "not a mapping object",
	}

	got := SimplifyMapping(properties)

	require.Equal(t, map[string]interface{}{"type": "keyword"}, got["level"])
	require.Equal(t, map[string]interface{}{"type": "text", "has_keyword_field": true}, got["msg"])
	require.Equal(t, map[string]interface{}{"type": "date", "format": "epoch_millis"}, got["ts"])

	request, ok := got["request"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "object", request["type"])
	nested, ok := request["properties"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, nested, "path")
	require.Contains(t, nested, "status")

	tags, ok := got["tags"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "nested", tags["type"])

	require.NotContains(t, got, "weird")
}

func TestSimplifyMappingEmpty(t *testing.T) {
	require.Empty(t, SimplifyMapping(nil))
	require.Empty(t, SimplifyMapping(map[string]interface{}{}))
}
