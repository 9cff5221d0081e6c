package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"esagent/internal/model"
)

type generatedEnvelope struct {
	Index string                 `json:"index"`
	Query map[string]interface{} `json:"query"`
}

// ParseGenerated decodes the generator's reply into a structured query.
// Model output is frequently wrapped in markdown fences or surrounded by
// prose; anything that does not decode into the expected envelope is an
// error, never coerced into a query.
func ParseGenerated(raw string) (*model.StructuredQuery, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var env generatedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode generated query: %w", err)
	}
	if env.Index == "" {
		return nil, fmt.Errorf("generated query has no target index")
	}
	if len(env.Query) == 0 {
		return nil, fmt.Errorf("generated query has no body")
	}
	return &model.StructuredQuery{Index: env.Index, Body: env.Query}, nil
}

// ExtractJSONObject pulls the first JSON object out of model output,
// stripping markdown code fences first.
func ExtractJSONObject(raw string) (map[string]interface{}, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object in output")
	}
	clean = clean[start : end+1]

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("parse json object: %w", err)
	}
	return obj, nil
}
