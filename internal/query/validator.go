package query

import (
	"fmt"
	"sort"

	"esagent/internal/model"
	appErr "esagent/internal/pkg/errors"
)

// Root clauses a read or aggregation search body may contain. Anything
// outside this set is rejected, never passed through.
var allowedRoots = map[string]struct{}{
	"query":            {},
	"aggs":             {},
	"aggregations":     {},
	"size":             {},
	"sort":             {},
	"from":             {},
	"_source":          {},
	"highlight":        {},
	"track_total_hits": {},
	"search_after":     {},
	"collapse":         {},
	"min_score":        {},
}

// Clauses that perform or enable mutation, keyed to the operation kind
// they imply. Checked at every nesting level: a script tucked inside a
// bool filter is as unsafe as one at the root.
var deniedClauses = map[string]model.OperationKind{
	"script":           model.OpWrite,
	"script_score":     model.OpWrite,
	"script_fields":    model.OpWrite,
	"scripted_metric":  model.OpWrite,
	"runtime_mappings": model.OpWrite,
	"update":           model.OpWrite,
	"update_by_query":  model.OpWrite,
	"upsert":           model.OpWrite,
	"doc_as_upsert":    model.OpWrite,
	"bulk":             model.OpWrite,
	"delete":           model.OpDelete,
	"delete_by_query":  model.OpDelete,
	"reindex":          model.OpAdmin,
	"settings":         model.OpAdmin,
	"mappings":         model.OpAdmin,
	"aliases":          model.OpAdmin,
	"forcemerge":       model.OpAdmin,
}

// Classify inspects a search body and returns the operation kind it would
// perform, plus the offending clause when the kind is unsafe. It is
// deterministic and has no side effects. An empty body or an unrecognized
// root clause classifies as admin: unknown defaults to unsafe.
func Classify(body map[string]interface{}) (model.OperationKind, string) {
	if len(body) == 0 {
		return model.OpAdmin, "empty query body"
	}
	for _, key := range sortedKeys(body) {
		if kind, ok := deniedClauses[key]; ok {
			return kind, fmt.Sprintf("clause %q is not read-only", key)
		}
		if _, ok := allowedRoots[key]; !ok {
			return model.OpAdmin, fmt.Sprintf("unrecognized clause %q", key)
		}
		if kind, clause := scanNested(body[key]); !kind.Safe() {
			return kind, fmt.Sprintf("clause %q is not read-only", clause)
		}
	}
	if _, ok := body["aggs"]; ok {
		return model.OpAggregate, ""
	}
	if _, ok := body["aggregations"]; ok {
		return model.OpAggregate, ""
	}
	return model.OpRead, ""
}

// Validate applies Classify to a structured query and rejects anything
// that is not a plain read or aggregation.
func Validate(q *model.StructuredQuery) (model.OperationKind, error) {
	if q == nil || q.Index == "" {
		return model.OpAdmin, fmt.Errorf("%w: missing target index", appErr.ErrValidationRejected)
	}
	kind, reason := Classify(q.Body)
	if !kind.Safe() {
		return kind, fmt.Errorf("%w: %s", appErr.ErrValidationRejected, reason)
	}
	return kind, nil
}

func scanNested(value interface{}) (model.OperationKind, string) {
	switch v := value.(type) {
	case map[string]interface{}:
		for _, key := range sortedKeys(v) {
			if kind, ok := deniedClauses[key]; ok {
				return kind, key
			}
			if kind, clause := scanNested(v[key]); !kind.Safe() {
				return kind, clause
			}
		}
	case []interface{}:
		for _, item := range v {
			if kind, clause := scanNested(item); !kind.Safe() {
				return kind, clause
			}
		}
	}
	return model.OpRead, ""
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
