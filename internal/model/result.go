package model

// Document is one search hit with its relevance score.
type Document struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Source map[string]interface{} `json:"source"`
}

// ExecutionResult holds the formatted outcome of one search call.
type ExecutionResult struct {
	TotalHits    int64                  `json:"total_hits"`
	MaxScore     float64                `json:"max_score"`
	Documents    []Document             `json:"documents"`
	Aggregations map[string]interface{} `json:"aggregations,omitempty"`
	TookMs       int64                  `json:"took_ms"`
	TimedOut     bool                   `json:"timed_out"`
}
