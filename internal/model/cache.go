package model

// CacheEntry maps a previously answered question to the validated query
// that answered it. Entries are scoped by the embedding model that
// produced the vector; lookups never cross model boundaries.
type CacheEntry struct {
	ID        int64                  `json:"id"`
	ModelName string                 `json:"model_name"`
	Question  string                 `json:"question"`
	Index     string                 `json:"index"`
	Query     map[string]interface{} `json:"query"`
	Embedding []float32              `json:"embedding"`
	HitCount  int64                  `json:"hit_count"`
	Ctime     int64                  `json:"ctime"`
}
