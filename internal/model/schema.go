package model

// IndexSchema is the simplified mapping of one index, flattened for prompt
// construction.
type IndexSchema struct {
	Name     string                 `json:"name"`
	DocCount string                 `json:"document_count"`
	Fields   map[string]interface{} `json:"fields"`
}

// SchemaContext is the index/field context handed to the query generator.
type SchemaContext struct {
	Indices []IndexSchema `json:"indices"`
}
