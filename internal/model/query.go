package model

// OperationKind classifies a structured query by the kind of operation it
// performs against the data store. Only read and aggregate queries are
// allowed to execute.
type OperationKind string

const (
	OpRead      OperationKind = "read"
	OpAggregate OperationKind = "aggregate"
	OpWrite     OperationKind = "write"
	OpDelete    OperationKind = "delete"
	OpAdmin     OperationKind = "admin"
)

func (k OperationKind) Safe() bool {
	return k == OpRead || k == OpAggregate
}

// StructuredQuery is an Elasticsearch DSL body bound to a target index.
type StructuredQuery struct {
	Index string                 `json:"index"`
	Body  map[string]interface{} `json:"body"`
}
