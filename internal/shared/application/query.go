package application

import "context"

// Query is a read-only request. QueryName identifies the operation in logs
// and metrics, e.g. "lifecycle.get_stage_graph".
type Query interface {
	QueryName() string
}

// QueryHandler answers one query type. Queries never mutate state.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}
