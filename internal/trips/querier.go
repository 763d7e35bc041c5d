package trips

import (
	"context"
	"database/sql"
)

// Querier is the read surface shared by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type querierKey struct{}

// WithQuerier attaches a request-scoped connection to ctx.
func WithQuerier(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, querierKey{}, q)
}

// QuerierFrom returns the connection attached by WithQuerier.
func QuerierFrom(ctx context.Context) (Querier, bool) {
	q, ok := ctx.Value(querierKey{}).(Querier)
	return q, ok
}
