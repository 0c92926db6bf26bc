// Package tx carries SQL transactions through context and provides a keyed
// in-memory transaction runner for the memory store wiring.
//
// Lifecycle services declare a StoreTx interface and receive one of two
// implementations: the Postgres runner in cmd/server (BeginTx + context
// carry) or Sharded below. Stores that are tx-aware call From to join an
// open transaction.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}
