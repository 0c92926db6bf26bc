package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/pgerr"
	"lifeline/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// postgresTx runs lifecycle operations inside a database transaction. The
// key takes a transaction-scoped advisory lock so multi-statement invariants
// with no natural row lock, like capacity counting, serialize per entity the
// same way the in-memory shards do.
type postgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresTx(db *sql.DB) *postgresTx {
	return &postgresTx{db: db}
}

func (t *postgresTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(pgerr.Map(err), dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if _, err := dbTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return dErrors.Wrap(pgerr.Map(err), dErrors.CodeConflict, "failed to acquire entity lock")
	}

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return dErrors.Wrap(pgerr.Map(err), dErrors.CodeConflict, "failed to commit transaction")
	}
	return nil
}
