// Package pgerr maps PostgreSQL driver errors onto the store sentinel
// errors, keeping the translation in one place across all Postgres stores.
package pgerr

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"lifeline/pkg/platform/sentinel"
)

// SQLSTATE classes the stores care about.
const (
	codeUniqueViolation    = "23505"
	codeLockNotAvailable   = "55P03"
	codeSerializationFail  = "40001"
	codeDeadlockDetected   = "40P01"
	codeQueryCanceledState = "57014"
)

// Map converts a driver error into the matching sentinel, or returns the
// error unchanged when no mapping applies.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return sentinel.ErrAlreadyUsed
	case codeLockNotAvailable, codeSerializationFail, codeDeadlockDetected:
		return sentinel.ErrConflict
	case codeQueryCanceledState:
		return sentinel.ErrUnavailable
	}
	return err
}
