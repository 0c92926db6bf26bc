package drive

import (
	"context"
	"database/sql"
	"fmt"

	id "lifeline/pkg/domain"
	"lifeline/pkg/platform/pgerr"
	"lifeline/pkg/platform/tx"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists drive events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO drive_events (id, location, event_date, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		event.ID.String(), event.Location, event.Date, event.Capacity, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*Event, error) {
	query := `
		SELECT id, location, event_date, capacity, created_at
		FROM drive_events
		WHERE id = $1
	`
	event, err := scanEvent(s.q(ctx).QueryRowContext(ctx, query, eventID.String()))
	if err != nil {
		return nil, fmt.Errorf("find event: %w", pgerr.Map(err))
	}
	return event, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Event, error) {
	query := `
		SELECT id, location, event_date, capacity, created_at
		FROM drive_events
		ORDER BY event_date
	`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", pgerr.Map(err))
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, eventID id.EventID) error {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM drive_events WHERE id = $1`, eventID.String())
	if err != nil {
		return fmt.Errorf("delete event: %w", pgerr.Map(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event rows affected: %w", err)
	}
	if rows == 0 {
		return pgerr.Map(sql.ErrNoRows)
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanEvent(r row) (*Event, error) {
	var event Event
	var rawID string
	if err := r.Scan(&rawID, &event.Location, &event.Date, &event.Capacity, &event.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := id.ParseEventID(rawID)
	if err != nil {
		return nil, err
	}
	event.ID = parsed
	return &event, nil
}
