package appointment

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

// PostgresStore persists appointments in PostgreSQL.
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

func (s *PostgresStore) Create(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (id, donor_id, event_id, time_slot, status, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		appt.ID.String(),
		donorArg(appt.DonorID),
		appt.EventID.String(),
		appt.TimeSlot,
		appt.Status.String(),
		appt.CreatedAt,
		appt.UpdatedAt,
		appt.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create appointment: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, apptID id.AppointmentID) (*Appointment, error) {
	appt, err := scanAppointment(s.q(ctx).QueryRowContext(ctx,
		selectAppointment+` WHERE id = $1`, apptID.String()))
	if err != nil {
		return nil, fmt.Errorf("find appointment: %w", pgerr.Map(err))
	}
	return appt, nil
}

// Execute locks the appointment row with FOR UPDATE NOWAIT for the duration
// of validate and mutate. Lock contention surfaces as sentinel.ErrConflict.
func (s *PostgresStore) Execute(ctx context.Context, apptID id.AppointmentID, validate func(*Appointment) error, mutate func(*Appointment)) (*Appointment, error) {
	appt, err := scanAppointment(s.q(ctx).QueryRowContext(ctx,
		selectAppointment+` WHERE id = $1 FOR UPDATE NOWAIT`, apptID.String()))
	if err != nil {
		return nil, fmt.Errorf("lock appointment: %w", pgerr.Map(err))
	}
	if validate != nil {
		if err := validate(appt); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(appt)
	}
	update := `
		UPDATE appointments
		SET donor_id = $2, status = $3, updated_at = $4, completed_at = $5
		WHERE id = $1
	`
	if _, err := s.q(ctx).ExecContext(ctx, update,
		appt.ID.String(), donorArg(appt.DonorID), appt.Status.String(),
		appt.UpdatedAt, appt.CompletedAt); err != nil {
		return nil, fmt.Errorf("update appointment: %w", pgerr.Map(err))
	}
	return appt, nil
}

func (s *PostgresStore) CountActiveByEvent(ctx context.Context, eventID id.EventID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE event_id = $1 AND status != 'cancelled'
	`
	var count int
	if err := s.q(ctx).QueryRowContext(ctx, query, eventID.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active appointments: %w", pgerr.Map(err))
	}
	return count, nil
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID id.EventID) ([]*Appointment, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		selectAppointment+` WHERE event_id = $1 ORDER BY time_slot`, eventID.String())
	if err != nil {
		return nil, fmt.Errorf("list appointments by event: %w", pgerr.Map(err))
	}
	return collectAppointments(rows)
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID id.DonorID) ([]*Appointment, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		selectAppointment+` WHERE donor_id = $1 ORDER BY time_slot`, donorID.String())
	if err != nil {
		return nil, fmt.Errorf("list appointments by donor: %w", pgerr.Map(err))
	}
	return collectAppointments(rows)
}

func (s *PostgresStore) DetachDonor(ctx context.Context, donorID id.DonorID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE appointments SET donor_id = NULL WHERE donor_id = $1`, donorID.String())
	if err != nil {
		return fmt.Errorf("detach donor from appointments: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStore) DeleteByEvent(ctx context.Context, eventID id.EventID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM appointments WHERE event_id = $1`, eventID.String())
	if err != nil {
		return fmt.Errorf("delete appointments by event: %w", pgerr.Map(err))
	}
	return nil
}

const selectAppointment = `
	SELECT id, donor_id, event_id, time_slot, status, created_at, updated_at, completed_at
	FROM appointments`

type row interface {
	Scan(dest ...any) error
}

func scanAppointment(r row) (*Appointment, error) {
	var appt Appointment
	var rawID, rawEvent, status string
	var rawDonor sql.NullString
	var completed sql.NullTime
	if err := r.Scan(&rawID, &rawDonor, &rawEvent, &appt.TimeSlot, &status,
		&appt.CreatedAt, &appt.UpdatedAt, &completed); err != nil {
		return nil, err
	}
	parsed, err := id.ParseAppointmentID(rawID)
	if err != nil {
		return nil, err
	}
	appt.ID = parsed
	eventID, err := id.ParseEventID(rawEvent)
	if err != nil {
		return nil, err
	}
	appt.EventID = eventID
	appt.Status = Status(status)
	if rawDonor.Valid {
		donorID, err := id.ParseDonorID(rawDonor.String)
		if err != nil {
			return nil, err
		}
		appt.DonorID = &donorID
	}
	if completed.Valid {
		appt.CompletedAt = &completed.Time
	}
	return &appt, nil
}

func collectAppointments(rows *sql.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments rows: %w", err)
	}
	return out, nil
}

func donorArg(donorID *id.DonorID) any {
	if donorID == nil {
		return nil
	}
	return donorID.String()
}
