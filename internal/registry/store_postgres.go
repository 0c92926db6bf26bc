package registry

import (
	"context"
	"database/sql"
	"fmt"

	id "lifeline/pkg/domain"
	"lifeline/pkg/platform/pgerr"
	"lifeline/pkg/platform/tx"
)

// querier is satisfied by both *sql.DB and *sql.Tx so store methods join an
// open transaction when one is carried in context.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresDonorStore persists donors in PostgreSQL. The store is pure I/O;
// lifecycle rules live in the services.
type PostgresDonorStore struct {
	db *sql.DB
}

func NewPostgresDonorStore(db *sql.DB) *PostgresDonorStore {
	return &PostgresDonorStore{db: db}
}

func (s *PostgresDonorStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresDonorStore) Create(ctx context.Context, donor *Donor) error {
	query := `
		INSERT INTO donors (id, first_name, last_name, contact, blood_type, last_donation_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		donor.ID.String(),
		donor.Person.FirstName,
		donor.Person.LastName,
		donor.Person.Contact,
		donor.BloodType.String(),
		donor.LastDonationAt,
		donor.CreatedAt,
		donor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create donor: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresDonorStore) FindByID(ctx context.Context, donorID id.DonorID) (*Donor, error) {
	query := `
		SELECT id, first_name, last_name, contact, blood_type, last_donation_at, created_at, updated_at
		FROM donors
		WHERE id = $1
	`
	donor, err := scanDonor(s.q(ctx).QueryRowContext(ctx, query, donorID.String()))
	if err != nil {
		return nil, fmt.Errorf("find donor: %w", pgerr.Map(err))
	}
	return donor, nil
}

// Execute locks the donor row with FOR UPDATE NOWAIT for the duration of
// validate and mutate. Lock contention surfaces as sentinel.ErrConflict so
// callers can retry.
func (s *PostgresDonorStore) Execute(ctx context.Context, donorID id.DonorID, validate func(*Donor) error, mutate func(*Donor)) (*Donor, error) {
	query := `
		SELECT id, first_name, last_name, contact, blood_type, last_donation_at, created_at, updated_at
		FROM donors
		WHERE id = $1
		FOR UPDATE NOWAIT
	`
	donor, err := scanDonor(s.q(ctx).QueryRowContext(ctx, query, donorID.String()))
	if err != nil {
		return nil, fmt.Errorf("lock donor: %w", pgerr.Map(err))
	}
	if validate != nil {
		if err := validate(donor); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(donor)
	}
	update := `
		UPDATE donors
		SET last_donation_at = $2, updated_at = $3
		WHERE id = $1
	`
	if _, err := s.q(ctx).ExecContext(ctx, update, donor.ID.String(), donor.LastDonationAt, donor.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update donor: %w", pgerr.Map(err))
	}
	return donor, nil
}

func (s *PostgresDonorStore) Delete(ctx context.Context, donorID id.DonorID) error {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM donors WHERE id = $1`, donorID.String())
	if err != nil {
		return fmt.Errorf("delete donor: %w", pgerr.Map(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete donor rows affected: %w", err)
	}
	if rows == 0 {
		return pgerr.Map(sql.ErrNoRows)
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanDonor(r row) (*Donor, error) {
	var donor Donor
	var rawID, bloodType string
	var lastDonation sql.NullTime
	if err := r.Scan(&rawID, &donor.Person.FirstName, &donor.Person.LastName, &donor.Person.Contact,
		&bloodType, &lastDonation, &donor.CreatedAt, &donor.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := id.ParseDonorID(rawID)
	if err != nil {
		return nil, err
	}
	donor.ID = parsed
	donor.BloodType = id.BloodType(bloodType)
	if lastDonation.Valid {
		donor.LastDonationAt = &lastDonation.Time
	}
	return &donor, nil
}

// PostgresStaffStore persists staff in PostgreSQL. Email uniqueness is
// backed by a unique index and surfaces as sentinel.ErrAlreadyUsed.
type PostgresStaffStore struct {
	db *sql.DB
}

func NewPostgresStaffStore(db *sql.DB) *PostgresStaffStore {
	return &PostgresStaffStore{db: db}
}

func (s *PostgresStaffStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStaffStore) CreateIfEmailAvailable(ctx context.Context, staff *Staff) error {
	query := `
		INSERT INTO staff (id, first_name, last_name, contact, job_role, email, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		staff.ID.String(),
		staff.Person.FirstName,
		staff.Person.LastName,
		staff.Person.Contact,
		staff.JobRole,
		staff.Email,
		string(staff.Kind),
		staff.CreatedAt,
		staff.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create staff: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStaffStore) FindByID(ctx context.Context, staffID id.StaffID) (*Staff, error) {
	query := `
		SELECT id, first_name, last_name, contact, job_role, email, kind, created_at, updated_at
		FROM staff
		WHERE id = $1
	`
	staff, err := scanStaff(s.q(ctx).QueryRowContext(ctx, query, staffID.String()))
	if err != nil {
		return nil, fmt.Errorf("find staff: %w", pgerr.Map(err))
	}
	return staff, nil
}

func (s *PostgresStaffStore) ListByKind(ctx context.Context, kind StaffKind) ([]*Staff, error) {
	query := `
		SELECT id, first_name, last_name, contact, job_role, email, kind, created_at, updated_at
		FROM staff
		WHERE kind = $1
		ORDER BY last_name, first_name
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", pgerr.Map(err))
	}
	defer rows.Close()

	var out []*Staff
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, staff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list staff rows: %w", err)
	}
	return out, nil
}

func scanStaff(r row) (*Staff, error) {
	var staff Staff
	var rawID, kind string
	if err := r.Scan(&rawID, &staff.Person.FirstName, &staff.Person.LastName, &staff.Person.Contact,
		&staff.JobRole, &staff.Email, &kind, &staff.CreatedAt, &staff.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := id.ParseStaffID(rawID)
	if err != nil {
		return nil, err
	}
	staff.ID = parsed
	staff.Kind = StaffKind(kind)
	return &staff, nil
}
