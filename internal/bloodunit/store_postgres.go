package bloodunit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "lifeline/pkg/domain"
	"lifeline/pkg/platform/pgerr"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/platform/tx"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists units, screening tests and inventory in PostgreSQL.
// One-to-one invariants are backed by unique indexes on unit_id.
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

func (s *PostgresStore) CreateUnit(ctx context.Context, unit *BloodUnit) error {
	query := `
		INSERT INTO blood_units (id, donor_id, collection_date, volume_ml, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		unit.ID.String(),
		donorArg(unit.DonorID),
		unit.CollectionDate,
		unit.VolumeML,
		unit.Status.String(),
		unit.CreatedAt,
		unit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create unit: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStore) FindUnit(ctx context.Context, unitID id.UnitID) (*BloodUnit, error) {
	unit, err := scanUnit(s.q(ctx).QueryRowContext(ctx, selectUnit+` WHERE id = $1`, unitID.String()))
	if err != nil {
		return nil, fmt.Errorf("find unit: %w", pgerr.Map(err))
	}
	return unit, nil
}

// ExecuteUnit locks the unit row with FOR UPDATE NOWAIT for the duration of
// validate and mutate. Lock contention surfaces as sentinel.ErrConflict.
func (s *PostgresStore) ExecuteUnit(ctx context.Context, unitID id.UnitID, validate func(*BloodUnit) error, mutate func(*BloodUnit)) (*BloodUnit, error) {
	unit, err := scanUnit(s.q(ctx).QueryRowContext(ctx,
		selectUnit+` WHERE id = $1 FOR UPDATE NOWAIT`, unitID.String()))
	if err != nil {
		return nil, fmt.Errorf("lock unit: %w", pgerr.Map(err))
	}
	if validate != nil {
		if err := validate(unit); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(unit)
	}
	update := `
		UPDATE blood_units
		SET donor_id = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	if _, err := s.q(ctx).ExecContext(ctx, update,
		unit.ID.String(), donorArg(unit.DonorID), unit.Status.String(), unit.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update unit: %w", pgerr.Map(err))
	}
	return unit, nil
}

func (s *PostgresStore) ListUnitsByDonor(ctx context.Context, donorID id.DonorID) ([]*BloodUnit, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		selectUnit+` WHERE donor_id = $1 ORDER BY created_at`, donorID.String())
	if err != nil {
		return nil, fmt.Errorf("list units by donor: %w", pgerr.Map(err))
	}
	return collectUnits(rows)
}

func (s *PostgresStore) ListDistributable(ctx context.Context) ([]*BloodUnit, error) {
	query := `
		SELECT u.id, u.donor_id, u.collection_date, u.volume_ml, u.status, u.created_at, u.updated_at
		FROM blood_units u
		JOIN inventory i ON i.unit_id = u.id AND i.consumed_at IS NULL
		WHERE u.status = 'approved'
		ORDER BY u.created_at
	`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list distributable units: %w", pgerr.Map(err))
	}
	return collectUnits(rows)
}

func (s *PostgresStore) DetachDonor(ctx context.Context, donorID id.DonorID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE blood_units SET donor_id = NULL WHERE donor_id = $1`, donorID.String())
	if err != nil {
		return fmt.Errorf("detach donor from units: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStore) FindTestByUnit(ctx context.Context, unitID id.UnitID) (*ScreeningTest, error) {
	query := `
		SELECT id, unit_id, test_date, result
		FROM screening_tests
		WHERE unit_id = $1
	`
	var test ScreeningTest
	var rawID, rawUnitID, result string
	err := s.q(ctx).QueryRowContext(ctx, query, unitID.String()).
		Scan(&rawID, &rawUnitID, &test.TestDate, &result)
	if err != nil {
		return nil, fmt.Errorf("find screening test: %w", pgerr.Map(err))
	}
	parsedUnit, err := id.ParseUnitID(rawUnitID)
	if err != nil {
		return nil, err
	}
	test.UnitID = parsedUnit
	test.Result = ScreeningResult(result)
	if u, err := uuid.Parse(rawID); err == nil {
		test.ID = id.ScreeningID(u)
	}
	return &test, nil
}

func (s *PostgresStore) CreateTest(ctx context.Context, test *ScreeningTest) error {
	query := `
		INSERT INTO screening_tests (id, unit_id, test_date, result)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		test.ID.String(), test.UnitID.String(), test.TestDate, test.Result.String())
	if err != nil {
		return fmt.Errorf("create screening test: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStore) UpdateTest(ctx context.Context, test *ScreeningTest) error {
	query := `
		UPDATE screening_tests
		SET result = $2, test_date = $3
		WHERE unit_id = $1
	`
	result, err := s.q(ctx).ExecContext(ctx, query,
		test.UnitID.String(), test.Result.String(), test.TestDate)
	if err != nil {
		return fmt.Errorf("update screening test: %w", pgerr.Map(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update screening test rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateInventory(ctx context.Context, record *InventoryRecord) error {
	query := `
		INSERT INTO inventory (id, unit_id, collection_date, amount_ml, created_at, consumed_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		record.ID.String(), record.UnitID.String(), record.CollectionDate, record.AmountML, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("create inventory: %w", pgerr.Map(err))
	}
	return nil
}

func (s *PostgresStore) FindInventoryByUnit(ctx context.Context, unitID id.UnitID) (*InventoryRecord, error) {
	query := `
		SELECT id, unit_id, collection_date, amount_ml, created_at, consumed_at
		FROM inventory
		WHERE unit_id = $1
	`
	var record InventoryRecord
	var rawID, rawUnitID string
	var consumed sql.NullTime
	err := s.q(ctx).QueryRowContext(ctx, query, unitID.String()).
		Scan(&rawID, &rawUnitID, &record.CollectionDate, &record.AmountML, &record.CreatedAt, &consumed)
	if err != nil {
		return nil, fmt.Errorf("find inventory: %w", pgerr.Map(err))
	}
	parsedUnit, err := id.ParseUnitID(rawUnitID)
	if err != nil {
		return nil, err
	}
	record.UnitID = parsedUnit
	if u, err := uuid.Parse(rawID); err == nil {
		record.ID = id.InventoryID(u)
	}
	if consumed.Valid {
		record.ConsumedAt = &consumed.Time
	}
	return &record, nil
}

func (s *PostgresStore) ConsumeInventory(ctx context.Context, unitID id.UnitID, consumedAt time.Time) error {
	query := `
		UPDATE inventory
		SET consumed_at = $2
		WHERE unit_id = $1 AND consumed_at IS NULL
	`
	result, err := s.q(ctx).ExecContext(ctx, query, unitID.String(), consumedAt)
	if err != nil {
		return fmt.Errorf("consume inventory: %w", pgerr.Map(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume inventory rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

const selectUnit = `
	SELECT id, donor_id, collection_date, volume_ml, status, created_at, updated_at
	FROM blood_units`

type row interface {
	Scan(dest ...any) error
}

func scanUnit(r row) (*BloodUnit, error) {
	var unit BloodUnit
	var rawID, status string
	var rawDonor sql.NullString
	if err := r.Scan(&rawID, &rawDonor, &unit.CollectionDate, &unit.VolumeML, &status,
		&unit.CreatedAt, &unit.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := id.ParseUnitID(rawID)
	if err != nil {
		return nil, err
	}
	unit.ID = parsed
	unit.Status = UnitStatus(status)
	if rawDonor.Valid {
		donorID, err := id.ParseDonorID(rawDonor.String)
		if err != nil {
			return nil, err
		}
		unit.DonorID = &donorID
	}
	return &unit, nil
}

func collectUnits(rows *sql.Rows) ([]*BloodUnit, error) {
	defer rows.Close()
	var out []*BloodUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("units rows: %w", err)
	}
	return out, nil
}

func donorArg(donorID *id.DonorID) any {
	if donorID == nil {
		return nil
	}
	return donorID.String()
}
