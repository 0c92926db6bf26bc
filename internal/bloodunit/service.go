package bloodunit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"lifeline/internal/audit"
	"lifeline/internal/platform/metrics"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// Store persists blood units with their screening test and inventory record.
type Store interface {
	CreateUnit(ctx context.Context, unit *BloodUnit) error
	FindUnit(ctx context.Context, unitID id.UnitID) (*BloodUnit, error)
	// ExecuteUnit atomically validates and mutates a unit while holding the
	// record lock (mutex or FOR UPDATE).
	ExecuteUnit(ctx context.Context, unitID id.UnitID, validate func(*BloodUnit) error, mutate func(*BloodUnit)) (*BloodUnit, error)
	ListUnitsByDonor(ctx context.Context, donorID id.DonorID) ([]*BloodUnit, error)
	// ListDistributable returns approved units with unconsumed inventory.
	// Rejected units stay in the store for audit but never appear here.
	ListDistributable(ctx context.Context) ([]*BloodUnit, error)
	DetachDonor(ctx context.Context, donorID id.DonorID) error

	FindTestByUnit(ctx context.Context, unitID id.UnitID) (*ScreeningTest, error)
	// CreateTest enforces the one-test-per-unit invariant and returns
	// sentinel.ErrAlreadyUsed when a test already exists.
	CreateTest(ctx context.Context, test *ScreeningTest) error
	UpdateTest(ctx context.Context, test *ScreeningTest) error

	// CreateInventory enforces the one-record-per-unit invariant and returns
	// sentinel.ErrAlreadyUsed when a record already exists.
	CreateInventory(ctx context.Context, record *InventoryRecord) error
	FindInventoryByUnit(ctx context.Context, unitID id.UnitID) (*InventoryRecord, error)
	ConsumeInventory(ctx context.Context, unitID id.UnitID, consumedAt time.Time) error
}

// StoreTx serializes a multi-store operation on a single entity key.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// AuditPublisher records lifecycle transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives units through collection, testing, disposition and
// distribution. Each operation is a single bounded transaction serialized
// per unit.
type Service struct {
	store   Store
	tx      StoreTx
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a blood unit Service.
func New(store Store, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     tx,
		tracer: otel.Tracer("lifeline/bloodunit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collect originates a unit in Collected state. The appointment completion
// cascade calls this inside its own transaction context, so no keyed lock is
// taken here; failures propagate and abort the caller's transaction.
func (s *Service) Collect(ctx context.Context, donorID *id.DonorID, volumeML float64) (*BloodUnit, error) {
	now := requestcontext.Now(ctx)
	unit, err := NewBloodUnit(id.NewUnitID(), donorID, now, volumeML, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.store.CreateUnit(ctx, unit); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create blood unit")
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionUnitCollected,
		EntityID: unit.ID.String(),
		DonorID:  donorStr(donorID),
	})
	if s.metrics != nil {
		s.metrics.UnitsCollected.Inc()
	}
	return unit, nil
}

// GetUnit fetches a unit by ID.
func (s *Service) GetUnit(ctx context.Context, unitID id.UnitID) (*BloodUnit, error) {
	if unitID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "unit id is required")
	}
	unit, err := s.store.FindUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "blood unit not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blood unit")
	}
	return unit, nil
}

// RecordScreeningResult records the test outcome for a unit and applies the
// disposition it drives: Pass approves the unit and registers exactly one
// inventory record, Fail rejects it, Pending parks it in Tested awaiting a
// re-test. A unit that is already Approved, Rejected or Distributed cannot
// receive another result.
//
// The status write, the test write and the inventory write commit or roll
// back together.
func (s *Service) RecordScreeningResult(ctx context.Context, unitID id.UnitID, result ScreeningResult) (*ScreeningTest, error) {
	ctx, span := s.tracer.Start(ctx, "bloodunit.RecordScreeningResult")
	defer span.End()

	if unitID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "unit id is required")
	}

	var test *ScreeningTest
	var target UnitStatus
	err := s.tx.RunInTx(ctx, "unit:"+unitID.String(), func(txCtx context.Context) error {
		unit, err := s.store.FindUnit(txCtx, unitID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "blood unit not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blood unit")
		}
		if unit.Status.IsDispositioned() {
			return dErrors.Newf(dErrors.CodeAlreadyDispositioned,
				"unit is already %s", unit.Status)
		}

		now := requestcontext.Now(txCtx)
		target = result.TargetStatus()
		if target != unit.Status {
			if err := unit.CanTransition(target); err != nil {
				return err
			}
		}

		existing, err := s.store.FindTestByUnit(txCtx, unitID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load screening test")
		}
		switch {
		case existing == nil:
			test = &ScreeningTest{
				ID:       id.NewScreeningID(),
				UnitID:   unitID,
				TestDate: now,
				Result:   result,
			}
			if err := s.store.CreateTest(txCtx, test); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyUsed) {
					return dErrors.New(dErrors.CodeAlreadyTested, "unit already has a screening test")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create screening test")
			}
		case existing.Result == ScreeningResultPending:
			// A pending test is unresolved; re-recording resolves it in place
			// rather than attaching a second test.
			existing.Result = result
			existing.TestDate = now
			if err := s.store.UpdateTest(txCtx, existing); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update screening test")
			}
			test = existing
		default:
			return dErrors.New(dErrors.CodeAlreadyTested, "unit already has a resolved screening test")
		}

		if target == UnitStatusApproved {
			record := &InventoryRecord{
				ID:             id.NewInventoryID(),
				UnitID:         unitID,
				CollectionDate: unit.CollectionDate,
				AmountML:       unit.VolumeML,
				CreatedAt:      now,
			}
			if err := s.store.CreateInventory(txCtx, record); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyUsed) {
					return dErrors.New(dErrors.CodeAlreadyDispositioned, "unit already has an inventory record")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create inventory record")
			}
		}

		if target != unit.Status {
			_, err = s.store.ExecuteUnit(txCtx, unitID,
				func(u *BloodUnit) error { return u.CanTransition(target) },
				func(u *BloodUnit) { u.Apply(target, now) },
			)
			if err != nil {
				return wrapUnitErr(err)
			}
		}
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionScreeningRecorded,
		EntityID: unitID.String(),
		Detail:   string(result),
	})
	if s.metrics != nil {
		switch target {
		case UnitStatusApproved:
			s.metrics.UnitsApproved.Inc()
		case UnitStatusRejected:
			s.metrics.UnitsRejected.Inc()
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "screening result recorded",
			"unit_id", unitID.String(),
			"result", result.String(),
			"disposition", target.String(),
		)
	}
	return test, nil
}

// Distribute moves an approved unit out of inventory. The inventory record
// is flagged consumed rather than deleted so the trail survives.
func (s *Service) Distribute(ctx context.Context, unitID id.UnitID) (*BloodUnit, error) {
	ctx, span := s.tracer.Start(ctx, "bloodunit.Distribute")
	defer span.End()

	if unitID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "unit id is required")
	}

	var updated *BloodUnit
	err := s.tx.RunInTx(ctx, "unit:"+unitID.String(), func(txCtx context.Context) error {
		unit, err := s.store.FindUnit(txCtx, unitID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "blood unit not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blood unit")
		}
		if err := unit.CanTransition(UnitStatusDistributed); err != nil {
			return err
		}

		record, err := s.store.FindInventoryByUnit(txCtx, unitID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvariantViolation, "approved unit has no inventory record")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load inventory record")
		}
		if record.ConsumedAt != nil {
			return dErrors.New(dErrors.CodeConflict, "inventory record already consumed")
		}

		now := requestcontext.Now(txCtx)
		if err := s.store.ConsumeInventory(txCtx, unitID, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume inventory record")
		}
		updated, err = s.store.ExecuteUnit(txCtx, unitID,
			func(u *BloodUnit) error { return u.CanTransition(UnitStatusDistributed) },
			func(u *BloodUnit) { u.Apply(UnitStatusDistributed, now) },
		)
		if err != nil {
			return wrapUnitErr(err)
		}
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionUnitDistributed,
		EntityID: unitID.String(),
	})
	if s.metrics != nil {
		s.metrics.UnitsDistributed.Inc()
	}
	return updated, nil
}

// GetInventory returns the inventory record of a unit, if any.
func (s *Service) GetInventory(ctx context.Context, unitID id.UnitID) (*InventoryRecord, error) {
	record, err := s.store.FindInventoryByUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "inventory record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load inventory record")
	}
	return record, nil
}

// ListDistributable returns units eligible for distribution.
func (s *Service) ListDistributable(ctx context.Context) ([]*BloodUnit, error) {
	units, err := s.store.ListDistributable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list distributable units")
	}
	return units, nil
}

// DetachDonor drops the donor link from all of the donor's units. Units stay
// visible for audit.
func (s *Service) DetachDonor(ctx context.Context, donorID id.DonorID) error {
	return s.store.DetachDonor(ctx, donorID)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
}

func (s *Service) countConflict(err error) {
	if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
		s.metrics.LifecycleConflicts.Inc()
	}
}

func wrapUnitErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "blood unit not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "blood unit is locked by a concurrent operation")
	case dErrors.HasCode(err, dErrors.CodeInvalidTransition):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update blood unit")
	}
}

func donorStr(donorID *id.DonorID) string {
	if donorID == nil {
		return ""
	}
	return donorID.String()
}
