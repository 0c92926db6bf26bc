package registry

import (
	"context"
	"errors"
	"log/slog"

	"lifeline/internal/audit"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// DonorStore persists donor records.
type DonorStore interface {
	Create(ctx context.Context, donor *Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*Donor, error)
	// Execute atomically validates and mutates a donor while holding the
	// record lock (mutex or FOR UPDATE).
	Execute(ctx context.Context, donorID id.DonorID, validate func(*Donor) error, mutate func(*Donor)) (*Donor, error)
	Delete(ctx context.Context, donorID id.DonorID) error
}

// StaffStore persists staff records.
type StaffStore interface {
	CreateIfEmailAvailable(ctx context.Context, staff *Staff) error
	FindByID(ctx context.Context, staffID id.StaffID) (*Staff, error)
	ListByKind(ctx context.Context, kind StaffKind) ([]*Staff, error)
}

// DonorDetacher removes a deleted donor's link from dependent records.
// Appointments and blood units survive donor deletion with a null donor link.
type DonorDetacher interface {
	DetachDonor(ctx context.Context, donorID id.DonorID) error
}

// StoreTx serializes a multi-store operation on a single entity key.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// AuditPublisher records registry changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages donor and staff registration.
type Service struct {
	donors    DonorStore
	staff     StaffStore
	detachers []DonorDetacher
	tx        StoreTx
	logger    *slog.Logger
	auditor   AuditPublisher
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for audit-relevant events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDonorDetachers registers the stores that must drop their donor link
// when a donor is deleted.
func WithDonorDetachers(detachers ...DonorDetacher) Option {
	return func(s *Service) { s.detachers = detachers }
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// New constructs a registry Service.
func New(donors DonorStore, staff StaffStore, tx StoreTx, opts ...Option) *Service {
	s := &Service{donors: donors, staff: staff, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterDonor validates and stores a new donor.
func (s *Service) RegisterDonor(ctx context.Context, person Person, bloodType id.BloodType) (*Donor, error) {
	donor, err := NewDonor(id.NewDonorID(), person, bloodType, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.donors.Create(ctx, donor); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donor")
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionDonorRegistered,
		EntityID: donor.ID.String(),
		DonorID:  donor.ID.String(),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "donor registered",
			"donor_id", donor.ID.String(),
			"blood_type", donor.BloodType.String(),
		)
	}
	return donor, nil
}

// GetDonor fetches a donor by ID.
func (s *Service) GetDonor(ctx context.Context, donorID id.DonorID) (*Donor, error) {
	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "donor id is required")
	}
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}
	return donor, nil
}

// DeleteDonor removes the donor record along with its owned person value.
// Appointments and blood units referencing the donor are detached, not
// deleted, so the schedule and the audit trail survive.
func (s *Service) DeleteDonor(ctx context.Context, donorID id.DonorID) error {
	if donorID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "donor id is required")
	}
	err := s.tx.RunInTx(ctx, "donor:"+donorID.String(), func(txCtx context.Context) error {
		if _, err := s.donors.FindByID(txCtx, donorID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "donor not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
		}
		for _, d := range s.detachers {
			if err := d.DetachDonor(txCtx, donorID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach donor references")
			}
		}
		if err := s.donors.Delete(txCtx, donorID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete donor")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionDonorDeleted,
		EntityID: donorID.String(),
		DonorID:  donorID.String(),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "donor deleted", "donor_id", donorID.String())
	}
	return nil
}

// RegisterStaff validates and stores a new staff member. Email must be
// unique across all staff regardless of kind.
func (s *Service) RegisterStaff(ctx context.Context, person Person, jobRole, email string, kind StaffKind) (*Staff, error) {
	staff, err := NewStaff(id.NewStaffID(), person, jobRole, email, kind, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.staff.CreateIfEmailAvailable(ctx, staff); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "staff email must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create staff")
	}
	return staff, nil
}

// GetStaff fetches a staff member by ID.
func (s *Service) GetStaff(ctx context.Context, staffID id.StaffID) (*Staff, error) {
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "staff id is required")
	}
	staff, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "staff not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff")
	}
	return staff, nil
}

// ListStaffByKind returns all staff of the given specialization.
func (s *Service) ListStaffByKind(ctx context.Context, kind StaffKind) ([]*Staff, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid staff kind")
	}
	staff, err := s.staff.ListByKind(ctx, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list staff")
	}
	return staff, nil
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
