package appointment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"lifeline/internal/audit"
	"lifeline/internal/bloodunit"
	"lifeline/internal/drive"
	"lifeline/internal/eligibility"
	"lifeline/internal/platform/metrics"
	"lifeline/internal/registry"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// Store persists appointments.
type Store interface {
	Create(ctx context.Context, appt *Appointment) error
	FindByID(ctx context.Context, apptID id.AppointmentID) (*Appointment, error)
	// Execute atomically validates and mutates an appointment while holding
	// the record lock (mutex or FOR UPDATE).
	Execute(ctx context.Context, apptID id.AppointmentID, validate func(*Appointment) error, mutate func(*Appointment)) (*Appointment, error)
	// CountActiveByEvent counts the event's non-cancelled appointments; this
	// is the number that competes for capacity.
	CountActiveByEvent(ctx context.Context, eventID id.EventID) (int, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]*Appointment, error)
	ListByDonor(ctx context.Context, donorID id.DonorID) ([]*Appointment, error)
	DetachDonor(ctx context.Context, donorID id.DonorID) error
	DeleteByEvent(ctx context.Context, eventID id.EventID) error
}

// EventStore reads drive events for booking checks.
type EventStore interface {
	FindByID(ctx context.Context, eventID id.EventID) (*drive.Event, error)
}

// DonorStore reads and updates donors for the completion cascade.
type DonorStore interface {
	FindByID(ctx context.Context, donorID id.DonorID) (*registry.Donor, error)
	Execute(ctx context.Context, donorID id.DonorID, validate func(*registry.Donor) error, mutate func(*registry.Donor)) (*registry.Donor, error)
}

// UnitOriginator creates a collected blood unit inside the caller's
// transaction context.
type UnitOriginator interface {
	Collect(ctx context.Context, donorID *id.DonorID, volumeML float64) (*bloodunit.BloodUnit, error)
}

// StoreTx serializes a multi-store operation on a single entity key.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// AuditPublisher records lifecycle transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the appointment lifecycle. It is the only writer of
// Donor.LastDonationAt, which it stamps as part of the completion cascade.
type Service struct {
	appts   Store
	events  EventStore
	donors  DonorStore
	units   UnitOriginator
	tx      StoreTx
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer

	// hardBlockIneligible decides whether an ineligible donor blocks booking
	// or is advisory only. Either way the check runs and is audited.
	hardBlockIneligible bool
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

// WithHardBlockIneligible makes donor ineligibility reject bookings instead
// of being advisory.
func WithHardBlockIneligible(block bool) Option {
	return func(s *Service) { s.hardBlockIneligible = block }
}

// New constructs an appointment Service.
func New(appts Store, events EventStore, donors DonorStore, units UnitOriginator, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		appts:  appts,
		events: events,
		donors: donors,
		units:  units,
		tx:     tx,
		tracer: otel.Tracer("lifeline/appointment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books a donor into a drive event.
//
// Checks, in order: the event exists and its date has not passed, the event
// has free capacity (non-cancelled bookings < capacity), and the donor is
// eligible. The eligibility check is advisory unless the service is
// configured to hard-block. Capacity counting and the insert run under the
// event's key so two concurrent bookings cannot both take the last slot.
func (s *Service) Create(ctx context.Context, donorID id.DonorID, eventID id.EventID, timeSlot time.Time) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Create")
	defer span.End()

	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "donor id is required")
	}
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	if timeSlot.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "time slot is required")
	}

	now := requestcontext.Now(ctx)

	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}

	if err := eligibility.Check(donor.LastDonationAt, now); err != nil {
		if s.hardBlockIneligible {
			return nil, err
		}
		s.emit(ctx, audit.Event{
			Action:   audit.ActionIneligibleOverridden,
			EntityID: eventID.String(),
			DonorID:  donorID.String(),
			Detail:   err.Error(),
		})
		if s.logger != nil {
			s.logger.WarnContext(ctx, "booking ineligible donor (advisory policy)",
				"donor_id", donorID.String(),
				"event_id", eventID.String(),
			)
		}
	}

	var appt *Appointment
	err = s.tx.RunInTx(ctx, "event:"+eventID.String(), func(txCtx context.Context) error {
		event, err := s.events.FindByID(txCtx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "event not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
		}
		if !event.IsUpcoming(now) {
			return dErrors.New(dErrors.CodeValidation, "event date has passed")
		}

		booked, err := s.appts.CountActiveByEvent(txCtx, eventID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count bookings")
		}
		if booked >= event.Capacity {
			return dErrors.Newf(dErrors.CodeCapacityExceeded,
				"event is fully booked (%d/%d)", booked, event.Capacity)
		}

		a, err := NewAppointment(id.NewAppointmentID(), donorID, eventID, timeSlot, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		if err := s.appts.Create(txCtx, a); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create appointment")
		}
		appt = a
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionAppointmentCreated,
		EntityID: appt.ID.String(),
		DonorID:  donorID.String(),
	})
	if s.metrics != nil {
		s.metrics.AppointmentsCreated.Inc()
	}
	return appt, nil
}

// Get fetches an appointment by ID.
func (s *Service) Get(ctx context.Context, apptID id.AppointmentID) (*Appointment, error) {
	if apptID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "appointment id is required")
	}
	appt, err := s.appts.FindByID(ctx, apptID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "appointment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load appointment")
	}
	return appt, nil
}

// Transition moves an appointment to next and runs the completion cascade
// when next is Completed: the linked donor's last donation date becomes the
// request time and exactly one blood unit is originated in Collected state
// with the caller-supplied volume. The status write and the cascade commit
// or roll back together; the status write happens last so a failed cascade
// leaves the appointment untouched.
//
// Cancelled and No-Show transitions have no cascading side effects.
func (s *Service) Transition(ctx context.Context, apptID id.AppointmentID, next Status, volumeML *float64) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.Transition")
	defer span.End()

	if apptID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "appointment id is required")
	}
	if next == StatusScheduled {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "appointments cannot return to scheduled")
	}
	if next == StatusCompleted && volumeML == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "completed transitions require the collected volume")
	}

	var updated *Appointment
	var unit *bloodunit.BloodUnit
	err := s.tx.RunInTx(ctx, "appointment:"+apptID.String(), func(txCtx context.Context) error {
		appt, err := s.appts.FindByID(txCtx, apptID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "appointment not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load appointment")
		}
		if err := appt.CanTransition(next); err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		if next == StatusCompleted {
			unit, err = s.units.Collect(txCtx, appt.DonorID, *volumeML)
			if err != nil {
				return err
			}
			if appt.DonorID != nil {
				if err := s.recordDonation(txCtx, *appt.DonorID, now); err != nil {
					return err
				}
			}
		}

		updated, err = s.appts.Execute(txCtx, apptID,
			func(a *Appointment) error { return a.CanTransition(next) },
			func(a *Appointment) { a.Apply(next, now) },
		)
		if err != nil {
			return wrapApptErr(err)
		}
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	event := audit.Event{
		Action:   audit.ActionAppointmentMoved,
		EntityID: apptID.String(),
		Detail:   string(next),
	}
	if updated.DonorID != nil {
		event.DonorID = updated.DonorID.String()
	}
	s.emit(ctx, event)
	if s.metrics != nil {
		switch next {
		case StatusCompleted:
			s.metrics.AppointmentsCompleted.Inc()
		case StatusCancelled, StatusNoShow:
			s.metrics.AppointmentsCancelled.Inc()
		}
	}
	if s.logger != nil {
		attrs := []any{
			"appointment_id", apptID.String(),
			"status", next.String(),
		}
		if unit != nil {
			attrs = append(attrs, "unit_id", unit.ID.String())
		}
		s.logger.InfoContext(ctx, "appointment transitioned", attrs...)
	}
	return updated, nil
}

// recordDonation stamps the donor's last donation date. A donor detached
// between load and cascade is treated as a null link, matching the nullable
// donor semantics.
func (s *Service) recordDonation(ctx context.Context, donorID id.DonorID, now time.Time) error {
	_, err := s.donors.Execute(ctx, donorID, nil,
		func(d *registry.Donor) { d.RecordDonation(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "donor missing during completion cascade",
					"donor_id", donorID.String(),
				)
			}
			return nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "donor is locked by a concurrent operation")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donor")
	}
	return nil
}

// DetachDonor drops the donor link from the donor's appointments. Used by
// the registry on donor deletion.
func (s *Service) DetachDonor(ctx context.Context, donorID id.DonorID) error {
	return s.appts.DetachDonor(ctx, donorID)
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

func wrapApptErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "appointment not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "appointment is locked by a concurrent operation")
	case dErrors.HasCode(err, dErrors.CodeInvalidTransition):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update appointment")
	}
}
