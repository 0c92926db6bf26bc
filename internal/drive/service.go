package drive

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lifeline/internal/audit"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// Store persists drive events.
type Store interface {
	Create(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
	Delete(ctx context.Context, eventID id.EventID) error
}

// AppointmentCascader deletes the appointments of a removed event.
type AppointmentCascader interface {
	DeleteByEvent(ctx context.Context, eventID id.EventID) error
}

// StoreTx serializes a multi-store operation on a single entity key.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// AuditPublisher records schedule changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the drive event schedule.
type Service struct {
	events       Store
	appointments AppointmentCascader
	tx           StoreTx
	logger       *slog.Logger
	auditor      AuditPublisher
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAppointmentCascader registers the appointment store for event-deletion
// cascades.
func WithAppointmentCascader(c AppointmentCascader) Option {
	return func(s *Service) { s.appointments = c }
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// New constructs a drive Service.
func New(events Store, tx StoreTx, opts ...Option) *Service {
	s := &Service{events: events, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent validates and stores a new drive event.
func (s *Service) CreateEvent(ctx context.Context, location string, date time.Time, capacity int) (*Event, error) {
	event, err := NewEvent(id.NewEventID(), location, date, capacity, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionEventCreated,
		EntityID: event.ID.String(),
		Detail:   event.Location,
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "drive event created",
			"event_id", event.ID.String(),
			"location", event.Location,
			"capacity", event.Capacity,
		)
	}
	return event, nil
}

// GetEvent fetches a drive event by ID.
func (s *Service) GetEvent(ctx context.Context, eventID id.EventID) (*Event, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return event, nil
}

// ListEvents returns the full drive schedule.
func (s *Service) ListEvents(ctx context.Context) ([]*Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// DeleteEvent removes an event and cascades deletion to its appointments.
func (s *Service) DeleteEvent(ctx context.Context, eventID id.EventID) error {
	if eventID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	err := s.tx.RunInTx(ctx, "event:"+eventID.String(), func(txCtx context.Context) error {
		if _, err := s.events.FindByID(txCtx, eventID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "event not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
		}
		if s.appointments != nil {
			if err := s.appointments.DeleteByEvent(txCtx, eventID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cascade appointment deletion")
			}
		}
		if err := s.events.Delete(txCtx, eventID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete event")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionEventDeleted,
		EntityID: eventID.String(),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "drive event deleted", "event_id", eventID.String())
	}
	return nil
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
