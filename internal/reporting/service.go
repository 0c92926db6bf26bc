// Package reporting computes read-only projections over the lifecycle
// entities. Views are derived per request from current state and hold no
// state of their own.
package reporting

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"lifeline/internal/appointment"
	"lifeline/internal/bloodunit"
	"lifeline/internal/drive"
	"lifeline/internal/eligibility"
	"lifeline/internal/registry"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// DonorSummary joins a donor's identity with their most recent appointment,
// if any. Donors with no appointment still get a summary.
type DonorSummary struct {
	DonorID        id.DonorID         `json:"donor_id"`
	FullName       string             `json:"full_name"`
	BloodType      id.BloodType       `json:"blood_type"`
	LastDonationAt *time.Time         `json:"last_donation_at,omitempty"`
	Eligible       bool               `json:"eligible"`
	NextEligibleOn *time.Time         `json:"next_eligible_on,omitempty"`
	Latest         *LatestAppointment `json:"latest_appointment,omitempty"`
}

// LatestAppointment is the donor's most recent appointment by time slot,
// with its event's location and date denormalized in.
type LatestAppointment struct {
	AppointmentID id.AppointmentID   `json:"appointment_id"`
	Status        appointment.Status `json:"status"`
	TimeSlot      time.Time          `json:"time_slot"`
	EventLocation string             `json:"event_location"`
	EventDate     time.Time          `json:"event_date"`
}

// EventBookingSummary counts an event's appointments. Total includes every
// status; ActiveBookings excludes cancelled and is the number that competes
// for capacity.
type EventBookingSummary struct {
	EventID           id.EventID `json:"event_id"`
	Location          string     `json:"location"`
	Date              time.Time  `json:"date"`
	Capacity          int        `json:"capacity"`
	TotalAppointments int        `json:"total_appointments"`
	ActiveBookings    int        `json:"active_bookings"`
	SlotsRemaining    int        `json:"slots_remaining"`
}

// DonorReader reads donors.
type DonorReader interface {
	FindByID(ctx context.Context, donorID id.DonorID) (*registry.Donor, error)
}

// EventReader reads drive events.
type EventReader interface {
	FindByID(ctx context.Context, eventID id.EventID) (*drive.Event, error)
}

// AppointmentReader reads appointments.
type AppointmentReader interface {
	ListByDonor(ctx context.Context, donorID id.DonorID) ([]*appointment.Appointment, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]*appointment.Appointment, error)
}

// UnitReader reads distributable blood units.
type UnitReader interface {
	ListDistributable(ctx context.Context) ([]*bloodunit.BloodUnit, error)
}

// Service assembles reporting views from the entity readers.
type Service struct {
	donors DonorReader
	events EventReader
	appts  AppointmentReader
	units  UnitReader
}

// New constructs a reporting Service.
func New(donors DonorReader, events EventReader, appts AppointmentReader, units UnitReader) *Service {
	return &Service{donors: donors, events: events, appts: appts, units: units}
}

// DonorSummary builds the donor view. The donor record and the appointment
// list load concurrently; the latest appointment's event loads afterwards.
func (s *Service) DonorSummary(ctx context.Context, donorID id.DonorID) (*DonorSummary, error) {
	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "donor id is required")
	}

	var donor *registry.Donor
	var appts []*appointment.Appointment
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.donors.FindByID(gCtx, donorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "donor not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
		}
		donor = d
		return nil
	})
	g.Go(func() error {
		a, err := s.appts.ListByDonor(gCtx, donorID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list appointments")
		}
		appts = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	elig := eligibility.Evaluate(donor.LastDonationAt, requestcontext.Now(ctx))
	summary := &DonorSummary{
		DonorID:        donor.ID,
		FullName:       donor.Person.FullName(),
		BloodType:      donor.BloodType,
		LastDonationAt: donor.LastDonationAt,
		Eligible:       elig.Eligible,
	}
	if !elig.Eligible {
		next := elig.NextEligibleOn
		summary.NextEligibleOn = &next
	}

	latest := latestAppointment(appts)
	if latest == nil {
		return summary, nil
	}
	event, err := s.events.FindByID(ctx, latest.EventID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
		}
		// Event deletion cascades to appointments, but a view computed
		// mid-cascade may still see the appointment. Report it without
		// event details rather than failing the whole summary.
		summary.Latest = &LatestAppointment{
			AppointmentID: latest.ID,
			Status:        latest.Status,
			TimeSlot:      latest.TimeSlot,
		}
		return summary, nil
	}
	summary.Latest = &LatestAppointment{
		AppointmentID: latest.ID,
		Status:        latest.Status,
		TimeSlot:      latest.TimeSlot,
		EventLocation: event.Location,
		EventDate:     event.Date,
	}
	return summary, nil
}

// EventBookingSummary builds the booking view for a drive event.
func (s *Service) EventBookingSummary(ctx context.Context, eventID id.EventID) (*EventBookingSummary, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "event id is required")
	}

	var event *drive.Event
	var appts []*appointment.Appointment
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.events.FindByID(gCtx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "event not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
		}
		event = e
		return nil
	})
	g.Go(func() error {
		a, err := s.appts.ListByEvent(gCtx, eventID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list appointments")
		}
		appts = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	active := 0
	for _, a := range appts {
		if a.CountsAgainstCapacity() {
			active++
		}
	}
	remaining := event.Capacity - active
	if remaining < 0 {
		remaining = 0
	}
	return &EventBookingSummary{
		EventID:           event.ID,
		Location:          event.Location,
		Date:              event.Date,
		Capacity:          event.Capacity,
		TotalAppointments: len(appts),
		ActiveBookings:    active,
		SlotsRemaining:    remaining,
	}, nil
}

// DonorEligibility evaluates the 112 day window for a donor as of the
// request time.
func (s *Service) DonorEligibility(ctx context.Context, donorID id.DonorID) (*eligibility.Result, error) {
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
	res := eligibility.Evaluate(donor.LastDonationAt, requestcontext.Now(ctx))
	return &res, nil
}

// DistributableUnits lists approved units whose inventory is unconsumed.
func (s *Service) DistributableUnits(ctx context.Context) ([]*bloodunit.BloodUnit, error) {
	units, err := s.units.ListDistributable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list distributable units")
	}
	return units, nil
}

func latestAppointment(appts []*appointment.Appointment) *appointment.Appointment {
	var latest *appointment.Appointment
	for _, a := range appts {
		if latest == nil || a.TimeSlot.After(latest.TimeSlot) {
			latest = a
		}
	}
	return latest
}
