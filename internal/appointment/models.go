// Package appointment owns the appointment state machine and the completion
// cascade: completing an appointment stamps the donor's last donation date
// and originates exactly one collected blood unit, atomically with the
// status write.
package appointment

import (
	"time"

	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// transitions is the single source of truth for the appointment state
// machine. Completed, Cancelled and No-Show are terminal.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid appointment status")
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// String returns the string representation of the status.
func (s Status) String() string { return string(s) }

// Appointment is a donor's booked slot at a drive event.
//
// Invariants:
//   - Created in Scheduled state
//   - Status moves only along the transitions table
//   - DonorID is nullable: donor deletion detaches rather than deletes
//   - Event deletion deletes the appointment (cascade, enforced by the
//     drive service)
type Appointment struct {
	ID          id.AppointmentID `json:"id"`
	DonorID     *id.DonorID      `json:"donor_id,omitempty"`
	EventID     id.EventID       `json:"event_id"`
	TimeSlot    time.Time        `json:"time_slot"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewAppointment constructs an appointment in the initial Scheduled state.
func NewAppointment(apptID id.AppointmentID, donorID id.DonorID, eventID id.EventID, timeSlot time.Time, now time.Time) (*Appointment, error) {
	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "appointment requires a donor")
	}
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "appointment requires an event")
	}
	if timeSlot.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "appointment requires a time slot")
	}
	d := donorID
	return &Appointment{
		ID:        apptID,
		DonorID:   &d,
		EventID:   eventID,
		TimeSlot:  timeSlot,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransition checks if the appointment may move to next.
func (a *Appointment) CanTransition(next Status) error {
	if !a.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot transition appointment from %s to %s", a.Status, next)
	}
	return nil
}

// Apply moves the appointment to next. Call CanTransition first.
func (a *Appointment) Apply(next Status, now time.Time) {
	a.Status = next
	a.UpdatedAt = now
	if next == StatusCompleted {
		t := now
		a.CompletedAt = &t
	}
}

// CountsAgainstCapacity reports whether the appointment consumes a booking
// slot. Cancelled appointments release their slot; no-shows keep it, since
// the slot went unused but was not freed in time to rebook.
func (a *Appointment) CountsAgainstCapacity() bool {
	return a.Status != StatusCancelled
}
