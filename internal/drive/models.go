// Package drive owns scheduled donation drive events.
package drive

import (
	"strings"
	"time"

	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// Event is a scheduled donation drive at a location.
//
// Invariants:
//   - Date is today or in the future at creation time
//   - Capacity is a positive integer
//   - Deleting an event deletes its appointments (cascade)
type Event struct {
	ID        id.EventID `json:"id"`
	Location  string     `json:"location"`
	Date      time.Time  `json:"date"`
	Capacity  int        `json:"capacity"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewEvent constructs a drive event, enforcing construction invariants.
// Date comparison is by calendar day, so an event later today is valid.
func NewEvent(eventID id.EventID, location string, date time.Time, capacity int, now time.Time) (*Event, error) {
	if strings.TrimSpace(location) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event location cannot be empty")
	}
	if capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event capacity must be positive")
	}
	if dateOf(date).Before(dateOf(now)) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event date cannot be in the past")
	}
	return &Event{
		ID:        eventID,
		Location:  strings.TrimSpace(location),
		Date:      date,
		Capacity:  capacity,
		CreatedAt: now,
	}, nil
}

// IsUpcoming reports whether the event is still bookable relative to now.
func (e *Event) IsUpcoming(now time.Time) bool {
	return !dateOf(e.Date).Before(dateOf(now))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
