// Package audit captures lifecycle transitions as an append-only event
// stream. Events are emitted after a transaction commits; the stream is an
// operational trail, not a notification channel.
package audit

import "time"

// Action names an audited lifecycle transition.
type Action string

const (
	ActionDonorRegistered      Action = "donor_registered"
	ActionDonorDeleted         Action = "donor_deleted"
	ActionEventCreated         Action = "event_created"
	ActionEventDeleted         Action = "event_deleted"
	ActionAppointmentCreated   Action = "appointment_created"
	ActionAppointmentMoved     Action = "appointment_transitioned"
	ActionUnitCollected        Action = "unit_collected"
	ActionScreeningRecorded    Action = "screening_recorded"
	ActionUnitDistributed      Action = "unit_distributed"
	ActionIneligibleOverridden Action = "ineligible_booking_allowed"
)

// Event is emitted from domain logic to capture key transitions. Keep it
// transport-agnostic so sinks (log, Kafka) can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	// EntityID is the primary subject of the transition (appointment, unit,
	// event or donor, depending on Action).
	EntityID  string `json:"entity_id"`
	DonorID   string `json:"donor_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
