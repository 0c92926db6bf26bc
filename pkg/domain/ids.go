// Package domain holds identifiers and value types shared across the
// donation-program services.
//
// IDs are distinct types over uuid.UUID so the compiler rejects passing a
// DonorID where an EventID is expected. Construct IDs from external input
// via the Parse helpers; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "lifeline/pkg/domain-errors"
)

type (
	// DonorID identifies a registered donor.
	DonorID uuid.UUID
	// StaffID identifies a staff member.
	StaffID uuid.UUID
	// EventID identifies a drive event.
	EventID uuid.UUID
	// AppointmentID identifies an appointment.
	AppointmentID uuid.UUID
	// UnitID identifies a collected blood unit.
	UnitID uuid.UUID
	// ScreeningID identifies a screening test record.
	ScreeningID uuid.UUID
	// InventoryID identifies an inventory record.
	InventoryID uuid.UUID
)

func (id DonorID) String() string       { return uuid.UUID(id).String() }
func (id StaffID) String() string       { return uuid.UUID(id).String() }
func (id EventID) String() string       { return uuid.UUID(id).String() }
func (id AppointmentID) String() string { return uuid.UUID(id).String() }
func (id UnitID) String() string        { return uuid.UUID(id).String() }
func (id ScreeningID) String() string   { return uuid.UUID(id).String() }
func (id InventoryID) String() string   { return uuid.UUID(id).String() }

func (id DonorID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AppointmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UnitID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// NewDonorID returns a fresh random donor ID.
func NewDonorID() DonorID { return DonorID(uuid.New()) }

// NewStaffID returns a fresh random staff ID.
func NewStaffID() StaffID { return StaffID(uuid.New()) }

// NewEventID returns a fresh random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewAppointmentID returns a fresh random appointment ID.
func NewAppointmentID() AppointmentID { return AppointmentID(uuid.New()) }

// NewUnitID returns a fresh random unit ID.
func NewUnitID() UnitID { return UnitID(uuid.New()) }

// NewScreeningID returns a fresh random screening ID.
func NewScreeningID() ScreeningID { return ScreeningID(uuid.New()) }

// NewInventoryID returns a fresh random inventory ID.
func NewInventoryID() InventoryID { return InventoryID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseDonorID constructs a DonorID from external input.
func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return DonorID{}, err
	}
	return DonorID(u), nil
}

// ParseStaffID constructs a StaffID from external input.
func ParseStaffID(s string) (StaffID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return StaffID{}, err
	}
	return StaffID(u), nil
}

// ParseEventID constructs an EventID from external input.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

// ParseAppointmentID constructs an AppointmentID from external input.
func ParseAppointmentID(s string) (AppointmentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AppointmentID{}, err
	}
	return AppointmentID(u), nil
}

// ParseUnitID constructs a UnitID from external input.
func ParseUnitID(s string) (UnitID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UnitID{}, err
	}
	return UnitID(u), nil
}
