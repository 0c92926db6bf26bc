// Package bloodunit drives collected blood units through testing,
// disposition, and distribution, together with their one-to-one screening
// test and inventory records.
package bloodunit

import (
	"time"

	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// Collected volume bounds in millilitres.
const (
	MinVolumeML = 350.00
	MaxVolumeML = 500.00
)

// UnitStatus is the lifecycle state of a blood unit.
type UnitStatus string

const (
	UnitStatusCollected   UnitStatus = "collected"
	UnitStatusTested      UnitStatus = "tested"
	UnitStatusApproved    UnitStatus = "approved"
	UnitStatusRejected    UnitStatus = "rejected"
	UnitStatusDistributed UnitStatus = "distributed"
)

// unitTransitions is the single source of truth for the unit state machine.
// A Pass result may approve a unit straight from Collected; Rejected and
// Distributed are terminal.
var unitTransitions = map[UnitStatus][]UnitStatus{
	UnitStatusCollected: {UnitStatusTested, UnitStatusApproved, UnitStatusRejected},
	UnitStatusTested:    {UnitStatusApproved, UnitStatusRejected},
	UnitStatusApproved:  {UnitStatusDistributed},
}

// IsValid checks if the status is a supported lifecycle state.
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStatusCollected, UnitStatusTested, UnitStatusApproved, UnitStatusRejected, UnitStatusDistributed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s UnitStatus) CanTransitionTo(next UnitStatus) bool {
	for _, allowed := range unitTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsDispositioned reports whether screening has already decided this status.
func (s UnitStatus) IsDispositioned() bool {
	return s == UnitStatusApproved || s == UnitStatusRejected || s == UnitStatusDistributed
}

// String returns the string representation of the status.
func (s UnitStatus) String() string { return string(s) }

// BloodUnit is one collected unit of blood.
//
// Invariants:
//   - VolumeML is within [350.00, 500.00]
//   - CollectionDate is not after the current date
//   - At most one ScreeningTest and at most one InventoryRecord exist per unit
//   - An InventoryRecord exists only once the unit reaches Approved
type BloodUnit struct {
	ID             id.UnitID   `json:"id"`
	DonorID        *id.DonorID `json:"donor_id,omitempty"`
	CollectionDate time.Time   `json:"collection_date"`
	VolumeML       float64     `json:"volume_ml"`
	Status         UnitStatus  `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewBloodUnit constructs a freshly collected unit.
func NewBloodUnit(unitID id.UnitID, donorID *id.DonorID, collectionDate time.Time, volumeML float64, now time.Time) (*BloodUnit, error) {
	if volumeML < MinVolumeML || volumeML > MaxVolumeML {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
			"unit volume must be between %.2f and %.2f ml", MinVolumeML, MaxVolumeML)
	}
	if dateOf(collectionDate).After(dateOf(now)) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "collection date cannot be in the future")
	}
	return &BloodUnit{
		ID:             unitID,
		DonorID:        donorID,
		CollectionDate: collectionDate,
		VolumeML:       volumeML,
		Status:         UnitStatusCollected,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanTransition checks if the unit may move to next.
func (u *BloodUnit) CanTransition(next UnitStatus) error {
	if !u.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot transition unit from %s to %s", u.Status, next)
	}
	return nil
}

// Apply moves the unit to next. Call CanTransition first.
func (u *BloodUnit) Apply(next UnitStatus, now time.Time) {
	u.Status = next
	u.UpdatedAt = now
}

// ScreeningResult is the outcome of a screening test.
type ScreeningResult string

const (
	ScreeningResultPass    ScreeningResult = "pass"
	ScreeningResultFail    ScreeningResult = "fail"
	ScreeningResultPending ScreeningResult = "pending"
)

// ParseScreeningResult constructs a ScreeningResult from external input.
func ParseScreeningResult(s string) (ScreeningResult, error) {
	switch ScreeningResult(s) {
	case ScreeningResultPass, ScreeningResultFail, ScreeningResultPending:
		return ScreeningResult(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "result must be pass, fail or pending")
}

// TargetStatus maps a screening result onto the unit disposition it drives.
func (r ScreeningResult) TargetStatus() UnitStatus {
	switch r {
	case ScreeningResultPass:
		return UnitStatusApproved
	case ScreeningResultFail:
		return UnitStatusRejected
	default:
		return UnitStatusTested
	}
}

// String returns the string representation of the result.
func (r ScreeningResult) String() string { return string(r) }

// ScreeningTest is the one-to-one test record of a blood unit. A Pending
// result may be re-recorded later; Pass and Fail are final.
type ScreeningTest struct {
	ID       id.ScreeningID  `json:"id"`
	UnitID   id.UnitID       `json:"unit_id"`
	TestDate time.Time       `json:"test_date"`
	Result   ScreeningResult `json:"result"`
}

// InventoryRecord marks an approved unit as stock. Exactly one exists per
// approved unit; distribution flags it consumed rather than deleting it.
type InventoryRecord struct {
	ID             id.InventoryID `json:"id"`
	UnitID         id.UnitID      `json:"unit_id"`
	CollectionDate time.Time      `json:"collection_date"`
	AmountML       float64        `json:"amount_ml"`
	CreatedAt      time.Time      `json:"created_at"`
	ConsumedAt     *time.Time     `json:"consumed_at,omitempty"`
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
