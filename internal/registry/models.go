// Package registry owns the people records of the donation program: donors
// and staff, each composed over a Person value.
package registry

import (
	"strings"
	"time"

	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// Person holds the identity attributes shared by donors and staff. It is a
// value owned by its enclosing record rather than an independent aggregate,
// so deleting a donor removes the person with it.
type Person struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Contact   string `json:"contact"`
}

// FullName joins the name parts for display in views.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Person) validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "first name cannot be empty")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "last name cannot be empty")
	}
	return nil
}

// Donor is a person registered to give blood.
//
// Invariants:
//   - BloodType is one of the eight supported groups
//   - LastDonationAt is nil or not after the current date; when set it
//     reflects the most recent completed appointment for this donor
//   - LastDonationAt is mutated only by the appointment completion cascade
type Donor struct {
	ID             id.DonorID   `json:"id"`
	Person         Person       `json:"person"`
	BloodType      id.BloodType `json:"blood_type"`
	LastDonationAt *time.Time   `json:"last_donation_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewDonor constructs a donor, enforcing construction invariants.
func NewDonor(donorID id.DonorID, person Person, bloodType id.BloodType, now time.Time) (*Donor, error) {
	if err := person.validate(); err != nil {
		return nil, err
	}
	if !bloodType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid blood type")
	}
	return &Donor{
		ID:        donorID,
		Person:    person,
		BloodType: bloodType,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RecordDonation moves the last-donation marker forward. The marker never
// moves backwards: a completion observed with an older date is ignored.
func (d *Donor) RecordDonation(donatedAt time.Time) {
	if d.LastDonationAt != nil && d.LastDonationAt.After(donatedAt) {
		return
	}
	t := donatedAt
	d.LastDonationAt = &t
	d.UpdatedAt = donatedAt
}

// StaffKind tags the staff specialization. The source system modeled field
// and drive staff as separate extension tables with a duplicated email; here
// they are variants of one Staff record and the email lives only on Staff.
type StaffKind string

const (
	StaffKindField StaffKind = "field"
	StaffKindDrive StaffKind = "drive"
)

// IsValid checks if the staff kind is a supported variant.
func (k StaffKind) IsValid() bool {
	return k == StaffKindField || k == StaffKindDrive
}

// Staff is a program worker. Email is unique across all staff.
type Staff struct {
	ID        id.StaffID `json:"id"`
	Person    Person     `json:"person"`
	JobRole   string     `json:"job_role"`
	Email     string     `json:"email"`
	Kind      StaffKind  `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewStaff constructs a staff record, enforcing construction invariants.
func NewStaff(staffID id.StaffID, person Person, jobRole, email string, kind StaffKind, now time.Time) (*Staff, error) {
	if err := person.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(jobRole) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "job role cannot be empty")
	}
	if strings.TrimSpace(email) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid staff kind")
	}
	return &Staff{
		ID:        staffID,
		Person:    person,
		JobRole:   strings.TrimSpace(jobRole),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
