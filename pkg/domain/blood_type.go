package domain

import dErrors "lifeline/pkg/domain-errors"

// BloodType is the ABO/Rh group of a donor and the units collected from them.
// Invariant: the value must be one of the eight supported groups.
//
// Construct via ParseBloodType at trust boundaries to enforce the allowlist;
// direct casting bypasses validation.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

// validBloodTypes is the single source of truth for supported groups.
var validBloodTypes = map[BloodType]bool{
	BloodTypeAPos:  true,
	BloodTypeANeg:  true,
	BloodTypeBPos:  true,
	BloodTypeBNeg:  true,
	BloodTypeABPos: true,
	BloodTypeABNeg: true,
	BloodTypeOPos:  true,
	BloodTypeONeg:  true,
}

// ParseBloodType constructs a BloodType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseBloodType(s string) (BloodType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blood type cannot be empty")
	}
	bt := BloodType(s)
	if !bt.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid blood type")
	}
	return bt, nil
}

// IsValid checks if the blood type is one of the supported groups.
func (b BloodType) IsValid() bool {
	return validBloodTypes[b]
}

// String returns the string representation of the blood type.
func (b BloodType) String() string {
	return string(b)
}
