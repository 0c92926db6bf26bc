package httptransport

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	dErrors "lifeline/pkg/domain-errors"
)

var validate = validator.New()

// RegisterDonorRequest creates a donor.
type RegisterDonorRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Contact   string `json:"contact" validate:"required,max=200"`
	BloodType string `json:"blood_type" validate:"required"`
}

// RegisterStaffRequest creates a staff member.
type RegisterStaffRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Contact   string `json:"contact" validate:"required,max=200"`
	JobRole   string `json:"job_role" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Kind      string `json:"kind" validate:"required,oneof=field drive"`
}

// CreateEventRequest schedules a drive event.
type CreateEventRequest struct {
	Location string    `json:"location" validate:"required,max=200"`
	Date     time.Time `json:"date" validate:"required"`
	Capacity int       `json:"capacity" validate:"required,gt=0"`
}

// CreateAppointmentRequest books a donor into an event.
type CreateAppointmentRequest struct {
	DonorID  string    `json:"donor_id" validate:"required,uuid4"`
	EventID  string    `json:"event_id" validate:"required,uuid4"`
	TimeSlot time.Time `json:"time_slot" validate:"required"`
}

// TransitionAppointmentRequest moves an appointment through its lifecycle.
// VolumeML is required when the target status is completed.
type TransitionAppointmentRequest struct {
	Status   string   `json:"status" validate:"required"`
	VolumeML *float64 `json:"volume_ml,omitempty" validate:"omitempty,gt=0"`
}

// RecordScreeningRequest records a unit's screening result.
type RecordScreeningRequest struct {
	Result string `json:"result" validate:"required,oneof=pass fail pending"`
}

// checkRequest runs struct validation and converts failures to the domain
// error envelope.
func checkRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "request validation misconfigured")
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	return nil
}
