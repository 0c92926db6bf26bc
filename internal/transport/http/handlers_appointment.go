package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/appointment"
	"lifeline/internal/transport/http/shared"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// AppointmentService defines the appointment lifecycle operations the
// handler needs.
type AppointmentService interface {
	Create(ctx context.Context, donorID id.DonorID, eventID id.EventID, timeSlot time.Time) (*appointment.Appointment, error)
	Get(ctx context.Context, apptID id.AppointmentID) (*appointment.Appointment, error)
	Transition(ctx context.Context, apptID id.AppointmentID, next appointment.Status, volumeML *float64) (*appointment.Appointment, error)
}

func (h *Handler) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := checkRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}
	donorID, err := id.ParseDonorID(req.DonorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	eventID, err := id.ParseEventID(req.EventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	appt, err := h.appointments.Create(r.Context(), donorID, eventID, req.TimeSlot)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, appt)
}

func (h *Handler) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	apptID, err := id.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	appt, err := h.appointments.Get(r.Context(), apptID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) handleTransitionAppointment(w http.ResponseWriter, r *http.Request) {
	apptID, err := id.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req TransitionAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := checkRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}
	status, err := appointment.ParseStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	appt, err := h.appointments.Transition(r.Context(), apptID, status, req.VolumeML)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, appt)
}
