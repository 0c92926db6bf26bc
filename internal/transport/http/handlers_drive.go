package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/drive"
	"lifeline/internal/transport/http/shared"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// DriveService defines the drive event operations the handler needs.
type DriveService interface {
	CreateEvent(ctx context.Context, location string, date time.Time, capacity int) (*drive.Event, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*drive.Event, error)
	ListEvents(ctx context.Context) ([]*drive.Event, error)
	DeleteEvent(ctx context.Context, eventID id.EventID) error
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := checkRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	event, err := h.drives.CreateEvent(r.Context(), req.Location, req.Date, req.Capacity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	event, err := h.drives.GetEvent(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.drives.ListEvents(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if events == nil {
		events = []*drive.Event{}
	}
	shared.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.drives.DeleteEvent(r.Context(), eventID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
