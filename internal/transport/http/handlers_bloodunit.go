package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/bloodunit"
	"lifeline/internal/transport/http/shared"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// BloodUnitService defines the unit lifecycle operations the handler needs.
type BloodUnitService interface {
	GetUnit(ctx context.Context, unitID id.UnitID) (*bloodunit.BloodUnit, error)
	RecordScreeningResult(ctx context.Context, unitID id.UnitID, result bloodunit.ScreeningResult) (*bloodunit.ScreeningTest, error)
	Distribute(ctx context.Context, unitID id.UnitID) (*bloodunit.BloodUnit, error)
	GetInventory(ctx context.Context, unitID id.UnitID) (*bloodunit.InventoryRecord, error)
}

func (h *Handler) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	unit, err := h.units.GetUnit(r.Context(), unitID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, unit)
}

func (h *Handler) handleRecordScreening(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req RecordScreeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := checkRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := bloodunit.ParseScreeningResult(req.Result)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	test, err := h.units.RecordScreeningResult(r.Context(), unitID, result)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, test)
}

func (h *Handler) handleDistributeUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	unit, err := h.units.Distribute(r.Context(), unitID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, unit)
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.units.GetInventory(r.Context(), unitID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}
