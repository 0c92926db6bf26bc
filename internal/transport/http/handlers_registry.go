package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/registry"
	"lifeline/internal/transport/http/shared"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
)

// RegistryService defines the donor and staff operations the handler needs.
type RegistryService interface {
	RegisterDonor(ctx context.Context, person registry.Person, bloodType id.BloodType) (*registry.Donor, error)
	GetDonor(ctx context.Context, donorID id.DonorID) (*registry.Donor, error)
	DeleteDonor(ctx context.Context, donorID id.DonorID) error
	RegisterStaff(ctx context.Context, person registry.Person, jobRole, email string, kind registry.StaffKind) (*registry.Staff, error)
	GetStaff(ctx context.Context, staffID id.StaffID) (*registry.Staff, error)
	ListStaffByKind(ctx context.Context, kind registry.StaffKind) ([]*registry.Staff, error)
}

func (h *Handler) handleRegisterDonor(w http.ResponseWriter, r *http.Request) {
	var req RegisterDonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := checkRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}
	bloodType, err := id.ParseBloodType(req.BloodType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	donor, err := h.registry.RegisterDonor(r.Context(), registry.Person{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Contact:   req.Contact,
	}, bloodType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, donor)
}

func (h *Handler) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	donor, err := h.registry.GetDonor(r.Context(), donorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, donor)
}

func (h *Handler) handleDeleteDonor(w http.ResponseWriter, r *http.Request) {
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.registry.DeleteDonor(r.Context(), donorID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegisterStaff(w http.ResponseWriter, r *http.Request) {
	var req RegisterStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := checkRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	staff, err := h.registry.RegisterStaff(r.Context(), registry.Person{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Contact:   req.Contact,
	}, req.JobRole, req.Email, registry.StaffKind(req.Kind))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, staff)
}

func (h *Handler) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	staffID, err := id.ParseStaffID(chi.URLParam(r, "staffID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	staff, err := h.registry.GetStaff(r.Context(), staffID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, staff)
}

func (h *Handler) handleListStaff(w http.ResponseWriter, r *http.Request) {
	kind := registry.StaffKind(r.URL.Query().Get("kind"))
	if !kind.IsValid() {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "kind must be field or drive"))
		return
	}
	staff, err := h.registry.ListStaffByKind(r.Context(), kind)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if staff == nil {
		staff = []*registry.Staff{}
	}
	shared.WriteJSON(w, http.StatusOK, staff)
}
