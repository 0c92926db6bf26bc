package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/bloodunit"
	"lifeline/internal/eligibility"
	"lifeline/internal/reporting"
	"lifeline/internal/transport/http/shared"
	id "lifeline/pkg/domain"
)

// ReportingService defines the read-only views the handler needs.
type ReportingService interface {
	DonorSummary(ctx context.Context, donorID id.DonorID) (*reporting.DonorSummary, error)
	EventBookingSummary(ctx context.Context, eventID id.EventID) (*reporting.EventBookingSummary, error)
	DonorEligibility(ctx context.Context, donorID id.DonorID) (*eligibility.Result, error)
	DistributableUnits(ctx context.Context) ([]*bloodunit.BloodUnit, error)
}

func (h *Handler) handleDonorSummary(w http.ResponseWriter, r *http.Request) {
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	summary, err := h.reports.DonorSummary(r.Context(), donorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleEventBookingSummary(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	summary, err := h.reports.EventBookingSummary(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleDonorEligibility(w http.ResponseWriter, r *http.Request) {
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.reports.DonorEligibility(r.Context(), donorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDistributableUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.reports.DistributableUnits(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if units == nil {
		units = []*bloodunit.BloodUnit{}
	}
	shared.WriteJSON(w, http.StatusOK, units)
}
