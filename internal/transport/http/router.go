// Package httptransport is the thin HTTP layer. Handlers decode, validate
// and delegate to the domain services; business rules stay out of here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifeline/internal/platform/metrics"
	"lifeline/internal/platform/middleware"
	"lifeline/internal/transport/http/shared"
)

// Handler aggregates the domain services behind the HTTP API.
type Handler struct {
	registry     RegistryService
	drives       DriveService
	appointments AppointmentService
	units        BloodUnitService
	reports      ReportingService
}

func NewHandler(
	registry RegistryService,
	drives DriveService,
	appointments AppointmentService,
	units BloodUnitService,
	reports ReportingService,
) *Handler {
	return &Handler{
		registry:     registry,
		drives:       drives,
		appointments: appointments,
		units:        units,
		reports:      reports,
	}
}

// NewRouter wires all endpoints. Donor and event management is open to any
// staff role; screening and distribution need field staff; event deletion
// and staff management need a drive manager.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	anyStaff := middleware.RequireRole(validator, logger,
		middleware.RoleFieldStaff, middleware.RoleDriveStaff)
	fieldStaff := middleware.RequireRole(validator, logger, middleware.RoleFieldStaff)
	driveManager := middleware.RequireRole(validator, logger, middleware.RoleDriveStaff)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(anyStaff)

		r.Post("/donors", h.handleRegisterDonor)
		r.Get("/donors/{donorID}", h.handleGetDonor)
		r.Get("/donors/{donorID}/summary", h.handleDonorSummary)
		r.Get("/donors/{donorID}/eligibility", h.handleDonorEligibility)

		r.Post("/events", h.handleCreateEvent)
		r.Get("/events", h.handleListEvents)
		r.Get("/events/{eventID}", h.handleGetEvent)
		r.Get("/events/{eventID}/bookings", h.handleEventBookingSummary)

		r.Post("/appointments", h.handleCreateAppointment)
		r.Get("/appointments/{appointmentID}", h.handleGetAppointment)
		r.Post("/appointments/{appointmentID}/transition", h.handleTransitionAppointment)

		r.Get("/units/{unitID}", h.handleGetUnit)
		r.Get("/units/{unitID}/inventory", h.handleGetInventory)
		r.Get("/units/distributable", h.handleDistributableUnits)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(fieldStaff)

		r.Post("/units/{unitID}/screening", h.handleRecordScreening)
		r.Post("/units/{unitID}/distribute", h.handleDistributeUnit)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(driveManager)

		r.Delete("/donors/{donorID}", h.handleDeleteDonor)
		r.Delete("/events/{eventID}", h.handleDeleteEvent)
		r.Post("/staff", h.handleRegisterStaff)
		r.Get("/staff", h.handleListStaff)
		r.Get("/staff/{staffID}", h.handleGetStaff)
	})

	return r
}
