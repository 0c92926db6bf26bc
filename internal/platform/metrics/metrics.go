package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AppointmentsCreated   prometheus.Counter
	AppointmentsCompleted prometheus.Counter
	AppointmentsCancelled prometheus.Counter
	UnitsCollected        prometheus.Counter
	UnitsApproved         prometheus.Counter
	UnitsRejected         prometheus.Counter
	UnitsDistributed      prometheus.Counter
	LifecycleConflicts    prometheus.Counter
	RequestDuration       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AppointmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_appointments_created_total",
			Help: "Total number of appointments created.",
		}),
		AppointmentsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_appointments_completed_total",
			Help: "Total number of appointments that reached Completed.",
		}),
		AppointmentsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_appointments_cancelled_total",
			Help: "Total number of appointments cancelled or marked no-show.",
		}),
		UnitsCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_units_collected_total",
			Help: "Total number of blood units collected.",
		}),
		UnitsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_units_approved_total",
			Help: "Total number of blood units approved into inventory.",
		}),
		UnitsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_units_rejected_total",
			Help: "Total number of blood units rejected after screening.",
		}),
		UnitsDistributed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_units_distributed_total",
			Help: "Total number of blood units distributed from inventory.",
		}),
		LifecycleConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_lifecycle_conflicts_total",
			Help: "Total number of lifecycle operations aborted on lock contention.",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifeline_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}
