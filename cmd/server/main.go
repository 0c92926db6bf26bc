package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"lifeline/internal/appointment"
	"lifeline/internal/audit"
	"lifeline/internal/bloodunit"
	"lifeline/internal/drive"
	jwttoken "lifeline/internal/jwt_token"
	"lifeline/internal/platform/config"
	"lifeline/internal/platform/httpserver"
	"lifeline/internal/platform/logger"
	"lifeline/internal/platform/metrics"
	"lifeline/internal/registry"
	"lifeline/internal/reporting"
	httptransport "lifeline/internal/transport/http"
	"lifeline/pkg/platform/tx"
)

// txRunner serializes lifecycle operations per entity key. Backed by sharded
// locks in memory and by database transactions plus advisory locks on
// PostgreSQL.
type txRunner interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditor, err := buildAuditPublisher(ctx, cfg, log)
	if err != nil {
		log.Error("audit publisher init failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() { _ = auditor.Close() }()

	deps, err := buildServices(cfg, log, m, auditor)
	if err != nil {
		log.Error("service wiring failed", "error", err.Error())
		os.Exit(1)
	}
	defer deps.close()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "lifeline", "lifeline-api")
	handler := httptransport.NewHandler(deps.registry, deps.drives, deps.appointments, deps.units, deps.reports)
	router := httptransport.NewRouter(handler, jwtService, log, m)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting lifeline server", "addr", cfg.Addr, "postgres", cfg.DatabaseURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

// services bundles the wired domain layer.
type services struct {
	registry     *registry.Service
	drives       *drive.Service
	appointments *appointment.Service
	units        *bloodunit.Service
	reports      *reporting.Service
	db           *sql.DB
}

func (s *services) close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// buildServices selects the storage backend and wires the domain services
// together: the appointment service drives the completion cascade, donor
// deletion detaches appointments and units, event deletion cascades to
// appointments.
func buildServices(cfg config.Server, log *slog.Logger, m *metrics.Metrics, auditor audit.Publisher) (*services, error) {
	var donorStore registry.DonorStore
	var staffStore registry.StaffStore
	var eventStore drive.Store
	var apptStore appointment.Store
	var unitStore bloodunit.Store
	var runner txRunner
	var db *sql.DB

	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			return nil, err
		}
		donorStore = registry.NewPostgresDonorStore(db)
		staffStore = registry.NewPostgresStaffStore(db)
		eventStore = drive.NewPostgresStore(db)
		apptStore = appointment.NewPostgresStore(db)
		unitStore = bloodunit.NewPostgresStore(db)
		runner = newPostgresTx(db)
	} else {
		donorStore = registry.NewInMemoryDonorStore()
		staffStore = registry.NewInMemoryStaffStore()
		eventStore = drive.NewInMemoryStore()
		apptStore = appointment.NewInMemoryStore()
		unitStore = bloodunit.NewInMemoryStore()
		runner = tx.NewSharded(0)
	}

	unitService := bloodunit.New(unitStore, runner,
		bloodunit.WithLogger(log),
		bloodunit.WithMetrics(m),
		bloodunit.WithAuditPublisher(auditor),
	)
	apptService := appointment.New(apptStore, eventStore, donorStore, unitService, runner,
		appointment.WithLogger(log),
		appointment.WithMetrics(m),
		appointment.WithAuditPublisher(auditor),
		appointment.WithHardBlockIneligible(cfg.HardBlockIneligible),
	)
	driveService := drive.New(eventStore, runner,
		drive.WithLogger(log),
		drive.WithAuditPublisher(auditor),
		drive.WithAppointmentCascader(apptStore),
	)
	registryService := registry.New(donorStore, staffStore, runner,
		registry.WithLogger(log),
		registry.WithAuditPublisher(auditor),
		registry.WithDonorDetachers(apptStore, unitService),
	)
	reportService := reporting.New(donorStore, eventStore, apptStore, unitService)

	return &services{
		registry:     registryService,
		drives:       driveService,
		appointments: apptService,
		units:        unitService,
		reports:      reportService,
		db:           db,
	}, nil
}

func buildAuditPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return audit.NewLogPublisher(log), nil
	}
	return audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaAuditTopic)
}
