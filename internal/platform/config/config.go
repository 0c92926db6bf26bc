package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr string

	// DatabaseURL selects the PostgreSQL stores when set; empty means the
	// in-memory stores, which is the default for local development.
	DatabaseURL string

	// KafkaBrokers selects the Kafka audit publisher when non-empty;
	// otherwise audit events go to the structured log.
	KafkaBrokers    []string
	KafkaAuditTopic string

	JWTSigningKey string

	// HardBlockIneligible turns the advisory donor eligibility check on
	// booking into a hard rejection.
	HardBlockIneligible bool

	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("LIFELINE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "lifeline.audit"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:                addr,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaAuditTopic:     topic,
		JWTSigningKey:       jwtSigningKey,
		HardBlockIneligible: os.Getenv("HARD_BLOCK_INELIGIBLE") == "true",
		ShutdownTimeout:     durationEnv("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
