package audit

import (
	"context"
	"log/slog"
	"time"

	"lifeline/pkg/requestcontext"
)

// Publisher is the sink for audit events. Implementations must be safe for
// concurrent use. Emit is best-effort from the caller's perspective: services
// log publish failures but never fail a committed operation over them.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes audit events to structured logs. It is the default
// sink when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	p.logger.InfoContext(ctx, string(event.Action),
		"log_type", "audit",
		"entity_id", event.EntityID,
		"donor_id", event.DonorID,
		"detail", event.Detail,
		"request_id", event.RequestID,
		"timestamp", event.Timestamp.Format(time.RFC3339),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
