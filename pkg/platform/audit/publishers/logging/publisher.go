// Package logging provides an audit publisher that writes events to slog.
// It is the fallback sink when no broker is configured.
package logging

import (
	"context"
	"log/slog"

	audit "accai/pkg/platform/audit"
)

// Publisher logs each audit event at info level.
type Publisher struct {
	logger *slog.Logger
}

// New creates a logging publisher. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger}
}

// Emit logs events. It never fails.
func (p *Publisher) Emit(ctx context.Context, events ...audit.Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "audit_event",
			"audit_id", e.ID,
			"action", string(e.Action),
			"category", string(e.Category),
			"correlation_id", e.CorrelationID,
			"subject", e.Subject,
			"product", e.Product,
			"previous_agent_id", e.PreviousAgentID,
			"new_agent_id", e.NewAgentID,
			"decision", e.Decision,
		)
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
