package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"accai/internal/fpchange/models"
	"accai/pkg/platform/audit"
	"accai/pkg/requestcontext"
)

const decisionPersisted = "persisted"

// emit publishes audit events. Publisher failures are logged and never
// change the report.
func (s *Service) emit(ctx context.Context, log *slog.Logger, events ...audit.Event) {
	if s.auditor == nil || len(events) == 0 {
		return
	}
	if err := s.auditor.Emit(ctx, events...); err != nil {
		log.WarnContext(ctx, "fp_audit_emit_failed", "events", len(events), "error", err)
	}
}

func newEvent(ctx context.Context, action audit.AuditEvent, subject string) audit.Event {
	return audit.Event{
		ID:            uuid.NewString(),
		Action:        action,
		Category:      action.Category(),
		Timestamp:     requestcontext.Now(ctx),
		CorrelationID: requestcontext.CorrelationID(ctx),
		Subject:       subject,
		ClientIP:      requestcontext.ClientIP(ctx),
	}
}

// reassignmentEvents records the changes the contract store actually applied.
func reassignmentEvents(ctx context.Context, applied []models.ChangeRequest) []audit.Event {
	events := make([]audit.Event, 0, len(applied))
	for _, c := range applied {
		e := newEvent(ctx, audit.EventAgentReassigned, c.ContractNumber)
		e.Product = c.Product
		e.PreviousAgentID = c.PreviousAgentID
		e.NewAgentID = c.NewAgentID
		e.Decision = decisionPersisted
		events = append(events, e)
	}
	return events
}

func uploadEvent(ctx context.Context, report *models.Report, outcome string) audit.Event {
	e := newEvent(ctx, audit.EventUploadProcessed, report.CorrelationID)
	e.Decision = outcome
	return e
}
