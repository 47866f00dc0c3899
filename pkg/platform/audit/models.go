package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can route and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers changes to records of regulatory significance.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers routine activity useful for tracing.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an auditable action.
type AuditEvent string

const (
	// EventAgentReassigned is emitted once per contract whose agent changed.
	EventAgentReassigned AuditEvent = "fp_agent_reassigned"
	// EventUploadProcessed is emitted once per processed upload.
	EventUploadProcessed AuditEvent = "fp_upload_processed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAgentReassigned: CategoryCompliance,
	EventUploadProcessed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted by the pipeline to record key actions. It stays
// transport-agnostic so publishers can fan it out anywhere.
type Event struct {
	ID              string        `json:"id"`
	Action          AuditEvent    `json:"action"`
	Category        EventCategory `json:"category"`
	Timestamp       time.Time     `json:"timestamp"`
	CorrelationID   string        `json:"correlationId"`
	Subject         string        `json:"subject"`
	Product         string        `json:"product,omitempty"`
	PreviousAgentID string        `json:"previousAgentId,omitempty"`
	NewAgentID      string        `json:"newAgentId,omitempty"`
	Decision        string        `json:"decision,omitempty"`
	ClientIP        string        `json:"clientIp,omitempty"`
}

// Publisher delivers audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, events ...Event) error
	Close() error
}
