// Package ports declares what the upload pipeline needs from the outside
// world, so the service never depends on a concrete adapter.
package ports

//go:generate mockgen -source=ports.go -destination=../service/mocks/mocks.go -package=mocks Dispatcher,DispatcherResolver,ContractStore,ReportStore,AuditPublisher

import (
	"context"

	"accai/internal/fpchange/dispatch"
	"accai/internal/fpchange/models"
	"accai/pkg/platform/audit"
)

// Dispatcher forwards one change request to a product's change service.
type Dispatcher interface {
	dispatch.Dispatcher
}

// DispatcherResolver finds the dispatcher serving a product code.
// Unknown products fail with a service.unresolved fault.
type DispatcherResolver interface {
	Resolve(productCode string) (dispatch.Dispatcher, error)
}

// ContractStore applies confirmed reassignments in bulk and returns the
// changes that took effect. Failures are db.timeout or db.update_failed faults.
type ContractStore interface {
	ApplyChanges(ctx context.Context, changes []models.ChangeRequest) ([]models.ChangeRequest, error)
}

// ReportStore keeps finished reports for retrieval by correlation id.
type ReportStore interface {
	Save(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, correlationID string) (*models.Report, error)
}

// AuditPublisher emits audit events. Failures never affect the report.
type AuditPublisher interface {
	Emit(ctx context.Context, events ...audit.Event) error
}
