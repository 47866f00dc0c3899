package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"accai/internal/fpchange/dispatch"
	"accai/internal/fpchange/faults"
	"accai/internal/fpchange/models"
)

const contractsTarget = "contratos"

// Dispatch results recorded in metrics.
const (
	resultConfirmed = "confirmed"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

// dispatchOutcome is the result of forwarding one row.
type dispatchOutcome struct {
	row       models.NumberedRow
	change    models.ChangeRequest
	confirmed bool
	err       *faults.Fault
}

// processGroup dispatches every row of a group and persists the confirmed
// changes in one bulk call. Row failures come back as RowErrors; the error
// is non-nil only when ctx ends.
func (s *Service) processGroup(ctx context.Context, log *slog.Logger, grp productGroup) ([]models.RowError, error) {
	ctx, span := s.tracer.Start(ctx, "fpchange.processGroup", trace.WithAttributes(
		attribute.String("product", grp.product),
		attribute.Int("rows", len(grp.rows)),
	))
	defer span.End()

	log = log.With("product", grp.product)

	dispatcher, err := s.resolver.Resolve(grp.product)
	if err != nil {
		fault := faults.As(err, grp.product)
		span.SetStatus(codes.Error, fault.Code())
		log.WarnContext(ctx, "fp_change_service_unresolved", "rows", len(grp.rows))
		errs := make([]models.RowError, 0, len(grp.rows))
		for _, nr := range grp.rows {
			errs = append(errs, models.NewRowError(nr.Line, models.FieldProduct, fault.Message(), nr.Row.Product))
			s.metrics.IncError(fault.Code())
		}
		return errs, nil
	}

	outcomes := s.dispatchRows(ctx, log, grp.product, dispatcher, grp.rows)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []models.RowError
	var confirmed []dispatchOutcome
	for _, o := range outcomes {
		if o.confirmed {
			confirmed = append(confirmed, o)
			continue
		}
		errs = append(errs, models.NewRowError(o.row.Line, models.FieldProduct, o.err.Message(), o.row.Row.Product))
		s.metrics.IncError(o.err.Code())
	}
	if len(confirmed) == 0 {
		return errs, nil
	}

	changes := make([]models.ChangeRequest, len(confirmed))
	for i, o := range confirmed {
		changes[i] = o.change
	}
	applied, err := s.applyChanges(ctx, grp.product, changes)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		fault := faults.FromStorage(err, contractsTarget)
		span.RecordError(err)
		span.SetStatus(codes.Error, fault.Code())
		log.ErrorContext(ctx, "fp_contracts_update_failed",
			"code", fault.Code(),
			"confirmed", len(confirmed),
			"error", err,
		)
		for _, o := range confirmed {
			errs = append(errs, models.NewRowError(o.row.Line, models.FieldDB, fault.Message(), o.change.ContractNumber))
			s.metrics.IncError(fault.Code())
		}
		return errs, nil
	}

	log.InfoContext(ctx, "fp_contracts_updated", "confirmed", len(confirmed), "updated", len(applied))
	s.metrics.AddContractsUpdated(grp.product, len(applied))
	span.SetAttributes(attribute.Int("contracts_updated", len(applied)))
	s.emit(ctx, log, reassignmentEvents(ctx, applied)...)
	return errs, nil
}

// dispatchRows sends every row concurrently. Each goroutine owns one slot of
// the returned slice.
func (s *Service) dispatchRows(ctx context.Context, log *slog.Logger, product string, d dispatch.Dispatcher, rows []models.NumberedRow) []dispatchOutcome {
	outcomes := make([]dispatchOutcome, len(rows))
	var g errgroup.Group
	for i, nr := range rows {
		g.Go(func() error {
			outcomes[i] = s.dispatchRow(ctx, log, product, d, nr)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) dispatchRow(ctx context.Context, log *slog.Logger, product string, d dispatch.Dispatcher, nr models.NumberedRow) dispatchOutcome {
	change := nr.Row.ChangeRequest()
	ctx, span := s.tracer.Start(ctx, "fpchange.dispatch", trace.WithAttributes(
		attribute.String("product", product),
		attribute.Int("line", nr.Line),
		attribute.String("contract", change.ContractNumber),
	))
	defer span.End()

	start := time.Now()
	ok, err := d.Send(ctx, change)
	out := dispatchOutcome{row: nr, change: change}
	switch {
	case err != nil:
		out.err = faults.FromTransport(err, product)
		span.RecordError(err)
		span.SetStatus(codes.Error, out.err.Code())
		s.metrics.ObserveDispatch(product, resultFailed, time.Since(start))
		log.WarnContext(ctx, "fp_change_dispatch_failed",
			"line", nr.Line,
			"code", out.err.Code(),
			"error", err,
		)
	case !ok:
		out.err = faults.New(faults.KindRejected, product, nil)
		span.SetStatus(codes.Error, out.err.Code())
		s.metrics.ObserveDispatch(product, resultRejected, time.Since(start))
		log.WarnContext(ctx, "fp_change_rejected", "line", nr.Line)
	default:
		out.confirmed = true
		s.metrics.ObserveDispatch(product, resultConfirmed, time.Since(start))
	}
	return out
}

func (s *Service) applyChanges(ctx context.Context, product string, changes []models.ChangeRequest) ([]models.ChangeRequest, error) {
	ctx, span := s.tracer.Start(ctx, "fpchange.applyChanges", trace.WithAttributes(
		attribute.String("product", product),
		attribute.Int("changes", len(changes)),
	))
	defer span.End()

	applied, err := s.contracts.ApplyChanges(ctx, changes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply changes failed")
	}
	return applied, err
}
