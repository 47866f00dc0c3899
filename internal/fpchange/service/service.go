// Package service runs the FP agent reassignment upload pipeline: file
// checks, parsing, header and row limits, row validation, per-product
// dispatch and contract persistence, and the final report.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"accai/internal/fpchange/metrics"
	"accai/internal/fpchange/models"
	"accai/internal/fpchange/ports"
	"accai/internal/platform/logger"
	"accai/pkg/platform/sentinel"
	"accai/pkg/requestcontext"
)

const tracerName = "accai/internal/fpchange/service"

// Default upload limits.
const (
	DefaultMaxBytes = 1_000_000
	DefaultMaxRows  = 50
)

// Service processes FP change uploads.
type Service struct {
	resolver  ports.DispatcherResolver
	contracts ports.ContractStore
	reports   ports.ReportStore
	auditor   ports.AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	maxBytes int64
	maxRows  int
	allowed  map[string]struct{}
	newID    func() string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithReportStore keeps every report for later retrieval.
func WithReportStore(store ports.ReportStore) Option {
	return func(s *Service) {
		s.reports = store
	}
}

// WithAuditPublisher emits audit events for persisted changes and uploads.
func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAllowedProducts sets which product codes are forwarded to dispatch.
// Matching is case-insensitive.
func WithAllowedProducts(products ...string) Option {
	return func(s *Service) {
		allowed := make(map[string]struct{}, len(products))
		for _, p := range products {
			if p = normalizeProduct(p); p != "" {
				allowed[p] = struct{}{}
			}
		}
		s.allowed = allowed
	}
}

// WithLimits overrides the maximum file size and data row count.
func WithLimits(maxBytes int64, maxRows int) Option {
	return func(s *Service) {
		if maxBytes > 0 {
			s.maxBytes = maxBytes
		}
		if maxRows > 0 {
			s.maxRows = maxRows
		}
	}
}

// WithIDGenerator sets how correlation ids are minted when the context has none.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates the upload service.
func New(resolver ports.DispatcherResolver, contracts ports.ContractStore, opts ...Option) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("dispatcher resolver is required")
	}
	if contracts == nil {
		return nil, fmt.Errorf("contract store is required")
	}
	s := &Service{
		resolver:  resolver,
		contracts: contracts,
		logger:    logger.Discard(),
		tracer:    otel.Tracer(tracerName),
		maxBytes:  DefaultMaxBytes,
		maxRows:   DefaultMaxRows,
		allowed:   map[string]struct{}{string(models.ProductACCAI): {}},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upload is one received file.
type Upload struct {
	File     io.Reader
	Size     int64
	FileName string
}

// Handle runs the whole pipeline and returns the report. Business failures
// are carried inside the report; the error is non-nil only when ctx is
// cancelled, in which case no partial report is returned.
func (s *Service) Handle(ctx context.Context, up Upload) (*models.Report, error) {
	start := time.Now()
	cid := requestcontext.CorrelationID(ctx)
	if cid == "" {
		cid = s.newID()
		ctx = requestcontext.WithCorrelationID(ctx, cid)
	}

	ctx, span := s.tracer.Start(ctx, "fpchange.Handle", trace.WithAttributes(
		attribute.String("correlation_id", cid),
		attribute.String("file_name", up.FileName),
		attribute.Int64("file_size", up.Size),
	))
	defer span.End()

	log := s.logger.With(
		"correlation_id", cid,
		"client_ip", requestcontext.ClientIP(ctx),
		"device", requestcontext.Device(ctx),
	)

	report, fileErr, err := s.run(ctx, log, up, cid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload processing aborted")
		log.WarnContext(ctx, "fp_csv_aborted", "error", err)
		return nil, err
	}
	models.SortRowErrors(report.Errors)

	outcome := metrics.OutcomeAccepted
	switch {
	case fileErr:
		outcome = metrics.OutcomeFileError
	case !report.OK():
		outcome = metrics.OutcomeRejected
	}
	s.metrics.IncUpload(outcome)
	s.metrics.ObserveHandle(time.Since(start))
	span.SetAttributes(
		attribute.Int("total_rows", report.TotalRows),
		attribute.Int("error_count", report.ErrorCount),
	)

	s.saveReport(ctx, log, report)
	s.emit(ctx, log, uploadEvent(ctx, report, outcome))
	return report, nil
}

// Report returns a previously produced report.
func (s *Service) Report(ctx context.Context, correlationID string) (*models.Report, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("report %s: %w", correlationID, sentinel.ErrNotFound)
	}
	return s.reports.Get(ctx, correlationID)
}

func (s *Service) saveReport(ctx context.Context, log *slog.Logger, report *models.Report) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Save(ctx, report); err != nil {
		log.WarnContext(ctx, "fp_report_save_failed", "error", err)
	}
}

func normalizeProduct(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
