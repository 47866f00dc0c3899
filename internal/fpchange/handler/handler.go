// Package handler exposes the FP change upload pipeline over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"accai/internal/fpchange/models"
	"accai/internal/fpchange/service"
	"accai/internal/platform/logger"
	"accai/pkg/platform/httputil"
)

const (
	// FormField is the multipart field carrying the CSV.
	FormField = "file"

	// multipartSlack covers boundaries and part headers around the file.
	multipartSlack  = 64 << 10
	maxMemoryBuffer = 2 << 20
)

// Service defines the upload operations the handler needs.
type Service interface {
	Handle(ctx context.Context, up service.Upload) (*models.Report, error)
	Report(ctx context.Context, correlationID string) (*models.Report, error)
}

// Handler serves the upload and report endpoints.
type Handler struct {
	svc          Service
	logger       *slog.Logger
	maxBodyBytes int64
}

// New creates a Handler. Request bodies above maxFileBytes plus multipart
// overhead are refused before the service sees them.
func New(svc Service, log *slog.Logger, maxFileBytes int64) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	if maxFileBytes <= 0 {
		maxFileBytes = service.DefaultMaxBytes
	}
	return &Handler{
		svc:    svc,
		logger: log,
		// files slightly over the limit still reach the service, which reports the size error
		maxBodyBytes: 2*maxFileBytes + multipartSlack,
	}
}

// Register registers the FP change routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/fp-changes", func(r chi.Router) {
		r.Post("/upload", h.HandleUpload)
		r.Get("/reports/{correlationId}", h.HandleGetReport)
	})
}

// HandleUpload runs the pipeline on the uploaded file. The report is written
// with 200 when it carries no errors and 400 otherwise.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	up, cleanup, err := h.readUpload(r)
	defer cleanup()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.WarnContext(ctx, "upload body too large",
				"request_id", requestID,
				"limit", tooLarge.Limit,
			)
			httputil.WriteError(w, &httputil.Error{
				Status:      http.StatusRequestEntityTooLarge,
				Code:        "payload_too_large",
				Description: "request body too large",
			})
			return
		}
		h.logger.WarnContext(ctx, "invalid upload request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, httputil.BadRequest("invalid multipart request"))
		return
	}

	report, err := h.svc.Handle(ctx, up)
	if err != nil {
		h.logger.WarnContext(ctx, "upload processing aborted",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusBadRequest
	}
	httputil.WriteJSON(w, status, report)
}

// readUpload extracts the file part. A request without the file part yields
// an empty Upload so the service reports it like an empty file.
func (h *Handler) readUpload(r *http.Request) (service.Upload, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(maxMemoryBuffer); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return service.Upload{}, noop, nil
		}
		return service.Upload{}, noop, err
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile(FormField)
	if errors.Is(err, http.ErrMissingFile) {
		return service.Upload{}, cleanup, nil
	}
	if err != nil {
		return service.Upload{}, cleanup, err
	}
	return service.Upload{
		File:     file,
		Size:     header.Size,
		FileName: header.Filename,
	}, func() { _ = file.Close(); cleanup() }, nil
}

// HandleGetReport returns a stored report by correlation id.
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := chi.URLParam(r, "correlationId")

	report, err := h.svc.Report(ctx, correlationID)
	if err != nil {
		h.logger.InfoContext(ctx, "report lookup failed",
			"request_id", chimiddleware.GetReqID(ctx),
			"correlation_id", correlationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
