package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"accai/internal/fpchange/models"
	"accai/internal/fpchange/service"
	"accai/pkg/platform/sentinel"
	"accai/pkg/testutil"
)

type stubService struct {
	report  *models.Report
	err     error
	got     service.Upload
	body    string
	reports map[string]*models.Report
	handled int
}

func (f *stubService) Handle(_ context.Context, up service.Upload) (*models.Report, error) {
	f.handled++
	f.got = up
	if up.File != nil {
		b, _ := io.ReadAll(up.File)
		f.body = string(b)
	}
	return f.report, f.err
}

func (f *stubService) Report(_ context.Context, cid string) (*models.Report, error) {
	if r, ok := f.reports[cid]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("report %s: %w", cid, sentinel.ErrNotFound)
}

type HandlerSuite struct {
	suite.Suite
	svc    *stubService
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.svc = &stubService{report: models.NewReport(1, nil, "cid-1")}
	s.router = chi.NewRouter()
	New(s.svc, nil, 1_000).Register(s.router)
}

func (s *HandlerSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *HandlerSuite) upload(field, content string) *http.Request {
	return testutil.NewMultipartRequest(s.T(), "/api/fp-changes/upload", field, "cambios.csv", content)
}

func (s *HandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestUpload() {
	s.Run("clean report is 200", func() {
		rec := s.serve(s.upload(FormField, "a,b\n"))

		s.Equal(http.StatusOK, rec.Code)
		s.Equal("cambios.csv", s.svc.got.FileName)
		s.Equal(int64(4), s.svc.got.Size)
		s.Equal("a,b\n", s.svc.body)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(float64(1), body["totalFilas"])
		s.Equal(float64(0), body["errores"])
		s.Equal("cid-1", body["correlationId"])
		s.Equal([]any{}, body["detalle"])
	})

	s.Run("report with errors is 400", func() {
		s.svc.report = models.FileFailure("Archivo vacío.", "cid-2")
		rec := s.serve(s.upload(FormField, "x"))

		s.Equal(http.StatusBadRequest, rec.Code)
		report := testutil.UnmarshalResponse[models.Report](s.T(), rec)
		s.Equal(1, report.ErrorCount)
		s.Equal(models.FieldFile, report.Errors[0].Field)
		s.Contains(rec.Body.String(), `"valor":null`)
	})

	s.Run("missing file part reaches the service empty", func() {
		rec := s.serve(s.upload("other", "x"))

		s.Equal(http.StatusOK, rec.Code)
		s.Equal(1, s.svc.handled)
		s.Nil(s.svc.got.File)
		s.Zero(s.svc.got.Size)
	})

	s.Run("non multipart body reaches the service empty", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/fp-changes/upload", strings.NewReader("a,b"))
		req.Header.Set("Content-Type", "text/csv")
		s.serve(req)

		s.Equal(1, s.svc.handled)
		s.Nil(s.svc.got.File)
	})

	s.Run("oversized body is refused", func() {
		rec := s.serve(s.upload(FormField, strings.Repeat("x", 200_000)))

		testutil.AssertStatusAndError(s.T(), rec, http.StatusRequestEntityTooLarge, "payload_too_large")
		s.Zero(s.svc.handled)
	})

	s.Run("cancelled processing", func() {
		s.svc.err = context.Canceled
		s.svc.report = nil
		rec := s.serve(s.upload(FormField, "a"))

		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}

func (s *HandlerSuite) TestGetReport() {
	s.Run("stored report", func() {
		s.svc.reports = map[string]*models.Report{"cid-9": models.NewReport(2, nil, "cid-9")}
		rec := s.serve(httptest.NewRequest(http.MethodGet, "/api/fp-changes/reports/cid-9", nil))

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"correlationId":"cid-9"`)
	})

	s.Run("unknown report is 404", func() {
		rec := s.serve(httptest.NewRequest(http.MethodGet, "/api/fp-changes/reports/missing", nil))

		testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
	})
}
