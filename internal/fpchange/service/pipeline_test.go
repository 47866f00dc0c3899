package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accai/internal/fpchange/dispatch"
	"accai/internal/fpchange/models"
	"accai/internal/fpchange/store/contract"
	"accai/internal/fpchange/store/report"
	"accai/pkg/platform/audit"
	auditmemory "accai/pkg/platform/audit/publishers/memory"
	"accai/pkg/requestcontext"
)

// PipelineSuite runs uploads against real in-memory stores and an HTTP
// change service.
type PipelineSuite struct {
	suite.Suite
	server    *httptest.Server
	contracts *contract.InMemoryStore
	reports   *report.InMemoryStore
	publisher *auditmemory.Publisher
	svc       *Service

	mu       sync.Mutex
	received []models.ChangeRequest
	status   map[string]int
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.received = nil
	s.status = map[string]int{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.received = append(s.received, req)
		status, ok := s.status[req.ContractNumber]
		s.mu.Unlock()
		if !ok {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}))
	s.T().Cleanup(s.server.Close)

	ctx := context.Background()
	s.contracts = contract.NewInMemory()
	s.Require().NoError(contract.Seed(ctx, s.contracts, contract.SeedContracts))
	s.reports = report.NewInMemory(time.Hour)
	s.publisher = auditmemory.New()

	accai, err := dispatch.NewHTTPDispatcher(models.ProductACCAI, s.server.URL, dispatch.WithTimeout(2*time.Second))
	s.Require().NoError(err)
	crea, err := dispatch.NewHTTPDispatcher(models.ProductCREA, s.server.URL, dispatch.WithMode(dispatch.Soft))
	s.Require().NoError(err)
	resolver := dispatch.NewResolver()
	s.Require().NoError(resolver.Register(models.ProductACCAI, accai))
	s.Require().NoError(resolver.Register(models.ProductCREA, crea))

	s.svc, err = New(resolver, s.contracts,
		WithReportStore(s.reports),
		WithAuditPublisher(s.publisher),
		WithAllowedProducts("ACCAI", "CREA"),
	)
	s.Require().NoError(err)
}

func (s *PipelineSuite) agentOf(number string) string {
	c, err := s.contracts.FindByNumber(context.Background(), number)
	s.Require().NoError(err)
	return c.CurrentAgentID
}

func (s *PipelineSuite) TestReassignsAgents() {
	ctx := requestcontext.WithCorrelationID(context.Background(), "cid-e2e")
	second := baseRow("10002")
	second.NewAgentID = "8000"

	rep, err := s.svc.Handle(ctx, uploadOf(csvOf(baseRow("10001"), second)))
	s.Require().NoError(err)
	s.Equal(0, rep.ErrorCount)
	s.Equal("7000", s.agentOf("10001"))
	s.Equal("8000", s.agentOf("10002"))
	s.mu.Lock()
	s.Len(s.received, 2)
	s.mu.Unlock()

	stored, err := s.svc.Report(ctx, "cid-e2e")
	s.Require().NoError(err)
	s.Equal(rep, stored)
	s.Len(s.publisher.ByAction(audit.EventAgentReassigned), 2)
}

func (s *PipelineSuite) TestConflictingChangesApplyFirstOnly() {
	first := baseRow("10001")
	conflicting := baseRow("10001")
	conflicting.NewAgentID = "9000"

	rep, err := s.svc.Handle(context.Background(), uploadOf(csvOf(first, conflicting)))
	s.Require().NoError(err)
	s.Equal(0, rep.ErrorCount)
	s.Equal("7000", s.agentOf("10001"))
	s.Len(s.publisher.ByAction(audit.EventAgentReassigned), 1)
}

func (s *PipelineSuite) TestFailedDispatchLeavesContractUntouched() {
	s.status["10002"] = http.StatusServiceUnavailable

	rep, err := s.svc.Handle(context.Background(), uploadOf(csvOf(baseRow("10001"), baseRow("10002"))))
	s.Require().NoError(err)
	s.Require().Len(rep.Errors, 1)
	s.Equal(3, rep.Errors[0].Line)
	s.True(strings.HasPrefix(rep.Errors[0].Message, "[http.503]"))
	s.Equal("7000", s.agentOf("10001"))
	s.Equal("5834", s.agentOf("10002"))
}

func (s *PipelineSuite) TestSoftServiceRejection() {
	soft, err := dispatch.NewHTTPDispatcher(models.ProductACCAI, s.server.URL, dispatch.WithMode(dispatch.Soft))
	s.Require().NoError(err)
	resolver := dispatch.NewResolver()
	s.Require().NoError(resolver.Register(models.ProductACCAI, soft))
	svc, err := New(resolver, s.contracts, WithAuditPublisher(s.publisher))
	s.Require().NoError(err)
	s.status["10002"] = http.StatusInternalServerError

	rep, err := svc.Handle(context.Background(), uploadOf(csvOf(baseRow("10001"), baseRow("10002"))))
	s.Require().NoError(err)
	s.Require().Len(rep.Errors, 1)
	s.Equal(3, rep.Errors[0].Line)
	s.True(strings.HasPrefix(rep.Errors[0].Message, "[external.rejected]"))
	s.Equal("7000", s.agentOf("10001"))
	s.Equal("5834", s.agentOf("10002"))
	s.Len(s.publisher.ByAction(audit.EventAgentReassigned), 1)
}

func (s *PipelineSuite) TestStaleCurrentAgentIsNotAudited() {
	stale := baseRow("10001")
	stale.CurrentAgentID = "1111"

	rep, err := s.svc.Handle(context.Background(), uploadOf(csvOf(stale, baseRow("10002"))))
	s.Require().NoError(err)
	s.Equal(0, rep.ErrorCount)
	s.Equal("5834", s.agentOf("10001"))
	s.Equal("7000", s.agentOf("10002"))

	reassigned := s.publisher.ByAction(audit.EventAgentReassigned)
	s.Require().Len(reassigned, 1)
	s.Equal("10002", reassigned[0].Subject)
	s.Equal("5834", reassigned[0].PreviousAgentID)
}

func (s *PipelineSuite) TestRepeatedUploadYieldsSameOutcome() {
	content := csvOf(baseRow("10001"), baseRow("10002"))

	first, err := s.svc.Handle(context.Background(), uploadOf(content))
	s.Require().NoError(err)
	second, err := s.svc.Handle(context.Background(), uploadOf(content))
	s.Require().NoError(err)

	s.Equal(first.TotalRows, second.TotalRows)
	s.Equal(first.Errors, second.Errors)
	s.NotEqual(first.CorrelationID, second.CorrelationID)
	s.Equal("7000", s.agentOf("10001"))
}
