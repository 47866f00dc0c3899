package dispatch

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accai/internal/fpchange/faults"
	"accai/internal/fpchange/models"
)

type DispatcherSuite struct {
	suite.Suite
	req models.ChangeRequest
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.req = models.ChangeRequest{
		PreviousAgentID: "5834",
		NewAgentID:      "7000",
		Product:         "ACCAI",
		ProductPlan:     "10",
		ContractNumber:  "10001",
	}
}

func (s *DispatcherSuite) newDispatcher(url string, opts ...Option) *HTTPDispatcher {
	d, err := NewHTTPDispatcher(models.ProductACCAI, url, opts...)
	s.Require().NoError(err)
	return d
}

func (s *DispatcherSuite) TestNewHTTPDispatcher() {
	s.Run("requires base URL", func() {
		_, err := NewHTTPDispatcher(models.ProductACCAI, "  ")
		s.Error(err)
	})

	s.Run("requires product", func() {
		_, err := NewHTTPDispatcher("", "http://localhost")
		s.Error(err)
	})

	s.Run("timeout option does not mutate caller client", func() {
		shared := &http.Client{}
		d := s.newDispatcher("http://localhost", WithHTTPClient(shared), WithTimeout(time.Second))
		s.Equal(time.Second, d.client.Timeout)
		s.Zero(shared.Timeout)
	})
}

func (s *DispatcherSuite) TestSendPostsJSON() {
	var got models.ChangeRequest
	var path, method, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method, contentType = r.URL.Path, r.Method, r.Header.Get("Content-Type")
		s.NoError(json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ok, err := s.newDispatcher(srv.URL+"/").Send(context.Background(), s.req)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(ChangePath, path)
	s.Equal(http.MethodPost, method)
	s.Equal("application/json", contentType)
	s.Equal(s.req, got)
}

func (s *DispatcherSuite) TestWireFormat() {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.NoError(json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := s.newDispatcher(srv.URL).Send(context.Background(), s.req)
	s.Require().NoError(err)
	s.Equal(map[string]any{
		"idAgenteAnterior": "5834",
		"idAgenteNuevo":    "7000",
		"producto":         "ACCAI",
		"planProducto":     "10",
		"contrato":         "10001",
	}, raw)
}

func (s *DispatcherSuite) TestNonSuccess() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s.Run("strict mode returns status fault", func() {
		ok, err := s.newDispatcher(srv.URL).Send(context.Background(), s.req)
		s.False(ok)
		f := faults.As(err, "ACCAI")
		s.Equal(faults.KindNonSuccess, f.Kind)
		s.Equal("http.503", f.Code())
	})

	s.Run("soft mode returns false without error", func() {
		ok, err := s.newDispatcher(srv.URL, WithMode(Soft)).Send(context.Background(), s.req)
		s.NoError(err)
		s.False(ok)
	})
}

func (s *DispatcherSuite) TestTimeout() {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ok, err := s.newDispatcher(srv.URL, WithTimeout(50*time.Millisecond)).Send(context.Background(), s.req)
	s.False(ok)
	s.Equal(faults.KindTimeout, faults.GetKind(err))
}

func (s *DispatcherSuite) TestConnectionRefused() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	addr := ln.Addr().String()
	s.Require().NoError(ln.Close())

	ok, err := s.newDispatcher("http://"+addr).Send(context.Background(), s.req)
	s.False(ok)
	s.Equal(faults.KindNetwork, faults.GetKind(err))
}

func (s *DispatcherSuite) TestRequestsRunConcurrently() {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer srv.Close()

	d := s.newDispatcher(srv.URL)
	done := make(chan struct{})
	for range 4 {
		go func() {
			_, _ = d.Send(context.Background(), s.req)
			done <- struct{}{}
		}()
	}
	for range 4 {
		<-done
	}
	s.Greater(peak.Load(), int32(1))
}
