package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "accai/pkg/platform/audit"
	"accai/pkg/platform/circuit"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

type PublisherSuite struct {
	suite.Suite
	producer *fakeProducer
	metrics  *Metrics
	pub      *Publisher
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.producer = &fakeProducer{}
	s.metrics = NewMetrics(prometheus.NewRegistry())
	var err error
	s.pub, err = New(s.producer, "fp-audit",
		WithMetrics(s.metrics),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
	)
	s.Require().NoError(err)
}

func event(subject string) audit.Event {
	return audit.Event{
		ID:              "evt-" + subject,
		Action:          audit.EventAgentReassigned,
		Category:        audit.EventAgentReassigned.Category(),
		CorrelationID:   "cid-1",
		Subject:         subject,
		Product:         "ACCAI",
		PreviousAgentID: "5834",
		NewAgentID:      "7000",
	}
}

func (s *PublisherSuite) TestNewValidates() {
	_, err := New(nil, "t")
	s.Error(err)
	_, err = New(&fakeProducer{}, "")
	s.Error(err)
}

func (s *PublisherSuite) TestEmitProducesKeyedJSON() {
	s.Require().NoError(s.pub.Emit(context.Background(), event("10001"), event("10002")))

	s.Require().Len(s.producer.records, 2)
	rec := s.producer.records[0]
	s.Equal("fp-audit", rec.Topic)
	s.Equal([]byte("10001"), rec.Key)

	var decoded audit.Event
	s.Require().NoError(json.Unmarshal(rec.Value, &decoded))
	s.Equal(event("10001"), decoded)
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.Published))
}

func (s *PublisherSuite) TestEmitNothing() {
	s.NoError(s.pub.Emit(context.Background()))
	s.Empty(s.producer.records)
}

func (s *PublisherSuite) TestCircuitOpensAfterFailures() {
	s.producer.err = errors.New("broker down")

	s.Error(s.pub.Emit(context.Background(), event("10001")))
	s.Error(s.pub.Emit(context.Background(), event("10001")))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.CircuitState))

	err := s.pub.Emit(context.Background(), event("10001"))
	s.ErrorIs(err, ErrCircuitOpen)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Dropped))
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.Failed))
}

func (s *PublisherSuite) TestDropsWhileOpenThenRecovers() {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pub, err := New(s.producer, "fp-audit",
		WithMetrics(s.metrics),
		WithBreaker(circuit.New("test",
			circuit.WithFailureThreshold(1),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)),
	)
	s.Require().NoError(err)

	s.producer.err = errors.New("broker down")
	s.Error(pub.Emit(context.Background(), event("10001")))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.CircuitState))

	s.producer.err = nil
	s.ErrorIs(pub.Emit(context.Background(), event("10002"), event("10003")), ErrCircuitOpen)
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.Dropped))
	s.Empty(s.producer.records)

	now = now.Add(time.Minute)
	s.Require().NoError(pub.Emit(context.Background(), event("10004")))
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.CircuitState))
	s.Require().Len(s.producer.records, 1)
	s.Equal("10004", string(s.producer.records[0].Key))

	s.NoError(pub.Emit(context.Background(), event("10005")))
	s.Len(s.producer.records, 2)
}
