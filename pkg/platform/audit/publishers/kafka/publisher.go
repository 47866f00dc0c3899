// Package kafka publishes audit events to a Kafka topic.
//
// Delivery is best effort: a circuit breaker stops producing while the
// broker keeps failing so uploads never wait on an unhealthy cluster.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "accai/pkg/platform/audit"
	"accai/pkg/platform/circuit"
)

// ErrCircuitOpen is returned when events are dropped by the breaker.
var ErrCircuitOpen = errors.New("audit publisher circuit open")

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher writes audit events as JSON records keyed by subject.
type Publisher struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker overrides the circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

// New creates a Kafka audit publisher for topic.
func New(producer Producer, topic string, opts ...Option) (*Publisher, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	p := &Publisher{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("audit-kafka"),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Emit produces events synchronously.
func (p *Publisher) Emit(ctx context.Context, events ...audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.Dropped.Add(float64(len(events)))
		}
		return ErrCircuitOpen
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode audit event: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.Subject),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "action", Value: []byte(e.Action)},
				{Key: "category", Value: []byte(e.Category)},
				{Key: "correlation_id", Value: []byte(e.CorrelationID)},
			},
		})
	}

	if err := p.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		_, change := p.breaker.RecordFailure()
		if p.metrics != nil {
			p.metrics.Failed.Add(float64(len(events)))
			if change.Opened {
				p.metrics.CircuitState.Set(1)
			}
		}
		if change.Opened {
			p.logger.ErrorContext(ctx, "audit publisher circuit opened", "topic", p.topic, "error", err)
		}
		return fmt.Errorf("produce audit events: %w", err)
	}

	_, change := p.breaker.RecordSuccess()
	if p.metrics != nil {
		p.metrics.Published.Add(float64(len(events)))
		if change.Closed {
			p.metrics.CircuitState.Set(0)
		}
	}
	if change.Closed {
		p.logger.InfoContext(ctx, "audit publisher circuit closed", "topic", p.topic)
	}
	return nil
}

// Close is a no-op; the caller owns the underlying client.
func (p *Publisher) Close() error {
	return nil
}
