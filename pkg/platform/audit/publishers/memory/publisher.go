// Package memory provides an audit publisher that keeps events in process.
package memory

import (
	"context"
	"sync"

	audit "accai/pkg/platform/audit"
)

// Publisher records emitted events.
type Publisher struct {
	mu     sync.RWMutex
	events []audit.Event
}

// New creates an empty in-memory publisher.
func New() *Publisher {
	return &Publisher{}
}

// Emit appends events.
func (p *Publisher) Emit(_ context.Context, events ...audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

// Events returns a copy of everything emitted so far.
func (p *Publisher) Events() []audit.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]audit.Event{}, p.events...)
}

// ByAction returns the emitted events with the given action.
func (p *Publisher) ByAction(action audit.AuditEvent) []audit.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []audit.Event
	for _, e := range p.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops all recorded events.
func (p *Publisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
