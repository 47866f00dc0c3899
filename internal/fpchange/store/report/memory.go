// Package report keeps finished upload reports for later retrieval by
// correlation id.
package report

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"accai/internal/fpchange/models"
	"accai/pkg/platform/sentinel"
	"accai/pkg/requestcontext"
)

// DefaultTTL is how long a report stays retrievable.
const DefaultTTL = 24 * time.Hour

type entry struct {
	report    models.Report
	expiresAt time.Time
}

// InMemoryStore keeps reports in process. Expired entries are dropped lazily.
type InMemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	reports map[string]entry
}

// NewInMemory creates an in-memory report store. A non-positive ttl uses DefaultTTL.
func NewInMemory(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryStore{ttl: ttl, reports: make(map[string]entry)}
}

// Save stores a copy of r under its correlation id.
func (s *InMemoryStore) Save(ctx context.Context, r *models.Report) error {
	if r == nil || r.CorrelationID == "" {
		return fmt.Errorf("report correlation id is required: %w", sentinel.ErrInvalidInput)
	}
	now := requestcontext.Now(ctx)
	cp := *r
	cp.Errors = slices.Clone(r.Errors)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(now)
	s.reports[r.CorrelationID] = entry{report: cp, expiresAt: now.Add(s.ttl)}
	return nil
}

// Get returns the report stored under correlationID.
func (s *InMemoryStore) Get(ctx context.Context, correlationID string) (*models.Report, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.reports[correlationID]
	if !ok || !now.Before(e.expiresAt) {
		delete(s.reports, correlationID)
		return nil, fmt.Errorf("report %s: %w", correlationID, sentinel.ErrNotFound)
	}
	r := e.report
	r.Errors = slices.Clone(e.report.Errors)
	return &r, nil
}

func (s *InMemoryStore) evictExpired(now time.Time) {
	for id, e := range s.reports {
		if !now.Before(e.expiresAt) {
			delete(s.reports, id)
		}
	}
}
