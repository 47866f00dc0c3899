package contract

import (
	"context"
	"fmt"
	"sync"

	"accai/internal/fpchange/models"
	"accai/pkg/platform/sentinel"
)

// InMemoryStore keeps contracts in a map keyed by contract number.
type InMemoryStore struct {
	mu        sync.RWMutex
	contracts map[string]models.Contract
	nextID    int64
}

// NewInMemory creates an empty in-memory contract store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{contracts: make(map[string]models.Contract)}
}

// Save inserts or replaces a contract. IDs are assigned when zero.
func (s *InMemoryStore) Save(_ context.Context, c models.Contract) error {
	if c.ContractNumber == "" {
		return fmt.Errorf("contract number is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		if existing, ok := s.contracts[c.ContractNumber]; ok {
			c.ID = existing.ID
		} else {
			s.nextID++
			c.ID = s.nextID
		}
	} else if c.ID > s.nextID {
		s.nextID = c.ID
	}
	s.contracts[c.ContractNumber] = c
	return nil
}

// FindByNumber returns the contract with the given number.
func (s *InMemoryStore) FindByNumber(_ context.Context, number string) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[number]
	if !ok {
		return nil, fmt.Errorf("contract %s: %w", number, sentinel.ErrNotFound)
	}
	return &c, nil
}

// ApplyChanges reassigns agents for every contract matched by changes and
// returns the changes that took effect. The whole batch applies under one lock.
func (s *InMemoryStore) ApplyChanges(ctx context.Context, changes []models.ChangeRequest) ([]models.ChangeRequest, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := make([]models.Contract, 0, len(changes))
	for _, number := range contractNumbers(changes) {
		if c, ok := s.contracts[number]; ok {
			loaded = append(loaded, c)
		}
	}
	planned := planAgentChanges(loaded, changes)
	for _, p := range planned {
		s.contracts[p.contract.ContractNumber] = p.contract
	}
	return appliedChanges(planned), nil
}
