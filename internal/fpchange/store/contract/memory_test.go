package contract

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"accai/internal/fpchange/models"
	"accai/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.Require().NoError(Seed(s.ctx, s.store, SeedContracts))
}

func change(contract, prev, next string) models.ChangeRequest {
	return models.ChangeRequest{
		PreviousAgentID: prev,
		NewAgentID:      next,
		Product:         "ACCAI",
		ProductPlan:     "10",
		ContractNumber:  contract,
	}
}

func (s *InMemoryStoreSuite) agentOf(number string) string {
	c, err := s.store.FindByNumber(s.ctx, number)
	s.Require().NoError(err)
	return c.CurrentAgentID
}

func (s *InMemoryStoreSuite) TestApplyChanges() {
	s.Run("applies matching changes and counts them", func() {
		applied, err := s.store.ApplyChanges(s.ctx, []models.ChangeRequest{
			change("10001", "5834", "7000"),
			change("10002", "5834", "7001"),
		})
		s.Require().NoError(err)
		s.Len(applied, 2)
		s.Equal("7000", s.agentOf("10001"))
		s.Equal("7001", s.agentOf("10002"))
	})

	s.Run("previous agent mismatch is skipped silently", func() {
		applied, err := s.store.ApplyChanges(s.ctx, []models.ChangeRequest{change("10001", "9999", "1")})
		s.Require().NoError(err)
		s.Empty(applied)
		s.Equal("7000", s.agentOf("10001"))
	})

	s.Run("unknown contract is skipped silently", func() {
		applied, err := s.store.ApplyChanges(s.ctx, []models.ChangeRequest{change("55555", "5834", "1")})
		s.Require().NoError(err)
		s.Empty(applied)
	})

	s.Run("empty batch", func() {
		applied, err := s.store.ApplyChanges(s.ctx, nil)
		s.Require().NoError(err)
		s.Empty(applied)
	})
}

func (s *InMemoryStoreSuite) TestConflictingChangesForSameContract() {
	applied, err := s.store.ApplyChanges(s.ctx, []models.ChangeRequest{
		change("10001", "1111", "8000"),
		change("10001", "5834", "9000"),
	})
	s.Require().NoError(err)
	s.Equal([]models.ChangeRequest{change("10001", "5834", "9000")}, applied)
	s.Equal("9000", s.agentOf("10001"))
}

func (s *InMemoryStoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.store.ApplyChanges(ctx, []models.ChangeRequest{change("10001", "5834", "7000")})
	s.ErrorIs(err, context.Canceled)
	s.Equal("5834", s.agentOf("10001"))
}

func (s *InMemoryStoreSuite) TestConcurrentGroups() {
	var wg sync.WaitGroup
	for _, c := range []models.ChangeRequest{change("10001", "5834", "7000"), change("10002", "5834", "7001")} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.ApplyChanges(s.ctx, []models.ChangeRequest{c})
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Equal("7000", s.agentOf("10001"))
	s.Equal("7001", s.agentOf("10002"))
}

func (s *InMemoryStoreSuite) TestSaveAndFind() {
	s.Run("missing contract", func() {
		_, err := s.store.FindByNumber(s.ctx, "404")
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("save requires a contract number", func() {
		err := s.store.Save(s.ctx, models.Contract{})
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})

	s.Run("ids are assigned and kept on replace", func() {
		s.Require().NoError(s.store.Save(s.ctx, models.Contract{ContractNumber: "20000", CurrentAgentID: "1"}))
		first, err := s.store.FindByNumber(s.ctx, "20000")
		s.Require().NoError(err)
		s.Equal(int64(3), first.ID)

		s.Require().NoError(s.store.Save(s.ctx, models.Contract{ContractNumber: "20000", CurrentAgentID: "2"}))
		second, err := s.store.FindByNumber(s.ctx, "20000")
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal("2", second.CurrentAgentID)
	})
}
