//go:build integration

package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accai/internal/fpchange/models"
	"accai/internal/fpchange/store/report"
	"accai/pkg/platform/sentinel"
	"accai/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *report.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = report.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	r := models.NewReport(1, []models.RowError{
		models.NewRowError(2, models.FieldProduct, "[http.timeout] Tiempo de espera agotado.", "ACCAI"),
	}, "cid-1")

	s.Require().NoError(s.store.Save(ctx, r))
	got, err := s.store.Get(ctx, "cid-1")
	s.Require().NoError(err)
	s.Equal(r, got)

	ttl, err := s.redis.Client.TTL(ctx, "fpchange:report:cid-1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisStoreSuite) TestWholeFileReportKeepsNullValue() {
	ctx := context.Background()
	r := models.FileFailure("Archivo vacío.", "cid-2")
	s.Require().NoError(s.store.Save(ctx, r))

	got, err := s.store.Get(ctx, "cid-2")
	s.Require().NoError(err)
	s.Nil(got.Errors[0].RawValue)
}

func (s *RedisStoreSuite) TestMissing() {
	_, err := s.store.Get(context.Background(), "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
