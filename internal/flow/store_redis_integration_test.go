//go:build integration

package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enroll/pkg/testutil/containers"
)

type RedisStoreIntegrationSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *RedisStore
}

func TestRedisStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreIntegrationSuite))
}

func (s *RedisStoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisStoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.store = NewRedisStore(s.redis.Client, time.Hour)
}

func (s *RedisStoreIntegrationSuite) TestNotes() {
	s.Run("round-trips a note", func() {
		s.Require().NoError(s.store.Put(s.ctx, "att-1", "email", "a@b.com"))

		value, err := s.store.Get(s.ctx, "att-1", "email")
		s.Require().NoError(err)
		s.Equal("a@b.com", value)
	})

	s.Run("absent notes read as empty without error", func() {
		value, err := s.store.Get(s.ctx, "att-1", "missing")
		s.Require().NoError(err)
		s.Empty(value)
	})

	s.Run("remove deletes a single note", func() {
		s.Require().NoError(s.store.Put(s.ctx, "att-1", "step", "consents"))
		s.Require().NoError(s.store.Remove(s.ctx, "att-1", "step"))

		value, err := s.store.Get(s.ctx, "att-1", "step")
		s.Require().NoError(err)
		s.Empty(value)
	})

	s.Run("destroy drops the whole attempt", func() {
		s.Require().NoError(s.store.Put(s.ctx, "att-2", "email", "x@y.com"))
		s.Require().NoError(s.store.Destroy(s.ctx, "att-2"))

		value, err := s.store.Get(s.ctx, "att-2", "email")
		s.Require().NoError(err)
		s.Empty(value)
	})
}

func (s *RedisStoreIntegrationSuite) TestLifetime() {
	// The TTL is set on first write and not refreshed by later writes, so
	// the attempt lifetime stays bounded.
	store := NewRedisStore(s.redis.Client, 2*time.Second)

	s.Require().NoError(store.Put(s.ctx, "att-ttl", "email", "a@b.com"))
	first := s.redis.Client.TTL(s.ctx, "enroll:attempt:att-ttl").Val()
	s.Greater(first, time.Duration(0))

	time.Sleep(time.Second)
	s.Require().NoError(store.Put(s.ctx, "att-ttl", "step", "personal-data"))
	second := s.redis.Client.TTL(s.ctx, "enroll:attempt:att-ttl").Val()
	s.LessOrEqual(second, first, "later writes must not extend the attempt lifetime")
}
