package session_test

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/pkg/clock"
	redisclient "github.com/fableforge/rules-api/internal/redis"
	"github.com/fableforge/rules-api/internal/repositories/session"
	"github.com/fableforge/rules-api/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	ctx     context.Context
	repo    session.Repository
	cleanup func()
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()

	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	repo, err := session.NewRedisRepository(&session.Config{
		Client: client,
		Clock:  &clock.Fixed{T: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)},
	})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

// SetupSubTest gives every s.Run a fresh Redis
func (s *RedisRepositoryTestSuite) SetupSubTest() {
	s.cleanup()
	s.SetupTest()
}

func (s *RedisRepositoryTestSuite) TestRoundTrip() {
	sess := testutils.CreateTestSession()
	sess.Encounter = testutils.CreateTestEncounter(testutils.CreateTestGoblin(4))
	sess.PendingLoot = &entities.PendingLoot{
		Gold:   5,
		Items:  []string{"dagger"},
		Source: "combat:goblin",
	}
	sess.LastAction = &entities.ResolvedAction{
		ActionID: "act-1",
		Victory:  true,
	}
	sess.WorldState = map[string]interface{}{"gate": "locked"}

	_, err := s.repo.Create(s.ctx, session.CreateInput{Session: sess})
	s.Require().NoError(err)

	out, err := s.repo.Get(s.ctx, session.GetInput{ID: sess.ID})
	s.Require().NoError(err)

	got := out.Session
	s.Equal(sess.CharacterID, got.CharacterID)
	s.True(got.InCombat())
	s.Require().Len(got.Encounter.Enemies, 1)
	s.Equal(int32(4), got.Encounter.Enemies[0].CurrentHP)
	s.Require().NotNil(got.PendingLoot)
	s.Equal([]string{"dagger"}, got.PendingLoot.Items)
	s.Require().NotNil(got.LastAction)
	s.Equal("act-1", got.LastAction.ActionID)
	s.True(got.LastAction.Victory)
	s.Equal("locked", got.WorldState["gate"])
}

func (s *RedisRepositoryTestSuite) TestUpdate() {
	s.Run("clears transient fields", func() {
		sess := testutils.CreateTestSession()
		sess.PendingLoot = &entities.PendingLoot{Gold: 3}

		_, err := s.repo.Create(s.ctx, session.CreateInput{Session: sess})
		s.Require().NoError(err)

		sess.PendingLoot = nil
		sess.State = entities.SessionStateEnded
		_, err = s.repo.Update(s.ctx, session.UpdateInput{Session: sess})
		s.Require().NoError(err)

		out, err := s.repo.Get(s.ctx, session.GetInput{ID: sess.ID})
		s.Require().NoError(err)
		s.Nil(out.Session.PendingLoot)
		s.True(out.Session.IsEnded())
		s.Equal(int64(2), out.Session.Version)
	})

	s.Run("stale version aborts", func() {
		sess := testutils.CreateTestSession()
		_, err := s.repo.Create(s.ctx, session.CreateInput{Session: sess})
		s.Require().NoError(err)

		winner := *sess
		_, err = s.repo.Update(s.ctx, session.UpdateInput{Session: &winner})
		s.Require().NoError(err)

		stale := *sess
		stale.Version = 1
		_, err = s.repo.Update(s.ctx, session.UpdateInput{Session: &stale})
		s.Require().Error(err)
		s.True(errors.IsAborted(err))
	})

	s.Run("failed transaction leaves the input struct untouched", func() {
		client, cleanup := testutils.CreateTestRedisClient(s.T())
		defer cleanup()

		sess := testutils.CreateTestSession()
		key := "session:" + sess.ID

		conflicted := &conflictingClient{Client: client}
		conflicted.touch = func() {
			data, err := client.Get(s.ctx, key).Result()
			s.Require().NoError(err)
			s.Require().NoError(client.Set(s.ctx, key, data, 0).Err())
		}

		repo, err := session.NewRedisRepository(&session.Config{
			Client: conflicted,
			Clock:  &clock.Fixed{T: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)},
		})
		s.Require().NoError(err)

		_, err = repo.Create(s.ctx, session.CreateInput{Session: sess})
		s.Require().NoError(err)

		before := *sess
		_, err = repo.Update(s.ctx, session.UpdateInput{Session: sess})
		s.Require().Error(err)
		s.True(errors.IsAborted(err))

		s.Equal(before.Version, sess.Version)
		s.Equal(before.UpdatedAt, sess.UpdatedAt)
	})
}

// conflictingClient simulates a concurrent writer: it rewrites the watched
// key after WATCH is issued and before the update transaction commits, so
// EXEC fails with TxFailedErr
type conflictingClient struct {
	redisclient.Client
	touch func()
}

func (c *conflictingClient) Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	return c.Client.Watch(ctx, func(tx *redis.Tx) error {
		c.touch()
		return fn(tx)
	}, keys...)
}

func (s *RedisRepositoryTestSuite) TestNotFound() {
	_, err := s.repo.Get(s.ctx, session.GetInput{ID: "sess-missing"})
	s.True(errors.IsNotFound(err))

	missing := testutils.CreateTestSession()
	missing.ID = "sess-missing"
	_, err = s.repo.Update(s.ctx, session.UpdateInput{Session: missing})
	s.True(errors.IsNotFound(err))
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}
