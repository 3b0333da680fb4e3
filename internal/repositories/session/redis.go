package session

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/pkg/clock"
	redisclient "github.com/fableforge/rules-api/internal/redis"
)

const (
	// Key pattern: session:{id}
	sessionKeyPrefix = "session:"

	errSessionNil = "session cannot be nil"
	errIDEmpty    = "session ID cannot be empty"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
	Clock  clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	if c.Clock == nil {
		return errors.InvalidArgument("clock is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// NewRedisRepository creates a new Redis repository for sessions
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  cfg.Clock,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

// Create stores a new session, rejecting duplicates
func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Session == nil {
		return nil, errors.InvalidArgument(errSessionNil)
	}
	if input.Session.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	now := r.clock.Now().Unix()
	sess := input.Session
	sess.Version = 1
	sess.CreatedAt = now
	sess.UpdatedAt = now
	if sess.State == "" {
		sess.State = entities.SessionStateActive
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal session")
	}

	key := r.buildKey(sess.ID)
	ok, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to store session in Redis")
	}
	if !ok {
		return nil, errors.AlreadyExistsf("session %s already exists", sess.ID)
	}

	return &CreateOutput{Session: sess}, nil
}

// Get retrieves a session by ID
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	data, err := r.client.Get(ctx, r.buildKey(input.ID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("session %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get session from Redis")
	}

	var sess entities.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal session")
	}

	return &GetOutput{Session: &sess}, nil
}

// Update writes the session back with an optimistic version check
func (r *redisRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.Session == nil {
		return nil, errors.InvalidArgument(errSessionNil)
	}
	if input.Session.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	sess := input.Session
	key := r.buildKey(sess.ID)

	// The bump happens on a copy; the caller's struct only changes once
	// the transaction has committed.
	var next entities.Session

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.NotFoundf("session %s not found", sess.ID)
			}
			return errors.Wrapf(err, "failed to read session for update")
		}

		var stored entities.Session
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			return errors.Wrapf(err, "failed to unmarshal stored session")
		}

		if stored.Version != sess.Version {
			return errors.Abortedf("session %s version mismatch: have %d, want %d",
				sess.ID, sess.Version, stored.Version)
		}

		next = *sess
		next.Version = sess.Version + 1
		next.UpdatedAt = r.clock.Now().Unix()

		updated, err := json.Marshal(&next)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal session")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)

	if err != nil {
		if err == redis.TxFailedErr {
			return nil, errors.Abortedf("session %s was modified concurrently", sess.ID)
		}
		return nil, errors.Wrap(err, "failed to update session")
	}

	sess.Version = next.Version
	sess.UpdatedAt = next.UpdatedAt

	return &UpdateOutput{Session: sess}, nil
}

// Delete removes a session
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	deleted, err := r.client.Del(ctx, r.buildKey(input.ID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete session from Redis")
	}
	if deleted == 0 {
		return nil, errors.NotFoundf("session %s not found", input.ID)
	}

	return &DeleteOutput{}, nil
}

// buildKey creates the Redis key for a session
func (r *redisRepository) buildKey(id string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, id)
}
