package character

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
	// Key pattern: character:{id}
	characterKeyPrefix = "character:"

	errCharacterNil = "character cannot be nil"
	errIDEmpty      = "character ID cannot be empty"
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

// NewRedisRepository creates a new Redis repository for characters
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

// Create stores a new character, rejecting duplicates
func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Character == nil {
		return nil, errors.InvalidArgument(errCharacterNil)
	}
	if input.Character.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	now := r.clock.Now().Unix()
	character := input.Character
	character.Version = 1
	character.CreatedAt = now
	character.UpdatedAt = now

	data, err := json.Marshal(character)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal character")
	}

	key := r.buildKey(character.ID)
	ok, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to store character in Redis")
	}
	if !ok {
		return nil, errors.AlreadyExistsf("character %s already exists", character.ID)
	}

	return &CreateOutput{Character: character}, nil
}

// Get retrieves a character by ID
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	data, err := r.client.Get(ctx, r.buildKey(input.ID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("character %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get character from Redis")
	}

	var character entities.Character
	if err := json.Unmarshal([]byte(data), &character); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal character")
	}

	return &GetOutput{Character: &character}, nil
}

// Update writes the character back with an optimistic version check,
// implemented as WATCH + version compare + transactional set. A concurrent
// writer aborts the transaction.
func (r *redisRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.Character == nil {
		return nil, errors.InvalidArgument(errCharacterNil)
	}
	if input.Character.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	character := input.Character
	key := r.buildKey(character.ID)

	// The bump happens on a copy; the caller's struct only changes once
	// the transaction has committed.
	var next entities.Character

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.NotFoundf("character %s not found", character.ID)
			}
			return errors.Wrapf(err, "failed to read character for update")
		}

		var stored entities.Character
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			return errors.Wrapf(err, "failed to unmarshal stored character")
		}

		if stored.Version != character.Version {
			return errors.Abortedf("character %s version mismatch: have %d, want %d",
				character.ID, character.Version, stored.Version)
		}

		next = *character
		next.Version = character.Version + 1
		next.UpdatedAt = r.clock.Now().Unix()

		updated, err := json.Marshal(&next)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal character")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)

	if err != nil {
		if err == redis.TxFailedErr {
			return nil, errors.Abortedf("character %s was modified concurrently", character.ID)
		}
		return nil, errors.Wrap(err, "failed to update character")
	}

	character.Version = next.Version
	character.UpdatedAt = next.UpdatedAt

	return &UpdateOutput{Character: character}, nil
}

// Delete removes a character
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errIDEmpty)
	}

	deleted, err := r.client.Del(ctx, r.buildKey(input.ID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete character from Redis")
	}
	if deleted == 0 {
		return nil, errors.NotFoundf("character %s not found", input.ID)
	}

	return &DeleteOutput{}, nil
}

// buildKey creates the Redis key for a character
func (r *redisRepository) buildKey(id string) string {
	return fmt.Sprintf("%s%s", characterKeyPrefix, id)
}
