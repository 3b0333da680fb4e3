package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fableforge/rules-api/internal/errors"
	redisclient "github.com/fableforge/rules-api/internal/redis"
)

const (
	// Key pattern: usage:{scope}:{date}
	usageKeyPrefix = "usage:"

	fieldInputTokens  = "input_tokens"
	fieldOutputTokens = "output_tokens"
	fieldRequestCount = "request_count"

	// Counters are eligible for deletion once the retention window
	// passes; there is no in-band reset.
	defaultRetention = 90 * 24 * time.Hour

	errScopeEmpty = "scope cannot be empty"
	errDateEmpty  = "date cannot be empty"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client    redisclient.Client
	Retention time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	return nil
}

type redisRepository struct {
	client    redisclient.Client
	retention time.Duration
}

// NewRedisRepository creates a new Redis repository for usage counters
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = defaultRetention
	}

	return &redisRepository{
		client:    cfg.Client,
		retention: retention,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

// Increment adds token counts via HINCRBY inside one transaction pipeline.
// HINCRBY is a server-side atomic add, so concurrent sessions never lose
// updates.
func (r *redisRepository) Increment(ctx context.Context, input IncrementInput) (*IncrementOutput, error) {
	if input.Scope == "" {
		return nil, errors.InvalidArgument(errScopeEmpty)
	}
	if input.Date == "" {
		return nil, errors.InvalidArgument(errDateEmpty)
	}

	key := r.buildKey(input.Scope, input.Date)

	pipe := r.client.TxPipeline()
	inCmd := pipe.HIncrBy(ctx, key, fieldInputTokens, input.InputTokens)
	outCmd := pipe.HIncrBy(ctx, key, fieldOutputTokens, input.OutputTokens)
	reqCmd := pipe.HIncrBy(ctx, key, fieldRequestCount, 1)
	pipe.Expire(ctx, key, r.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to increment usage counter %s", key)
	}

	return &IncrementOutput{
		Counter: &Counter{
			Scope:        input.Scope,
			Date:         input.Date,
			InputTokens:  inCmd.Val(),
			OutputTokens: outCmd.Val(),
			RequestCount: reqCmd.Val(),
		},
	}, nil
}

// Get reads the counter hash; a missing key is a zero counter
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.Scope == "" {
		return nil, errors.InvalidArgument(errScopeEmpty)
	}
	if input.Date == "" {
		return nil, errors.InvalidArgument(errDateEmpty)
	}

	key := r.buildKey(input.Scope, input.Date)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read usage counter %s", key)
	}

	counter := &Counter{
		Scope: input.Scope,
		Date:  input.Date,
	}
	counter.InputTokens = parseField(fields, fieldInputTokens)
	counter.OutputTokens = parseField(fields, fieldOutputTokens)
	counter.RequestCount = parseField(fields, fieldRequestCount)

	return &GetOutput{Counter: counter}, nil
}

func parseField(fields map[string]string, name string) int64 {
	v, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// buildKey creates the Redis key for a usage counter
func (r *redisRepository) buildKey(scope, date string) string {
	return fmt.Sprintf("%s%s:%s", usageKeyPrefix, scope, date)
}
