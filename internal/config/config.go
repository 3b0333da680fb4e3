// Package config loads server configuration from the environment
package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/fableforge/rules-api/internal/errors"
)

// Config is the full server configuration
type Config struct {
	// ListenAddr is the address the HTTP server binds to
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Redis connection
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Narrator service
	NarratorBaseURL string `env:"NARRATOR_BASE_URL" envDefault:"https://api.openai.com/v1"`
	NarratorAPIKey  string `env:"NARRATOR_API_KEY"`
	NarratorModel   string `env:"NARRATOR_MODEL" envDefault:"gpt-4o-mini"`

	// Cost guard ceilings, in total tokens per UTC day
	GlobalDailyTokenLimit  int64 `env:"GLOBAL_DAILY_TOKEN_LIMIT" envDefault:"500000"`
	SessionDailyTokenLimit int64 `env:"SESSION_DAILY_TOKEN_LIMIT" envDefault:"50000"`

	// UsageRetention bounds how long usage counters live in Redis
	UsageRetention time.Duration `env:"USAGE_RETENTION" envDefault:"2160h"`

	// CombatTieBreak decides who acts first on an initiative tie,
	// "player" or "enemy"
	CombatTieBreak string `env:"COMBAT_TIE_BREAK" envDefault:"player"`
}

// Load parses configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values env parsing cannot
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.NarratorAPIKey == "" {
		vb.RequiredField("NARRATOR_API_KEY")
	}
	if c.GlobalDailyTokenLimit <= 0 {
		vb.Field("GLOBAL_DAILY_TOKEN_LIMIT", "must be positive")
	}
	if c.SessionDailyTokenLimit <= 0 {
		vb.Field("SESSION_DAILY_TOKEN_LIMIT", "must be positive")
	}

	return vb.Build()
}
