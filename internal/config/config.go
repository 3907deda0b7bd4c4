package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Discord struct {
		Token string `env:"DISCORD_TOKEN"`
		// Reaction used to enter giveaways.
		GiveawayEmoji string `env:"GIVEAWAY_EMOJI" envDefault:"🎉"`
		// How often online presences are sampled for the peak-online counter.
		PresenceSampleInterval time.Duration `env:"PRESENCE_SAMPLE_INTERVAL" envDefault:"5m"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	HTTP struct {
		Addr        string   `env:"HTTP_ADDR" envDefault:":8080"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	Giveaway struct {
		RetentionDays int `env:"GIVEAWAY_RETENTION_DAYS" envDefault:"7"`
		// Longest single timer segment; longer waits are chained.
		MaxTimerDelay time.Duration `env:"MAX_TIMER_DELAY" envDefault:"596h31m23.647s"`
	}

	Stats struct {
		Timezone      string `env:"STATS_TIMEZONE" envDefault:"UTC"`
		RetentionDays int    `env:"STATS_RETENTION_DAYS" envDefault:"30"`
	}

	Events struct {
		StreamEnabled bool   `env:"EVENT_STREAM_ENABLED" envDefault:"false"`
		Stream        string `env:"EVENT_STREAM" envDefault:"bot:events"`
		Group         string `env:"EVENT_STREAM_GROUP" envDefault:"guild_bot_consumers"`
		// Empty means a random per-process consumer name.
		Consumer string `env:"EVENT_STREAM_CONSUMER"`
	}
}

// Load reads .env (when present) and the process environment into Config.
func Load() (*Config, error) {
	// A missing .env is expected in production where variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.Giveaway.RetentionDays <= 0 {
		return nil, fmt.Errorf("invalid GIVEAWAY_RETENTION_DAYS: %d", cfg.Giveaway.RetentionDays)
	}
	if cfg.Stats.RetentionDays <= 0 {
		return nil, fmt.Errorf("invalid STATS_RETENTION_DAYS: %d", cfg.Stats.RetentionDays)
	}
	return cfg, nil
}

// Location resolves the timezone used for calendar-day statistics keys.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_TIMEZONE %q: %w", c.Stats.Timezone, err)
	}
	return loc, nil
}
