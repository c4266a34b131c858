// Package config handles application configuration from environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Upstream API keys are optional
// at startup: endpoints that need a missing key answer a configuration error
// instead of preventing boot.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	DatabaseURL string `env:"DATABASE_URL"`

	SteamAPIKey   string `env:"STEAM_API_KEY"`
	GGDealsAPIKey string `env:"GGDEALS_API_KEY"`
	GGDealsRegion string `env:"GGDEALS_REGION" envDefault:"us"`

	// StateSecret signs the OpenID return-state parameter.
	StateSecret string `env:"STATE_SECRET" envDefault:"dev-only-secret"`

	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"12h"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"5"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"10m"`
	CacheMaxAge        time.Duration `env:"CACHE_MAX_AGE" envDefault:"1h"`
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
