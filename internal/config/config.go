// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds the externally supplied parameters for the service.
type Config struct {
	Port        int    `env:"PORT,default=3000"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	DatabaseURL string `env:"DATABASE_URL"`

	LogLevel           string   `env:"LOG_LEVEL,default=info"`
	RateLimitDisabled  bool     `env:"RATE_LIMIT_DISABLED,default=false"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000;http://localhost:5173"`
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load() // allow .env for local runs

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return &cfg, nil
}
