package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config collects every environment knob the service reads. A .env file is
// honored when present; real environment variables win over it.
type Config struct {
	DatabaseURL   string `validate:"required"`
	Port          string
	OwnerTimezone string `validate:"required"`

	JWTSecret    string
	StaticTokens string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

func Load() (*Config, error) {
	// Best effort: a missing .env just means plain env vars.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               getenv("PORT", "8080"),
		OwnerTimezone:      getenv("OWNER_TIMEZONE", "Europe/Paris"),
		JWTSecret:          os.Getenv("JWT_HMAC_SECRET"),
		StaticTokens:       os.Getenv("STATIC_TOKENS"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// OwnerLocation resolves the configured owner timezone.
func (c *Config) OwnerLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.OwnerTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid OWNER_TIMEZONE %q: %w", c.OwnerTimezone, err)
	}
	return loc, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
