package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment. The loan
// period and penalty pricing are policy knobs, not constants: the default
// one-minute window with a rate of 5 per started minute matches the demo
// deployment, production sets its own.
type Config struct {
	DatabaseURL string
	ServerAddr  string

	JWTSecret string
	TokenTTL  time.Duration

	LoanPeriod  time.Duration
	PenaltyUnit time.Duration
	PenaltyRate float64
}

// Load reads an optional .env file and then the environment. DATABASE_URL
// and JWT_SECRET are required; everything else has a default.
func Load() (*Config, error) {
	// A missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServerAddr:  envOr("SERVER_ADDR", ":8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.TokenTTL, err = envDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LoanPeriod, err = envDuration("LOAN_PERIOD", time.Minute); err != nil {
		return nil, err
	}
	if cfg.PenaltyUnit, err = envDuration("PENALTY_UNIT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.PenaltyRate, err = envFloat("PENALTY_RATE", 5); err != nil {
		return nil, err
	}
	if cfg.LoanPeriod <= 0 {
		return nil, fmt.Errorf("LOAN_PERIOD must be positive")
	}
	if cfg.PenaltyUnit <= 0 {
		return nil, fmt.Errorf("PENALTY_UNIT must be positive")
	}
	if cfg.PenaltyRate < 0 {
		return nil, fmt.Errorf("PENALTY_RATE must not be negative")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}
