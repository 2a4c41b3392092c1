// Package config loads and validates environment-based configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	LogLevel    string
	LogFormat   string

	// Realtime tuning
	AuthRecheckInterval time.Duration
	MaxClientsPerOrg    int
	MaxConnsPerIP       int
	MaxConnections      int64
	DispatchWorkers     int
	DispatchQueueSize   int
}

// Load reads configuration from the environment, consulting a .env file if
// present, and fails fast on anything invalid.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(cfg.JWTSecret))
	}

	var err error
	if cfg.AuthRecheckInterval, err = getDuration("AUTH_RECHECK_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuthRecheckInterval < time.Second {
		return nil, fmt.Errorf("AUTH_RECHECK_INTERVAL must be at least 1s, got %s", cfg.AuthRecheckInterval)
	}
	if cfg.MaxClientsPerOrg, err = getInt("MAX_CLIENTS_PER_ORG", 500); err != nil {
		return nil, err
	}
	if cfg.MaxConnsPerIP, err = getInt("MAX_CONNS_PER_IP", 20); err != nil {
		return nil, err
	}
	maxConns, err := getInt("MAX_CONNECTIONS", 5000)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnections = int64(maxConns)
	if cfg.DispatchWorkers, err = getInt("DISPATCH_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.DispatchWorkers < 1 {
		return nil, fmt.Errorf("DISPATCH_WORKERS must be at least 1, got %d", cfg.DispatchWorkers)
	}
	if cfg.DispatchQueueSize, err = getInt("DISPATCH_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.DispatchQueueSize < 1 {
		return nil, fmt.Errorf("DISPATCH_QUEUE_SIZE must be at least 1, got %d", cfg.DispatchQueueSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 60s): %w", key, err)
	}
	return d, nil
}
