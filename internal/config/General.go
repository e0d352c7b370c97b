package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/vault-valuator/internal/amm"
)

// AppConfig holds all application configuration loaded from environment variables.
type AppConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFile, when set, receives a copy of every log event.
	LogFile string
	// WebPort is the port of the HTTP API.
	WebPort string

	// BootstrapCheck selects how an empty pool is detected when quoting mints.
	BootstrapCheck amm.BootstrapCheck

	// ReserveCacheTTL bounds how stale a cached reserve read may be.
	ReserveCacheTTL time.Duration
	// ReserveCacheSize is the number of pairs kept in the reserve cache.
	ReserveCacheSize int

	// SnapshotLookback is the window of pool snapshots used for the performance index.
	SnapshotLookback time.Duration
	// MetricsLookback is the window of volume and spread profit records.
	MetricsLookback time.Duration
	// RefreshInterval is how often every vault is revalued in the background.
	RefreshInterval time.Duration

	Endpoints EndpointConfig
	Database  DatabaseConfig
}

// DatabaseConfig holds the vault configuration store connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LoadConfig loads configuration from environment variables.
// SUBGRAPH_URL, DB_USER and DB_NAME are required, everything else has a default.
func LoadConfig() (*AppConfig, error) {
	log.Info().Msg("Loading application configuration from environment variables...")

	cfg := &AppConfig{
		LogLevel: getEnvOrDefault("LOG_LEVEL", DefaultLogLevel),
		LogFile:  getEnvOrDefault("LOG_FILE", ""),
		WebPort:  getEnvOrDefault("WEB_PORT", DefaultWebPort),
	}

	var err error

	cfg.BootstrapCheck, err = amm.ParseBootstrapCheck(getEnvOrDefault("BOOTSTRAP_CHECK", ""))
	if err != nil {
		return nil, errors.New("environment variable BOOTSTRAP_CHECK is invalid: " + err.Error())
	}

	if cfg.ReserveCacheTTL, err = getEnvAsDurationOrDefault("RESERVE_CACHE_TTL", DefaultReserveCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ReserveCacheSize, err = getEnvAsIntOrDefault("RESERVE_CACHE_SIZE", DefaultReserveCacheSize); err != nil {
		return nil, err
	}
	if cfg.SnapshotLookback, err = getEnvAsDurationOrDefault("SNAPSHOT_LOOKBACK", DefaultSnapshotLookback); err != nil {
		return nil, err
	}
	if cfg.MetricsLookback, err = getEnvAsDurationOrDefault("METRICS_LOOKBACK", DefaultMetricsLookback); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getEnvAsDurationOrDefault("REFRESH_INTERVAL", DefaultRefreshInterval); err != nil {
		return nil, err
	}
	if cfg.ReserveCacheSize <= 0 {
		return nil, errors.New("environment variable RESERVE_CACHE_SIZE must be positive")
	}

	// Load endpoint configuration
	if cfg.Endpoints, err = loadEndpointConfig(); err != nil {
		return nil, err
	}

	if cfg.Database, err = loadDatabaseConfig(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("SubgraphURL", cfg.Endpoints.SubgraphURL).
		Str("WebPort", cfg.WebPort).
		Str("BootstrapCheck", cfg.BootstrapCheck.String()).
		Dur("ReserveCacheTTL", cfg.ReserveCacheTTL).
		Dur("SnapshotLookback", cfg.SnapshotLookback).
		Msg("Configuration loaded successfully.")

	return cfg, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	var (
		db  DatabaseConfig
		err error
	)
	db.Host = getEnvOrDefault("DB_HOST", "localhost")
	if db.Port, err = getEnvAsIntOrDefault("DB_PORT", 5432); err != nil {
		return db, err
	}
	if db.User, err = getEnv("DB_USER"); err != nil {
		return db, err
	}
	db.Password = getEnvOrDefault("DB_PASSWORD", "")
	if db.Name, err = getEnv("DB_NAME"); err != nil {
		return db, err
	}
	db.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	return db, nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back to def when unset or empty.
func getEnvOrDefault(key, def string) string {
	if value, err := getEnv(key); err == nil {
		return value
	}
	return def
}

// getEnvAsIntOrDefault retrieves an environment variable as an int. Returns error if set but invalid.
func getEnvAsIntOrDefault(key string, def int) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsFloat64OrDefault retrieves an environment variable as a float64. Returns error if set but invalid.
func getEnvAsFloat64OrDefault(key string, def float64) (float64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return def, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDurationOrDefault retrieves an environment variable as a time.Duration (e.g. "15s", "2160h").
func getEnvAsDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return def, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return 0, errors.New("environment variable " + key + " must be a positive duration, got: " + valueStr)
	}
	return value, nil
}
