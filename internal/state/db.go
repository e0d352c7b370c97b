// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

var ErrStoreNotInitialized = errors.New("database not initialized")

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// DSN renders the lib/pq key/value connection string.
func (cfg DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// Store is the vault configuration store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection pool and verifies it with a ping.
func Open(ctx context.Context, cfg DBConfig) (*Store, error) {
	return OpenDSN(ctx, cfg.DSN())
}

// OpenDSN is Open for a ready-made connection string or postgres:// URL.
func OpenDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Read-mostly workload, a small pool is enough.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return &Store{db: db}, nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	log.Info().Msg("Closing database connection...")
	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	}
}

// Ping tests if the database connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS vault_configs (
		address VARCHAR(42) PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		chain_id VARCHAR(32) NOT NULL,
		token_a_address VARCHAR(42) NOT NULL,
		token_a_symbol VARCHAR(32) NOT NULL DEFAULT '',
		token_a_decimals SMALLINT NOT NULL CHECK (token_a_decimals BETWEEN 0 AND 18),
		token_b_address VARCHAR(42) NOT NULL,
		token_b_symbol VARCHAR(32) NOT NULL DEFAULT '',
		token_b_decimals SMALLINT NOT NULL CHECK (token_b_decimals BETWEEN 0 AND 18),
		testnet BOOLEAN NOT NULL DEFAULT FALSE,
		seed JSONB, -- InitialLPInfo, NULL when the vault was never seeded
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT chk_vault_configs_distinct_tokens CHECK (token_a_address <> token_b_address)
	);
	CREATE INDEX IF NOT EXISTS idx_vault_configs_chain ON vault_configs(chain_id);
`

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInitialized
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// DropSchema removes every table owned by the store.
func (s *Store) DropSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInitialized
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS vault_configs CASCADE;`); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	log.Info().Msg("Successfully dropped all tables")
	return nil
}
