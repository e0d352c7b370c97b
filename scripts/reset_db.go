package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/vault-valuator/internal/config"
	"github.com/elys-network/vault-valuator/internal/logger"
	"github.com/elys-network/vault-valuator/internal/state"
	"github.com/elys-network/vault-valuator/internal/types"
)

// Drops and recreates the vault_configs schema. When VAULTS_FILE points at a JSON array of
// vault configs, they are inserted after the reset.
func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found or error loading .env file. Relying on OS environment variables.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Initialize(cfg.LogLevel)
	log.Info().Msg("Starting database reset script...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbCfg := state.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("user", dbCfg.User).
		Str("dbname", dbCfg.DBName).
		Msg("Connecting to database")

	store, err := state.Open(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database connection")
	}
	defer store.Close()

	log.Info().Msg("Connected to database. Attempting to drop all tables...")
	if err := store.DropSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to drop tables")
	}
	log.Info().Msg("Successfully dropped all tables")

	log.Info().Msg("Recreating database schema...")
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to recreate database schema")
	}
	log.Info().Msg("Database schema successfully recreated")

	if path := os.Getenv("VAULTS_FILE"); path != "" {
		seedVaults(ctx, store, path)
	}

	log.Info().Msg("Database reset complete!")
}

func seedVaults(ctx context.Context, store *state.Store, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read vaults file")
	}

	var configs []types.VaultConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to parse vaults file")
	}

	for _, vc := range configs {
		if err := store.CreateVaultConfig(ctx, vc); err != nil {
			log.Fatal().Err(err).Str("vault", vc.Address).Msg("Failed to insert vault config")
		}
		log.Info().Str("vault", vc.Address).Str("name", vc.Name).Msg("Inserted vault config")
	}
	log.Info().Int("count", len(configs)).Msg("Vault configs seeded")
}
