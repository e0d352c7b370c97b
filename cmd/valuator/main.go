package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/vault-valuator/internal/config"
	"github.com/elys-network/vault-valuator/internal/datafetcher"
	"github.com/elys-network/vault-valuator/internal/logger"
	"github.com/elys-network/vault-valuator/internal/state"
	"github.com/elys-network/vault-valuator/internal/valuation"
	"github.com/elys-network/vault-valuator/internal/vaults"
	"github.com/elys-network/vault-valuator/internal/web"
)

const shutdownTimeout = 20 * time.Second

// main is the entry point for the vault valuator.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var extra []io.Writer
	if cfg.LogFile != "" {
		fileWriter, err := logger.FileWriter(cfg.LogFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.LogFile).Msg("Failed to open log file")
		}
		// registered first so it closes after every other deferred shutdown step
		defer func() {
			if err := fileWriter.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close log file")
			}
		}()
		extra = append(extra, fileWriter)
	}
	logger.Initialize(cfg.LogLevel, extra...)
	log.Info().Msg("Vault valuator starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. Storage ---
	store, err := state.Open(ctx, state.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	warnUnknownChains(ctx, store)

	// --- 3. Data source and valuation core ---
	client, err := datafetcher.NewClient(datafetcher.ClientConfig{
		URL:               cfg.Endpoints.SubgraphURL,
		APIKey:            cfg.Endpoints.SubgraphAPIKey,
		RequestsPerSecond: cfg.Endpoints.SubgraphRPS,
		Timeout:           cfg.Endpoints.SubgraphTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create subgraph client")
	}

	cache, err := datafetcher.NewReserveCache(cfg.ReserveCacheSize, cfg.ReserveCacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reserve cache")
	}

	valuator, err := valuation.NewValuator(valuation.Config{
		QuoteResolver: valuation.QuoteResolverFunc(config.ResolveQuoteToken),
		Logger:        logger.GetForComponent("valuator"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create valuator")
	}

	service, err := vaults.NewService(vaults.Config{
		Store:            store,
		Source:           client,
		Cache:            cache,
		Valuator:         valuator,
		BootstrapCheck:   cfg.BootstrapCheck,
		SnapshotLookback: cfg.SnapshotLookback,
		MetricsLookback:  cfg.MetricsLookback,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vault service")
	}

	// --- 4. Background refresh and HTTP API ---
	go service.RunRefreshLoop(ctx, cfg.RefreshInterval)

	webServer := web.NewWebServer(cfg.WebPort, service)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.WebPort).Str("url", "http://localhost:"+cfg.WebPort).Msg("Starting vault valuation API")
		serverErr <- webServer.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Web server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Web server shutdown failed")
	}
	log.Info().Msg("Vault valuator stopped")
}

// warnUnknownChains flags vaults whose chain has no quote token list; they fall back to address order.
func warnUnknownChains(ctx context.Context, store *state.Store) {
	configs, err := store.ListVaultConfigs(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not list vault configs at startup")
		return
	}
	for _, vc := range configs {
		if !config.IsKnownChain(vc.ChainID) {
			log.Warn().Str("vault", vc.Address).Str("chainId", vc.ChainID).Msg("No quote token list for chain, quote token falls back to address order")
		}
	}
	log.Info().Int("vaults", len(configs)).Msg("Vault configs loaded")
}
