/*

This file contains the vault service: per-request orchestration of the valuation core.

A valuation loads the vault's configuration, fetches its independent inputs concurrently,
then hands them to the pure valuator. Liquidity quotes reuse the cached live reserves.

*/

package vaults

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/vault-valuator/internal/amm"
	"github.com/elys-network/vault-valuator/internal/analyzer"
	"github.com/elys-network/vault-valuator/internal/datafetcher"
	"github.com/elys-network/vault-valuator/internal/logger"
	"github.com/elys-network/vault-valuator/internal/metrics"
	"github.com/elys-network/vault-valuator/internal/types"
	"github.com/elys-network/vault-valuator/internal/utils"
	"github.com/elys-network/vault-valuator/internal/valuation"
)

var (
	ErrTokenNotInPair = errors.New("token is not part of the pair")
	ErrPairMismatch   = errors.New("indexed pair does not match vault config")
)

// maxConcurrentValuations bounds the fan-out when every vault is valued at once.
const maxConcurrentValuations = 4

// VaultStore is the read side of the vault configuration store.
type VaultStore interface {
	GetVaultConfig(ctx context.Context, address string) (types.VaultConfig, error)
	ListVaultConfigs(ctx context.Context, chainIDs ...string) ([]types.VaultConfig, error)
	Ping(ctx context.Context) error
}

// DataSource supplies the indexed inputs of a valuation. *datafetcher.Client implements it.
type DataSource interface {
	datafetcher.PairFetcher
	FetchSnapshots(ctx context.Context, vault string, since time.Time) ([]types.PoolSnapshot, error)
	FetchVolumes(ctx context.Context, vault string, since time.Time) ([]types.VolumeRecord, error)
	FetchSpreadProfits(ctx context.Context, vault string, since time.Time) ([]types.SpreadProfitRecord, error)
	FetchPrices(ctx context.Context, tokens []string) (types.PriceTable, error)
}

// Config holds the configuration for creating a new Service
type Config struct {
	Store            VaultStore
	Source           DataSource
	Cache            *datafetcher.ReserveCache
	Valuator         *valuation.Valuator
	BootstrapCheck   amm.BootstrapCheck
	SnapshotLookback time.Duration
	MetricsLookback  time.Duration
	Clock            func() time.Time // defaults to time.Now
}

// Service values vaults and quotes liquidity operations against them.
type Service struct {
	logger         zerolog.Logger
	store          VaultStore
	source         DataSource
	cache          *datafetcher.ReserveCache
	valuator       *valuation.Valuator
	bootstrapCheck amm.BootstrapCheck
	snapshotWindow time.Duration
	metricsWindow  time.Duration
	now            func() time.Time
}

// NewService creates a new Service with dependency injection
func NewService(cfg Config) (*Service, error) {
	if err := validateServiceConfig(cfg); err != nil {
		return nil, fmt.Errorf("vault service configuration validation failed: %w", err)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	s := &Service{
		logger:         logger.GetForComponent("vault_service"),
		store:          cfg.Store,
		source:         cfg.Source,
		cache:          cfg.Cache,
		valuator:       cfg.Valuator,
		bootstrapCheck: cfg.BootstrapCheck,
		snapshotWindow: cfg.SnapshotLookback,
		metricsWindow:  cfg.MetricsLookback,
		now:            now,
	}

	s.logger.Info().
		Str("bootstrapCheck", s.bootstrapCheck.String()).
		Dur("snapshotLookback", s.snapshotWindow).
		Dur("metricsLookback", s.metricsWindow).
		Dur("reserveCacheTTL", s.cache.TTL()).
		Msg("Vault service created")

	return s, nil
}

func validateServiceConfig(cfg Config) error {
	if cfg.Store == nil {
		return fmt.Errorf("vault store cannot be nil")
	}
	if cfg.Source == nil {
		return fmt.Errorf("data source cannot be nil")
	}
	if cfg.Cache == nil {
		return fmt.Errorf("reserve cache cannot be nil")
	}
	if cfg.Valuator == nil {
		return fmt.Errorf("valuator cannot be nil")
	}
	if cfg.SnapshotLookback <= 0 {
		return fmt.Errorf("snapshot lookback must be positive")
	}
	if cfg.MetricsLookback <= 0 {
		return fmt.Errorf("metrics lookback must be positive")
	}
	return nil
}

// Health reports whether the configuration store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Valuation values one vault from fresh inputs.
func (s *Service) Valuation(ctx context.Context, address string) (types.VaultValuation, error) {
	log := s.requestLogger(address)

	vault, err := s.store.GetVaultConfig(ctx, address)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load vault config")
		return types.VaultValuation{}, err
	}
	return s.value(ctx, log, vault)
}

// Performance returns only the PI/RPI series of a vault.
func (s *Service) Performance(ctx context.Context, address string) ([]types.PerformanceIndexPoint, error) {
	v, err := s.Valuation(ctx, address)
	if err != nil {
		return nil, err
	}
	return v.HistoricalPriceIndex, nil
}

// ListRanked values every configured vault and ranks them by APY.
// Vaults that fail to value are logged and left out. limit <= 0 keeps all.
func (s *Service) ListRanked(ctx context.Context, limit int) ([]types.VaultRank, error) {
	configs, err := s.store.ListVaultConfigs(ctx)
	if err != nil {
		return nil, err
	}

	valuations := s.valueAll(ctx, configs)

	names := make(map[string]string, len(configs))
	for _, c := range configs {
		names[types.NormalizeAddress(c.Address)] = c.Name
	}

	ranks, err := analyzer.RankVaults(valuations, names, limit)
	if errors.Is(err, analyzer.ErrNoRankableVaults) {
		return []types.VaultRank{}, nil
	}
	return ranks, err
}

// RunRefreshLoop revalues every vault on the given interval until ctx is done.
// It keeps the reserve cache warm and the per-vault gauges current.
func (s *Service) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	s.logger.Info().Dur("interval", interval).Msg("Starting vault refresh loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Vault refresh loop stopped due to context cancellation")
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Service) refresh(ctx context.Context) {
	start := s.now()
	configs, err := s.store.ListVaultConfigs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Refresh skipped: failed to list vaults")
		return
	}
	valued := s.valueAll(ctx, configs)
	s.logger.Info().
		Int("vaults", len(configs)).
		Int("valued", len(valued)).
		Dur("took", s.now().Sub(start)).
		Msg("Vault refresh completed")
}

func (s *Service) valueAll(ctx context.Context, configs []types.VaultConfig) []types.VaultValuation {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]types.VaultValuation, 0, len(configs))
		sem     = make(chan struct{}, maxConcurrentValuations)
	)

	for _, vault := range configs {
		wg.Add(1)
		go func(vault types.VaultConfig) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			log := s.requestLogger(vault.Address)
			v, err := s.value(ctx, log, vault)
			if err != nil {
				return
			}
			mu.Lock()
			results = append(results, v)
			mu.Unlock()
		}(vault)
	}
	wg.Wait()
	return results
}

func (s *Service) requestLogger(address string) zerolog.Logger {
	return s.logger.With().
		Str("request_id", uuid.New().String()).
		Str("vault", types.NormalizeAddress(address)).
		Logger()
}

// value fetches the inputs of one vault concurrently and runs the valuator.
func (s *Service) value(ctx context.Context, log zerolog.Logger, vault types.VaultConfig) (types.VaultValuation, error) {
	start := time.Now()
	now := s.now()

	var (
		wg        sync.WaitGroup
		errs      [5]error
		pair      types.PairState
		snapshots []types.PoolSnapshot
		volumes   []types.VolumeRecord
		profits   []types.SpreadProfitRecord
		prices    types.PriceTable
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		pair, errs[0] = s.cache.GetOrFetch(ctx, vault.Address, s.source)
	}()
	go func() {
		defer wg.Done()
		snapshots, errs[1] = s.source.FetchSnapshots(ctx, vault.Address, now.Add(-s.snapshotWindow))
	}()
	go func() {
		defer wg.Done()
		volumes, errs[2] = s.source.FetchVolumes(ctx, vault.Address, now.Add(-s.metricsWindow))
	}()
	go func() {
		defer wg.Done()
		profits, errs[3] = s.source.FetchSpreadProfits(ctx, vault.Address, now.Add(-s.metricsWindow))
	}()
	go func() {
		defer wg.Done()
		prices, errs[4] = s.source.FetchPrices(ctx, []string{vault.TokenA.Address, vault.TokenB.Address})
	}()
	wg.Wait()

	if err := errors.Join(errs[:]...); err != nil {
		metrics.ValuationsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Failed to fetch valuation inputs")
		return types.VaultValuation{}, fmt.Errorf("failed to fetch inputs for vault %s: %w", vault.Address, err)
	}

	if err := checkPair(vault, pair); err != nil {
		metrics.ValuationsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Vault config does not match indexed pair")
		return types.VaultValuation{}, err
	}

	result, err := s.valuator.Value(valuation.Input{
		Vault:         vault,
		Reserves:      pair.Reserves,
		Prices:        prices,
		Snapshots:     snapshots,
		Volumes:       volumes,
		SpreadProfits: profits,
		MetricsWindow: s.metricsWindow,
		Now:           now,
	})
	if err != nil {
		metrics.ValuationsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Valuation failed")
		return types.VaultValuation{}, err
	}

	metrics.ValuationsTotal.WithLabelValues(string(result.APY.Status)).Inc()
	metrics.ValuationDuration.Observe(time.Since(start).Seconds())
	metrics.VaultTVLUSD.WithLabelValues(result.Vault).Set(result.TVL)

	log.Info().
		Float64("tvl", result.TVL).
		Str("apyStatus", string(result.APY.Status)).
		Float64("apy", result.APY.Value).
		Int("snapshots", len(snapshots)).
		Dur("took", time.Since(start)).
		Msg("Vault valuation completed")

	return result, nil
}

func checkPair(vault types.VaultConfig, pair types.PairState) error {
	if !types.SameAddress(vault.TokenA.Address, pair.TokenA.Address) ||
		!types.SameAddress(vault.TokenB.Address, pair.TokenB.Address) {
		return fmt.Errorf("%w: vault %s expects %s/%s, pair has %s/%s", ErrPairMismatch, vault.Address,
			vault.TokenA.Address, vault.TokenB.Address, pair.TokenA.Address, pair.TokenB.Address)
	}
	return nil
}

// livePair loads a vault and its cached live reserves for quoting.
func (s *Service) livePair(ctx context.Context, address string) (types.PairState, error) {
	vault, err := s.store.GetVaultConfig(ctx, address)
	if err != nil {
		return types.PairState{}, err
	}
	pair, err := s.cache.GetOrFetch(ctx, vault.Address, s.source)
	if err != nil {
		return types.PairState{}, fmt.Errorf("failed to fetch reserves for vault %s: %w", vault.Address, err)
	}
	if err := checkPair(vault, pair); err != nil {
		return types.PairState{}, err
	}
	return pair, nil
}

// QuoteSwap quotes the output of swapping amountIn raw units of tokenIn through the vault's pair.
func (s *Service) QuoteSwap(ctx context.Context, address, tokenIn string, amountIn sdkmath.Int) (types.SwapQuote, error) {
	pair, err := s.livePair(ctx, address)
	if err != nil {
		return types.SwapQuote{}, err
	}

	var (
		reserveIn, reserveOut sdkmath.Int
		in, out               types.Token
	)
	switch {
	case types.SameAddress(tokenIn, pair.TokenA.Address):
		reserveIn, reserveOut, in, out = pair.RawReserveA, pair.RawReserveB, pair.TokenA, pair.TokenB
	case types.SameAddress(tokenIn, pair.TokenB.Address):
		reserveIn, reserveOut, in, out = pair.RawReserveB, pair.RawReserveA, pair.TokenB, pair.TokenA
	default:
		return types.SwapQuote{}, fmt.Errorf("%w: %s not in %s", ErrTokenNotInPair, tokenIn, pair.Address)
	}

	amountOut, err := amm.GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return types.SwapQuote{}, err
	}
	decimal, err := utils.SDKIntToFloat64(amountOut, out.Decimals)
	if err != nil {
		return types.SwapQuote{}, err
	}

	metrics.QuotesTotal.WithLabelValues("swap").Inc()
	return types.SwapQuote{
		Pair:             pair.Address,
		TokenIn:          in.Address,
		TokenOut:         out.Address,
		AmountIn:         amountIn,
		AmountOut:        amountOut,
		AmountOutDecimal: decimal,
	}, nil
}

// QuoteAdd quotes the LP tokens minted for depositing amount0/amount1 raw units.
func (s *Service) QuoteAdd(ctx context.Context, address string, amount0, amount1 sdkmath.Int) (types.MintQuote, error) {
	pair, err := s.livePair(ctx, address)
	if err != nil {
		return types.MintQuote{}, err
	}

	lp, bootstrap, err := amm.QuoteMint(pair.RawReserveA, pair.RawReserveB, amount0, amount1, pair.RawTotalSupply, s.bootstrapCheck)
	if err != nil {
		return types.MintQuote{}, err
	}

	metrics.QuotesTotal.WithLabelValues("add").Inc()
	return types.MintQuote{
		Pair:      pair.Address,
		Amount0:   amount0,
		Amount1:   amount1,
		LPAmount:  lp,
		Bootstrap: bootstrap,
	}, nil
}

// QuoteRemove quotes the reserves returned for burning lpAmount raw LP units.
func (s *Service) QuoteRemove(ctx context.Context, address string, lpAmount sdkmath.Int) (types.BurnQuote, error) {
	pair, err := s.livePair(ctx, address)
	if err != nil {
		return types.BurnQuote{}, err
	}

	amount0, amount1, err := amm.GetBurnAmounts(pair.RawReserveA, pair.RawReserveB, lpAmount, pair.RawTotalSupply)
	if err != nil {
		return types.BurnQuote{}, err
	}

	metrics.QuotesTotal.WithLabelValues("remove").Inc()
	return types.BurnQuote{
		Pair:     pair.Address,
		LPAmount: lpAmount,
		Amount0:  amount0,
		Amount1:  amount1,
	}, nil
}
