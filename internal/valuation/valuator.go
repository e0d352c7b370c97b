/*

This file contains the per-vault valuation: live TVL, LP fair value, APY, 24h volume and the
historical performance index.

The valuator is pure given its Input. Fetching and caching the inputs is the caller's job.

*/

package valuation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/elys-network/vault-valuator/internal/analyzer"
	"github.com/elys-network/vault-valuator/internal/performance"
	"github.com/elys-network/vault-valuator/internal/types"
)

// defaultProfitWindow is the spread-profit window assumed when Input.MetricsWindow is unset.
const defaultProfitWindow = 24 * time.Hour

var (
	ErrInvalidInput   = errors.New("invalid valuation input")
	ErrQuoteNotInPair = errors.New("resolved quote token is not part of the pair")
)

// QuoteResolver decides which token of a pair is the quote asset.
type QuoteResolver interface {
	QuoteToken(chainID, tokenA, tokenB string) (string, error)
}

// QuoteResolverFunc adapts a plain function to QuoteResolver.
type QuoteResolverFunc func(chainID, tokenA, tokenB string) (string, error)

func (f QuoteResolverFunc) QuoteToken(chainID, tokenA, tokenB string) (string, error) {
	return f(chainID, tokenA, tokenB)
}

// Input is one valuation request.
type Input struct {
	Vault         types.VaultConfig
	Reserves      types.ReservePair
	Prices        types.PriceTable
	Snapshots     []types.PoolSnapshot
	Volumes       []types.VolumeRecord
	SpreadProfits []types.SpreadProfitRecord

	// MetricsWindow is the span Volumes and SpreadProfits were fetched over.
	MetricsWindow time.Duration
	// Now is the instant the input windows end at. Zero means the valuator clock.
	Now time.Time
}

// Config holds the dependencies of a Valuator.
type Config struct {
	QuoteResolver QuoteResolver
	Logger        zerolog.Logger
	Clock         func() time.Time // defaults to time.Now
}

type Valuator struct {
	resolver QuoteResolver
	logger   zerolog.Logger
	now      func() time.Time
}

func NewValuator(cfg Config) (*Valuator, error) {
	if cfg.QuoteResolver == nil {
		return nil, fmt.Errorf("quote resolver cannot be nil")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Valuator{
		resolver: cfg.QuoteResolver,
		logger:   cfg.Logger,
		now:      now,
	}, nil
}

// Value computes the valuation of one vault.
// Degenerate figures are reported through Metric status; malformed input returns an error.
func (v *Valuator) Value(in Input) (types.VaultValuation, error) {
	now := in.Now
	if now.IsZero() {
		now = v.now()
	}
	vault := in.Vault
	log := v.logger.With().Str("vault", vault.Address).Logger()

	if err := validateReserves(in.Reserves); err != nil {
		return types.VaultValuation{}, err
	}

	quote, base, err := v.resolvePair(vault)
	if err != nil {
		return types.VaultValuation{}, err
	}

	prices := in.Prices
	if prices == nil {
		prices = types.PriceTable{}
	}

	tvl := TVL(vault, in.Reserves, prices)
	profit := TotalSpreadProfit(in.SpreadProfits)
	volume := Volume(in.Volumes, quote, prices)

	seed := types.DefaultInitialLPInfo(now)
	if vault.Seed != nil {
		seed = *vault.Seed
	} else {
		log.Debug().Msg("Vault has no seed info, using default baseline")
	}

	series, err := performance.Index(performance.Input{
		Snapshots:  in.Snapshots,
		Seed:       seed,
		Prices:     prices,
		BaseToken:  base,
		QuoteToken: quote,
		TokenA:     vault.TokenA.Address,
	})
	if err != nil {
		return types.VaultValuation{}, fmt.Errorf("%w: vault %s: %w", ErrInvalidInput, vault.Address, err)
	}

	profitWindow := in.MetricsWindow
	if profitWindow <= 0 {
		profitWindow = defaultProfitWindow
	}
	apy := v.apy(vault.Testnet, tvl, profit, profitWindow, series, seed, now)
	if !apy.IsOK() {
		log.Warn().Str("status", string(apy.Status)).Str("reason", apy.Reason).Msg("APY is not available")
	}

	lpValue := types.UninitializedMetric("LP total supply is zero")
	if in.Reserves.TotalSupply != 0 {
		lpValue = types.OKMetric(tvl / in.Reserves.TotalSupply)
	}

	volatility := types.UndefinedMetric("not enough performance history")
	if vol, err := analyzer.SeriesVolatility(series); err == nil {
		volatility = types.OKMetric(vol)
	} else if !errors.Is(err, analyzer.ErrInsufficientData) {
		volatility = types.UndefinedMetric(err.Error())
	}

	impermanentLoss := types.UndefinedMetric("not enough priced snapshots")
	if il, err := analyzer.SnapshotImpermanentLoss(in.Snapshots); err == nil {
		impermanentLoss = types.OKMetric(il)
	}

	result := types.VaultValuation{
		Vault:                vault.Address,
		BaseToken:            base,
		QuoteToken:           quote,
		LPUSDValue:           lpValue,
		TVL:                  tvl,
		APY:                  apy,
		Volume24h:            volume,
		ReserveA:             in.Reserves.ReserveA,
		ReserveB:             in.Reserves.ReserveB,
		TotalSupply:          in.Reserves.TotalSupply,
		HistoricalPriceIndex: series,
		Volatility:           volatility,
		MaxDrawdown:          analyzer.MaxDrawdown(series),
		ImpermanentLoss:      impermanentLoss,
		ComputedAt:           now.UTC(),
	}

	log.Debug().
		Float64("tvl", tvl).
		Float64("apy", apy.Value).
		Float64("volume24h", volume).
		Float64("spreadProfit", profit).
		Int("indexPoints", len(series)).
		Msg("Vault valued")

	return result, nil
}

func (v *Valuator) resolvePair(vault types.VaultConfig) (quote, base string, err error) {
	quote, err = v.resolver.QuoteToken(vault.ChainID, vault.TokenA.Address, vault.TokenB.Address)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve quote token for vault %s: %w", vault.Address, err)
	}
	switch {
	case types.SameAddress(quote, vault.TokenA.Address):
		return vault.TokenA.Address, vault.TokenB.Address, nil
	case types.SameAddress(quote, vault.TokenB.Address):
		return vault.TokenB.Address, vault.TokenA.Address, nil
	default:
		return "", "", fmt.Errorf("%w: %s for vault %s", ErrQuoteNotInPair, quote, vault.Address)
	}
}

func (v *Valuator) apy(testnet bool, tvl, profit float64, profitWindow time.Duration, series []types.PerformanceIndexPoint, seed types.InitialLPInfo, now time.Time) types.Metric {
	var (
		ratio  float64
		period time.Duration
	)
	if testnet {
		if tvl == 0 {
			return types.UndefinedMetric("TVL is zero")
		}
		ratio = 1 + profit/tvl
		period = profitWindow
	} else {
		rpi, ok := performance.LatestRPI(series)
		if !ok {
			return types.UndefinedMetric("no performance history")
		}
		ratio = rpi
		period = now.Sub(time.Unix(seed.Timestamp, 0))
	}

	apy, err := Annualize(ratio, period)
	if err != nil {
		return types.UndefinedMetric(err.Error())
	}
	return types.OKMetric(apy)
}

func validateReserves(r types.ReservePair) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"reserve_a", r.ReserveA},
		{"reserve_b", r.ReserveB},
		{"total_supply", r.TotalSupply},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidInput, f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: %s is negative: %f", ErrInvalidInput, f.name, f.value)
		}
	}
	return nil
}
