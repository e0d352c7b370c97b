/*

This file builds the Performance Index (PI) and Relative Performance Index (RPI) series of a vault
from its historical pool snapshots.

For each snapshot the LP token is priced from the snapshot's liquidity and compared with the value
of simply holding the tokens the vault was seeded with (the "on hold" value per LP token).
PI is the LP price normalized to 1.0 at the first point where the LP price is non-zero.
RPI is the LP price divided by the on hold value at the same point.

Points before the first non-zero LP price describe an uninitialized pool and are dropped.

*/

package performance

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/elys-network/vault-valuator/internal/types"
)

var (
	ErrInvalidSeed     = errors.New("invalid initial LP info")
	ErrInvalidSnapshot = errors.New("invalid pool snapshot")
)

// Input is everything needed to build the series of one vault.
type Input struct {
	Snapshots  []types.PoolSnapshot
	Seed       types.InitialLPInfo
	Prices     types.PriceTable
	BaseToken  string // address of the base asset
	QuoteToken string // address of the quote asset
	TokenA     string // address of the token LiquidityA is denominated in
}

// lpPricePoint is the intermediate per-snapshot result.
type lpPricePoint struct {
	time    int64
	lpPrice float64
	pnl     float64
}

// Index returns the PI/RPI series ordered by time. The input slice is not modified.
// An empty series is returned when no snapshot has a non-zero LP price.
func Index(in Input) ([]types.PerformanceIndexPoint, error) {
	if err := validateSeed(in.Seed); err != nil {
		return nil, err
	}

	snapshots := make([]types.PoolSnapshot, len(in.Snapshots))
	copy(snapshots, in.Snapshots)
	for i, s := range snapshots {
		if err := validateSnapshot(s); err != nil {
			return nil, fmt.Errorf("snapshot %d at %d: %w", i, s.Timestamp, err)
		}
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp < snapshots[j].Timestamp
	})

	quotePrice := in.Prices.QuoteOrOne(in.QuoteToken)
	baseIsA := types.SameAddress(in.BaseToken, in.TokenA)

	points := make([]lpPricePoint, 0, len(snapshots))
	for _, s := range snapshots {
		basePrice := s.Price * quotePrice * in.Seed.InitialPriceMultiplier
		onHold := OnHoldUSDPerLP(in.Seed, quotePrice, basePrice)

		var tvl float64
		if baseIsA {
			tvl = s.LiquidityA*basePrice + s.LiquidityB*quotePrice
		} else {
			tvl = s.LiquidityA*quotePrice + s.LiquidityB*basePrice
		}

		var lpPrice float64
		if s.TotalSupply != 0 {
			lpPrice = tvl / s.TotalSupply
		}

		var pnl float64
		if onHold > 0 {
			pnl = lpPrice / onHold
		}

		if err := checkFinite(basePrice, onHold, tvl, lpPrice, pnl); err != nil {
			return nil, fmt.Errorf("snapshot at %d: %w", s.Timestamp, err)
		}
		points = append(points, lpPricePoint{time: s.Timestamp, lpPrice: lpPrice, pnl: pnl})
	}

	firstNonZero := -1
	for i, p := range points {
		if p.lpPrice > 0 {
			firstNonZero = i
			break
		}
	}
	if firstNonZero == -1 {
		return []types.PerformanceIndexPoint{}, nil
	}

	initialLpPrice := points[firstNonZero].lpPrice
	series := make([]types.PerformanceIndexPoint, 0, len(points)-firstNonZero)
	for _, p := range points[firstNonZero:] {
		var pi float64
		if p.lpPrice != 0 {
			pi = p.lpPrice / initialLpPrice
		}
		series = append(series, types.PerformanceIndexPoint{
			Time:   p.time,
			Values: [3]float64{pi, p.pnl, 0},
		})
	}
	return series, nil
}

// checkFinite rejects derived values that overflowed even though every input was finite.
func checkFinite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: derived value overflows float64", ErrInvalidSnapshot)
		}
	}
	return nil
}

// OnHoldUSDPerLP is the USD value per LP token of holding the seed amounts instead of providing liquidity.
func OnHoldUSDPerLP(seed types.InitialLPInfo, quotePrice, basePrice float64) float64 {
	if seed.LPTokenAmount == 0 {
		return 0
	}
	return (seed.QuoteTokenAmount*quotePrice + seed.BaseTokenAmount*basePrice) / seed.LPTokenAmount
}

// LatestRPI returns the RPI of the most recent point.
func LatestRPI(series []types.PerformanceIndexPoint) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	latest := series[0]
	for _, p := range series[1:] {
		if p.Time >= latest.Time {
			latest = p
		}
	}
	return latest.RPI(), true
}

func validateSeed(seed types.InitialLPInfo) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"quote_token_amount", seed.QuoteTokenAmount},
		{"base_token_amount", seed.BaseTokenAmount},
		{"lp_token_amount", seed.LPTokenAmount},
		{"initial_price_multiplier", seed.InitialPriceMultiplier},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidSeed, f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: %s is negative: %f", ErrInvalidSeed, f.name, f.value)
		}
	}
	if seed.LPTokenAmount == 0 {
		return fmt.Errorf("%w: lp_token_amount must be positive", ErrInvalidSeed)
	}
	return nil
}

func validateSnapshot(s types.PoolSnapshot) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"price", s.Price},
		{"liquidity_a", s.LiquidityA},
		{"liquidity_b", s.LiquidityB},
		{"total_supply", s.TotalSupply},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidSnapshot, f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: %s is negative: %f", ErrInvalidSnapshot, f.name, f.value)
		}
	}
	return nil
}
