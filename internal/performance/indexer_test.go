package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/vault-valuator/internal/types"
)

const (
	baseAddr  = "0xBase000000000000000000000000000000000001"
	quoteAddr = "0xquote00000000000000000000000000000000002"
)

var testNow = time.Unix(1_700_000_000, 0)

func unitSeed() types.InitialLPInfo {
	return types.InitialLPInfo{QuoteTokenAmount: 1, BaseTokenAmount: 1, LPTokenAmount: 1, Timestamp: 0, InitialPriceMultiplier: 1}
}

func TestIndexAnchorsAtFirstNonZeroLPPrice(t *testing.T) {
	// out of order on purpose; lp prices by time are 0, 0, 2, 3
	snapshots := []types.PoolSnapshot{
		{Timestamp: 4, Price: 1, LiquidityA: 1, LiquidityB: 2, TotalSupply: 1},
		{Timestamp: 1, Price: 1, LiquidityA: 5, LiquidityB: 5, TotalSupply: 0},
		{Timestamp: 3, Price: 1, LiquidityA: 1, LiquidityB: 1, TotalSupply: 1},
		{Timestamp: 2, Price: 1, LiquidityA: 0, LiquidityB: 0, TotalSupply: 10},
	}
	original := append([]types.PoolSnapshot(nil), snapshots...)

	series, err := Index(Input{
		Snapshots:  snapshots,
		Seed:       unitSeed(),
		Prices:     types.PriceTable{},
		BaseToken:  baseAddr,
		QuoteToken: quoteAddr,
		TokenA:     baseAddr,
	})
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, int64(3), series[0].Time)
	assert.InDelta(t, 1.0, series[0].PI(), 1e-12)
	assert.Equal(t, int64(4), series[1].Time)
	assert.InDelta(t, 1.5, series[1].PI(), 1e-12)

	// on hold per LP is (1*1 + 1*1)/1 = 2
	assert.InDelta(t, 1.0, series[0].RPI(), 1e-12)
	assert.InDelta(t, 1.5, series[1].RPI(), 1e-12)
	for _, p := range series {
		assert.Zero(t, p.Values[2])
	}

	require.Equal(t, original, snapshots, "input must not be reordered")
}

func TestIndexAllZeroIsEmpty(t *testing.T) {
	series, err := Index(Input{
		Snapshots: []types.PoolSnapshot{
			{Timestamp: 1, Price: 1, LiquidityA: 1, LiquidityB: 1, TotalSupply: 0},
			{Timestamp: 2, Price: 0, LiquidityA: 0, LiquidityB: 0, TotalSupply: 5},
		},
		Seed:       unitSeed(),
		Prices:     types.PriceTable{},
		BaseToken:  baseAddr,
		QuoteToken: quoteAddr,
		TokenA:     baseAddr,
	})
	require.NoError(t, err)
	require.NotNil(t, series)
	require.Empty(t, series)

	series, err = Index(Input{Seed: unitSeed(), BaseToken: baseAddr, QuoteToken: quoteAddr, TokenA: baseAddr})
	require.NoError(t, err)
	require.Empty(t, series)
}

func TestIndexUsesQuotePriceAndSwapsLegsByAddress(t *testing.T) {
	prices := types.NewPriceTable(map[string]float64{quoteAddr: 2})
	snapshot := types.PoolSnapshot{Timestamp: 10, Price: 3, LiquidityA: 4, LiquidityB: 5, TotalSupply: 2}

	// base price = 3 * 2 * 1 = 6
	baseIsA, err := Index(Input{
		Snapshots: []types.PoolSnapshot{snapshot}, Seed: unitSeed(), Prices: prices,
		BaseToken: baseAddr, QuoteToken: quoteAddr, TokenA: baseAddr,
	})
	require.NoError(t, err)
	require.Len(t, baseIsA, 1)
	// tvl = 4*6 + 5*2 = 34, lp = 17, on hold = 2 + 6 = 8
	assert.InDelta(t, 17.0/8.0, baseIsA[0].RPI(), 1e-12)

	// address match is case-insensitive and not positional
	quoteIsA, err := Index(Input{
		Snapshots: []types.PoolSnapshot{snapshot}, Seed: unitSeed(), Prices: prices,
		BaseToken: baseAddr, QuoteToken: quoteAddr, TokenA: "0xQUOTE00000000000000000000000000000000002",
	})
	require.NoError(t, err)
	require.Len(t, quoteIsA, 1)
	// tvl = 4*2 + 5*6 = 38, lp = 19
	assert.InDelta(t, 19.0/8.0, quoteIsA[0].RPI(), 1e-12)
	assert.InDelta(t, 1.0, quoteIsA[0].PI(), 1e-12)
}

func TestIndexMissingQuotePriceIsOne(t *testing.T) {
	snapshot := types.PoolSnapshot{Timestamp: 1, Price: 2, LiquidityA: 1, LiquidityB: 1, TotalSupply: 1}
	seed := types.InitialLPInfo{QuoteTokenAmount: 3, BaseTokenAmount: 0, LPTokenAmount: 1, InitialPriceMultiplier: 1}

	series, err := Index(Input{
		Snapshots: []types.PoolSnapshot{snapshot}, Seed: seed, Prices: types.PriceTable{},
		BaseToken: baseAddr, QuoteToken: quoteAddr, TokenA: baseAddr,
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	// tvl = 1*2 + 1*1 = 3, on hold = 3*1 = 3
	assert.InDelta(t, 1.0, series[0].RPI(), 1e-12)
}

func TestIndexAppliesPriceMultiplier(t *testing.T) {
	seed := types.DefaultInitialLPInfo(testNow)
	snapshot := types.PoolSnapshot{Timestamp: 1, Price: 2e-10, LiquidityA: 1, LiquidityB: 0, TotalSupply: 1}

	series, err := Index(Input{
		Snapshots: []types.PoolSnapshot{snapshot}, Seed: seed, Prices: types.PriceTable{},
		BaseToken: baseAddr, QuoteToken: quoteAddr, TokenA: baseAddr,
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	// base price = 2e-10 * 1e10 = 2, on hold = 1 + 2 = 3
	assert.InDelta(t, 2.0/3.0, series[0].RPI(), 1e-9)
}

func TestIndexRejectsMalformedInput(t *testing.T) {
	_, err := Index(Input{Seed: types.InitialLPInfo{QuoteTokenAmount: 1, BaseTokenAmount: 1, InitialPriceMultiplier: 1}})
	require.ErrorIs(t, err, ErrInvalidSeed)

	_, err = Index(Input{
		Snapshots: []types.PoolSnapshot{{Timestamp: 1, Price: 1, LiquidityA: -1, LiquidityB: 1, TotalSupply: 1}},
		Seed:      unitSeed(),
	})
	require.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestIndexRejectsOverflowingDerivedValues(t *testing.T) {
	seed := unitSeed()
	seed.InitialPriceMultiplier = 1e10

	_, err := Index(Input{
		Snapshots: []types.PoolSnapshot{
			{Timestamp: 1, Price: 1, LiquidityA: 1, LiquidityB: 1, TotalSupply: 1},
			// finite price that overflows once scaled by the multiplier
			{Timestamp: 2, Price: 1e299, LiquidityA: 1, LiquidityB: 1, TotalSupply: 1},
		},
		Seed:       seed,
		Prices:     types.PriceTable{},
		BaseToken:  baseAddr,
		QuoteToken: quoteAddr,
		TokenA:     baseAddr,
	})
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	// a tiny supply overflows the LP price
	_, err = Index(Input{
		Snapshots:  []types.PoolSnapshot{{Timestamp: 1, Price: 1, LiquidityA: 1e300, LiquidityB: 1, TotalSupply: 1e-300}},
		Seed:       unitSeed(),
		Prices:     types.PriceTable{},
		BaseToken:  baseAddr,
		QuoteToken: quoteAddr,
		TokenA:     baseAddr,
	})
	require.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestLatestRPI(t *testing.T) {
	_, ok := LatestRPI(nil)
	require.False(t, ok)

	rpi, ok := LatestRPI([]types.PerformanceIndexPoint{
		{Time: 5, Values: [3]float64{1, 1.2, 0}},
		{Time: 9, Values: [3]float64{1, 1.4, 0}},
		{Time: 7, Values: [3]float64{1, 1.3, 0}},
	})
	require.True(t, ok)
	require.Equal(t, 1.4, rpi)
}
