/*

This file contains the types describing a vault: its static configuration, its seed
("buy and hold") baseline, and the valuation produced for it on every request.

*/

package types

import "time"

const (
	// DefaultInitialPriceMultiplier scales snapshot prices when a vault has no recorded seed.
	DefaultInitialPriceMultiplier = 1e10
)

// InitialLPInfo is the hold baseline recorded when the vault was seeded.
type InitialLPInfo struct {
	QuoteTokenAmount       float64 `json:"quote_token_amount"`
	BaseTokenAmount        float64 `json:"base_token_amount"`
	LPTokenAmount          float64 `json:"lp_token_amount"`
	Timestamp              int64   `json:"timestamp"` // unix seconds
	InitialPriceMultiplier float64 `json:"initial_price_multiplier"`
}

// DefaultInitialLPInfo is used for vaults without seed info.
func DefaultInitialLPInfo(now time.Time) InitialLPInfo {
	return InitialLPInfo{
		QuoteTokenAmount:       1,
		BaseTokenAmount:        1,
		LPTokenAmount:          1,
		Timestamp:              now.Unix(),
		InitialPriceMultiplier: DefaultInitialPriceMultiplier,
	}
}

// VaultConfig is the externally owned, read-only configuration of one vault.
type VaultConfig struct {
	Address   string         `json:"address"` // pair address of the vault
	Name      string         `json:"name"`
	ChainID   string         `json:"chain_id"`
	TokenA    Token          `json:"token_a"` // token0 of the pair
	TokenB    Token          `json:"token_b"` // token1 of the pair
	Testnet   bool           `json:"testnet"`
	Seed      *InitialLPInfo `json:"seed,omitempty"` // nil when the vault has no recorded seed
	CreatedAt time.Time      `json:"created_at"`
}

// MetricStatus tags whether a Metric value can be used.
type MetricStatus string

const (
	MetricOK            MetricStatus = "ok"
	MetricUninitialized MetricStatus = "uninitialized" // e.g. LP supply is zero
	MetricUndefined     MetricStatus = "undefined"     // e.g. zero annualization period
)

// Metric is a figure that may be degenerate. Value is 0 unless Status is MetricOK.
type Metric struct {
	Value  float64      `json:"value"`
	Status MetricStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

func OKMetric(value float64) Metric {
	return Metric{Value: value, Status: MetricOK}
}

func UninitializedMetric(reason string) Metric {
	return Metric{Status: MetricUninitialized, Reason: reason}
}

func UndefinedMetric(reason string) Metric {
	return Metric{Status: MetricUndefined, Reason: reason}
}

// IsOK reports whether the value is usable.
func (m Metric) IsOK() bool {
	return m.Status == MetricOK
}

// PerformanceIndexPoint is one point of the PI/RPI series: Values = [PI, RPI, 0].
// The third slot is always 0 and exists for chart compatibility.
type PerformanceIndexPoint struct {
	Time   int64      `json:"time"`
	Values [3]float64 `json:"values"`
}

func (p PerformanceIndexPoint) PI() float64 {
	return p.Values[0]
}

func (p PerformanceIndexPoint) RPI() float64 {
	return p.Values[1]
}

// VaultValuation is the aggregate result for one vault. Recomputed per request.
type VaultValuation struct {
	Vault                string                  `json:"vault"`
	BaseToken            string                  `json:"base_token"`
	QuoteToken           string                  `json:"quote_token"`
	LPUSDValue           Metric                  `json:"lp_usd_value"`
	TVL                  float64                 `json:"tvl"`
	APY                  Metric                  `json:"apy"`
	Volume24h            float64                 `json:"volume_24h"`
	ReserveA             float64                 `json:"reserve_a"`
	ReserveB             float64                 `json:"reserve_b"`
	TotalSupply          float64                 `json:"total_supply"`
	HistoricalPriceIndex []PerformanceIndexPoint `json:"historical_price_index"`
	Volatility           Metric                  `json:"volatility"`       // annualized, of the LP price series
	MaxDrawdown          float64                 `json:"max_drawdown"`     // fraction in [0, 1] of the PI series
	ImpermanentLoss      Metric                  `json:"impermanent_loss"` // over the snapshot window, negative fraction
	ComputedAt           time.Time               `json:"computed_at"`
}
