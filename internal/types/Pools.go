/*

Pool level state as seen by the valuation core.

ReservePair and PoolSnapshot carry decimal (token-unit adjusted) amounts and are used for USD math.
PairState additionally carries the exact integer reserves used for AMM quoting.

*/

package types

import (
	"cosmossdk.io/math"
)

// ReservePair is the pool state at a single point in time. Never mutated after a fetch.
type ReservePair struct {
	ReserveA    float64 `json:"reserve_a"`    // Decimal amount of TokenA held by the pool
	ReserveB    float64 `json:"reserve_b"`    // Decimal amount of TokenB held by the pool
	TotalSupply float64 `json:"total_supply"` // Decimal LP token supply
}

// PairState is a live read of a pair, with both decimal and raw integer views of the reserves.
type PairState struct {
	Address        string      `json:"address"`
	TokenA         Token       `json:"token_a"`
	TokenB         Token       `json:"token_b"`
	Reserves       ReservePair `json:"reserves"`
	RawReserveA    math.Int    `json:"raw_reserve_a"`    // TokenA reserve in smallest units
	RawReserveB    math.Int    `json:"raw_reserve_b"`    // TokenB reserve in smallest units
	RawTotalSupply math.Int    `json:"raw_total_supply"` // LP supply in smallest units (18 decimals)
	BlockTimestamp int64       `json:"block_timestamp,omitempty"`
}

// PoolSnapshot is one historical data point of a pair.
// Price is quote-per-base. LiquidityA is denominated in the pair's TokenA.
type PoolSnapshot struct {
	Timestamp   int64   `json:"timestamp"` // unix seconds
	Price       float64 `json:"price"`
	LiquidityA  float64 `json:"liquidity_a"`
	LiquidityB  float64 `json:"liquidity_b"`
	TotalSupply float64 `json:"total_supply"`
}
