/*

Trailing-window records supplied by the indexer for volume and spread profit.

*/

package types

// VolumeRecord is one swap of a pair. Amounts are decimal token units, always non-negative.
type VolumeRecord struct {
	Timestamp int64   `json:"timestamp"`
	Token0    string  `json:"token0"`
	Amount0   float64 `json:"amount0"`
	Token1    string  `json:"token1"`
	Amount1   float64 `json:"amount1"`
}

// SpreadProfitRecord is the market making profit accrued by the vault in one indexer bucket.
type SpreadProfitRecord struct {
	Timestamp              int64   `json:"timestamp"`
	AccumulatedProfitInUSD float64 `json:"accumulated_profit_in_usd"`
}
