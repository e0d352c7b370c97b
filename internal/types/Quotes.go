/*

Liquidity quote results returned to callers. All amounts are raw integer token units.

*/

package types

import "cosmossdk.io/math"

type SwapQuote struct {
	Pair             string   `json:"pair"`
	TokenIn          string   `json:"token_in"`
	TokenOut         string   `json:"token_out"`
	AmountIn         math.Int `json:"amount_in"`
	AmountOut        math.Int `json:"amount_out"`
	AmountOutDecimal float64  `json:"amount_out_decimal"` // AmountOut scaled by TokenOut decimals, display only
}

type MintQuote struct {
	Pair      string   `json:"pair"`
	Amount0   math.Int `json:"amount0"`
	Amount1   math.Int `json:"amount1"`
	LPAmount  math.Int `json:"lp_amount"`
	Bootstrap bool     `json:"bootstrap"` // true when priced as the first deposit into an empty pool
}

type BurnQuote struct {
	Pair     string   `json:"pair"`
	LPAmount math.Int `json:"lp_amount"`
	Amount0  math.Int `json:"amount0"`
	Amount1  math.Int `json:"amount1"`
}

// VaultRank is one entry of the APY ranking.
type VaultRank struct {
	Vault string  `json:"vault"`
	Name  string  `json:"name"`
	APY   float64 `json:"apy"`
	TVL   float64 `json:"tvl"`
}
