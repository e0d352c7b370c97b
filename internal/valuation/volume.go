package valuation

import (
	"github.com/elys-network/vault-valuator/internal/types"
)

// Volume sums the USD value of the quote leg of each swap.
// When neither leg is the quote token the second leg is used. Unknown prices contribute 0.
func Volume(records []types.VolumeRecord, quoteToken string, prices types.PriceTable) float64 {
	var total float64
	for _, r := range records {
		if types.SameAddress(r.Token0, quoteToken) {
			total += r.Amount0 * prices.USDOrZero(r.Token0)
		} else {
			total += r.Amount1 * prices.USDOrZero(r.Token1)
		}
	}
	return total
}

// TotalSpreadProfit sums the accumulated profit of every record in the window.
func TotalSpreadProfit(records []types.SpreadProfitRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.AccumulatedProfitInUSD
	}
	return total
}

// TVL values both reserve legs at their current USD price. Unknown prices contribute 0.
func TVL(vault types.VaultConfig, reserves types.ReservePair, prices types.PriceTable) float64 {
	return prices.USDOrZero(vault.TokenA.Address)*reserves.ReserveA +
		prices.USDOrZero(vault.TokenB.Address)*reserves.ReserveB
}
