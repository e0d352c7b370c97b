/*

Impermanent loss of a 50/50 constant product position, used as an analytics figure next to RPI.

*/

package analyzer

import (
	"errors"
	"math"
	"sort"

	"github.com/elys-network/vault-valuator/internal/types"
)

var ErrInvalidPriceRatio = errors.New("price ratio must be positive and finite")

// CalculateImpermanentLoss returns the loss of an LP position against holding, as a negative fraction,
// after the base price moved by priceRatio (new price / entry price): 2*sqrt(r)/(1+r) - 1.
func CalculateImpermanentLoss(priceRatio float64) (float64, error) {
	if math.IsNaN(priceRatio) || math.IsInf(priceRatio, 0) || priceRatio <= 0 {
		return 0, ErrInvalidPriceRatio
	}
	return 2*math.Sqrt(priceRatio)/(1+priceRatio) - 1, nil
}

// SnapshotImpermanentLoss is the impermanent loss between the first and last snapshots with a positive price.
func SnapshotImpermanentLoss(snapshots []types.PoolSnapshot) (float64, error) {
	priced := make([]types.PoolSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Price > 0 {
			priced = append(priced, s)
		}
	}
	if len(priced) < 2 {
		return 0, ErrInsufficientData
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].Timestamp < priced[j].Timestamp
	})
	return CalculateImpermanentLoss(priced[len(priced)-1].Price / priced[0].Price)
}
