/*

This file contains the ranking of vaults by APY for the vault listing.

*/

package analyzer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/elys-network/vault-valuator/internal/logger"
	"github.com/elys-network/vault-valuator/internal/types"
)

var rankLogger = logger.GetForComponent("vault_ranker")

var ErrNoRankableVaults = errors.New("no vaults with a usable APY found")

// RankVaults orders vaults by APY, highest first, and keeps at most limit entries (limit <= 0 keeps all).
// Vaults whose APY is not available are skipped. A non-finite APY marked as usable is an error.
// Ties are broken by TVL, then by address, so the order is deterministic.
func RankVaults(valuations []types.VaultValuation, names map[string]string, limit int) ([]types.VaultRank, error) {
	if len(valuations) == 0 {
		return nil, ErrNoRankableVaults
	}

	ranks := make([]types.VaultRank, 0, len(valuations))
	for _, v := range valuations {
		if !v.APY.IsOK() {
			rankLogger.Debug().
				Str("vault", v.Vault).
				Str("status", string(v.APY.Status)).
				Msg("Skipping vault without usable APY")
			continue
		}
		if math.IsNaN(v.APY.Value) || math.IsInf(v.APY.Value, 0) {
			rankLogger.Error().
				Str("vault", v.Vault).
				Float64("apy", v.APY.Value).
				Msg("Vault has invalid APY")
			return nil, fmt.Errorf("vault %s has invalid APY: %f", v.Vault, v.APY.Value)
		}
		ranks = append(ranks, types.VaultRank{
			Vault: v.Vault,
			Name:  names[types.NormalizeAddress(v.Vault)],
			APY:   v.APY.Value,
			TVL:   v.TVL,
		})
	}

	if len(ranks) == 0 {
		return nil, ErrNoRankableVaults
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].APY != ranks[j].APY {
			return ranks[i].APY > ranks[j].APY
		}
		if ranks[i].TVL != ranks[j].TVL {
			return ranks[i].TVL > ranks[j].TVL
		}
		return ranks[i].Vault < ranks[j].Vault
	})

	if limit > 0 && limit < len(ranks) {
		ranks = ranks[:limit]
	}

	for i, r := range ranks {
		rankLogger.Debug().
			Int("rank", i+1).
			Str("vault", r.Vault).
			Float64("apy", r.APY).
			Msg("Ranked vault")
	}

	return ranks, nil
}
