/*
This file contains the subgraph payload schemas and their validation.

Numeric fields arrive as decimal strings (BigDecimal / BigInt) and are parsed through
sdkmath.LegacyDec. Nothing leaves this package without passing its row's convert method.
*/

package datafetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/elys-network/vault-valuator/internal/types"
	"github.com/elys-network/vault-valuator/internal/utils"
)

// LP tokens of a V2 pair always carry 18 decimals.
const lpTokenDecimals = 18

var ErrInvalidAddress = errors.New("invalid address")

type tokenRow struct {
	ID       string      `json:"id"`
	Symbol   string      `json:"symbol"`
	Decimals json.Number `json:"decimals"`
}

type pairRow struct {
	ID          string      `json:"id"`
	Token0      tokenRow    `json:"token0"`
	Token1      tokenRow    `json:"token1"`
	Reserve0    json.Number `json:"reserve0"`
	Reserve1    json.Number `json:"reserve1"`
	TotalSupply json.Number `json:"totalSupply"`
}

type metaRow struct {
	Block struct {
		Timestamp json.Number `json:"timestamp"`
	} `json:"block"`
}

type snapshotRow struct {
	ID          string      `json:"id"`
	Timestamp   json.Number `json:"timestamp"`
	Price       json.Number `json:"price"`
	LiquidityA  json.Number `json:"liquidityA"`
	LiquidityB  json.Number `json:"liquidityB"`
	TotalSupply json.Number `json:"totalSupply"`
}

type volumeRow struct {
	ID        string      `json:"id"`
	Timestamp json.Number `json:"timestamp"`
	Token0    string      `json:"token0"`
	Amount0   json.Number `json:"amount0"`
	Token1    string      `json:"token1"`
	Amount1   json.Number `json:"amount1"`
}

type spreadProfitRow struct {
	ID                     string      `json:"id"`
	Timestamp              json.Number `json:"timestamp"`
	AccumulatedProfitInUSD json.Number `json:"accumulatedProfitInUSD"`
}

type tokenPriceRow struct {
	ID       string      `json:"id"`
	PriceUSD json.Number `json:"priceUSD"`
}

func (r snapshotRow) rowID() string     { return r.ID }
func (r volumeRow) rowID() string       { return r.ID }
func (r spreadProfitRow) rowID() string { return r.ID }

// validateAddress checks a hex address and returns its lower case form.
func validateAddress(field, address string) (string, error) {
	if !ethcommon.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidAddress, field, address)
	}
	return types.NormalizeAddress(address), nil
}

func parseTimestamp(field string, n json.Number) (int64, error) {
	ts, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if ts <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", field, ts)
	}
	return ts, nil
}

func parseAmount(field string, n json.Number) (float64, error) {
	f, err := utils.DecimalStringToFloat64(n.String())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return f, nil
}

// parseSignedAmount is parseAmount for fields that may legitimately be negative, e.g. profit.
func parseSignedAmount(field string, n json.Number) (float64, error) {
	s := strings.TrimSpace(n.String())
	negative := strings.HasPrefix(s, "-")
	f, err := parseAmount(field, json.Number(strings.TrimPrefix(s, "-")))
	if err != nil {
		return 0, err
	}
	if negative {
		f = -f
	}
	return f, nil
}

func parseRawAmount(field string, n json.Number, decimals int) (sdkmath.Int, error) {
	raw, err := utils.DecimalStringToSDKInt(n.String(), decimals)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%s: %w", field, err)
	}
	return raw, nil
}

func (r tokenRow) convert(field string) (types.Token, error) {
	address, err := validateAddress(field, r.ID)
	if err != nil {
		return types.Token{}, err
	}
	decimals, err := strconv.Atoi(r.Decimals.String())
	if err != nil || decimals < 0 || decimals > lpTokenDecimals {
		return types.Token{}, fmt.Errorf("%s decimals must be between 0 and 18, got %q", field, r.Decimals)
	}
	return types.Token{
		Address:  address,
		Symbol:   strings.TrimSpace(r.Symbol),
		Decimals: decimals,
	}, nil
}

func (r pairRow) convert(blockTimestamp int64) (types.PairState, error) {
	var (
		state types.PairState
		err   error
	)

	if state.Address, err = validateAddress("pair", r.ID); err != nil {
		return types.PairState{}, err
	}
	if state.TokenA, err = r.Token0.convert("token0"); err != nil {
		return types.PairState{}, err
	}
	if state.TokenB, err = r.Token1.convert("token1"); err != nil {
		return types.PairState{}, err
	}

	if state.Reserves.ReserveA, err = parseAmount("reserve0", r.Reserve0); err != nil {
		return types.PairState{}, err
	}
	if state.Reserves.ReserveB, err = parseAmount("reserve1", r.Reserve1); err != nil {
		return types.PairState{}, err
	}
	if state.Reserves.TotalSupply, err = parseAmount("totalSupply", r.TotalSupply); err != nil {
		return types.PairState{}, err
	}

	if state.RawReserveA, err = parseRawAmount("reserve0", r.Reserve0, state.TokenA.Decimals); err != nil {
		return types.PairState{}, err
	}
	if state.RawReserveB, err = parseRawAmount("reserve1", r.Reserve1, state.TokenB.Decimals); err != nil {
		return types.PairState{}, err
	}
	if state.RawTotalSupply, err = parseRawAmount("totalSupply", r.TotalSupply, lpTokenDecimals); err != nil {
		return types.PairState{}, err
	}

	state.BlockTimestamp = blockTimestamp
	return state, nil
}

func (r snapshotRow) convert() (types.PoolSnapshot, error) {
	var (
		s   types.PoolSnapshot
		err error
	)
	if s.Timestamp, err = parseTimestamp("timestamp", r.Timestamp); err != nil {
		return s, err
	}
	if s.Price, err = parseAmount("price", r.Price); err != nil {
		return s, err
	}
	if s.LiquidityA, err = parseAmount("liquidityA", r.LiquidityA); err != nil {
		return s, err
	}
	if s.LiquidityB, err = parseAmount("liquidityB", r.LiquidityB); err != nil {
		return s, err
	}
	if s.TotalSupply, err = parseAmount("totalSupply", r.TotalSupply); err != nil {
		return s, err
	}
	return s, nil
}

func (r volumeRow) convert() (types.VolumeRecord, error) {
	var (
		v   types.VolumeRecord
		err error
	)
	if v.Timestamp, err = parseTimestamp("timestamp", r.Timestamp); err != nil {
		return v, err
	}
	if v.Token0, err = validateAddress("token0", r.Token0); err != nil {
		return v, err
	}
	if v.Token1, err = validateAddress("token1", r.Token1); err != nil {
		return v, err
	}
	if v.Amount0, err = parseAmount("amount0", r.Amount0); err != nil {
		return v, err
	}
	if v.Amount1, err = parseAmount("amount1", r.Amount1); err != nil {
		return v, err
	}
	return v, nil
}

func (r spreadProfitRow) convert() (types.SpreadProfitRecord, error) {
	var (
		p   types.SpreadProfitRecord
		err error
	)
	if p.Timestamp, err = parseTimestamp("timestamp", r.Timestamp); err != nil {
		return p, err
	}
	if p.AccumulatedProfitInUSD, err = parseSignedAmount("accumulatedProfitInUSD", r.AccumulatedProfitInUSD); err != nil {
		return p, err
	}
	return p, nil
}

func (r tokenPriceRow) convert() (string, float64, error) {
	address, err := validateAddress("token", r.ID)
	if err != nil {
		return "", 0, err
	}
	price, err := parseAmount("priceUSD", r.PriceUSD)
	if err != nil {
		return "", 0, err
	}
	return address, price, nil
}
