/*

Constant-product (Uniswap V2) reserve math: swap output, LP mint and LP burn quotes.

Everything in this package is exact integer arithmetic on raw token units. USD valuation
elsewhere in the service uses float64; amounts only cross into float64 through
utils.SDKIntToFloat64 after quoting is done. Do not move these computations to floats,
rounding differences here are exploitable against the pool.

*/

package amm

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// MinimumLiquidity is permanently locked by the pair on the first mint.
const MinimumLiquidity = 1000

// fee: 0.3% => multiplier 997/1000
var (
	feeMul           = big.NewInt(997)
	feeDen           = big.NewInt(1000)
	minimumLiquidity = big.NewInt(MinimumLiquidity)
)

var (
	ErrNilAmount          = errors.New("amount is nil")
	ErrNegativeAmount     = errors.New("amount is negative")
	ErrDegenerateReserves = errors.New("reserves cannot price this operation")
	ErrOverflow           = errors.New("result exceeds 256 bits")
)

// AmountOutInto computes the swap output into dst using t1 and t2 as scratch space.
// No validation is done; callers on hot paths reuse the temporaries across calls.
func AmountOutInto(dst, t1, t2 *big.Int, amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	// t1 = amountIn * 997
	t1.Mul(amountIn, feeMul)
	// t2 = reserveIn * 1000 + t1
	t2.Mul(reserveIn, feeDen)
	t2.Add(t2, t1)
	// dst = t1 * reserveOut / t2
	dst.Mul(t1, reserveOut)
	return dst.Quo(dst, t2)
}

// GetAmountOut quotes floor(amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)).
// With reserveIn == 0 the quote degenerates to reserveOut for any positive amountIn.
func GetAmountOut(amountIn, reserveIn, reserveOut sdkmath.Int) (sdkmath.Int, error) {
	in, err := toBig("amountIn", amountIn)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	rIn, err := toBig("reserveIn", reserveIn)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	rOut, err := toBig("reserveOut", reserveOut)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if rIn.Sign() == 0 && in.Sign() == 0 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: reserveIn and amountIn are both zero", ErrDegenerateReserves)
	}

	var t1, t2 big.Int
	out := AmountOutInto(new(big.Int), &t1, &t2, in, rIn, rOut)
	return fromBig(out)
}

// GetMintAmount quotes the LP tokens minted for depositing amount0/amount1.
// A nil totalSupply is treated as zero.
func GetMintAmount(reserve0, reserve1, amount0, amount1, totalSupply sdkmath.Int, check BootstrapCheck) (sdkmath.Int, error) {
	lp, _, err := mint(reserve0, reserve1, amount0, amount1, totalSupply, check)
	return lp, err
}

// QuoteMint is GetMintAmount that also reports whether the bootstrap formula was used.
func QuoteMint(reserve0, reserve1, amount0, amount1, totalSupply sdkmath.Int, check BootstrapCheck) (lpAmount sdkmath.Int, bootstrap bool, err error) {
	return mint(reserve0, reserve1, amount0, amount1, totalSupply, check)
}

func mint(reserve0, reserve1, amount0, amount1, totalSupply sdkmath.Int, check BootstrapCheck) (sdkmath.Int, bool, error) {
	r0, err := toBig("reserve0", reserve0)
	if err != nil {
		return sdkmath.ZeroInt(), false, err
	}
	r1, err := toBig("reserve1", reserve1)
	if err != nil {
		return sdkmath.ZeroInt(), false, err
	}
	a0, err := toBig("amount0", amount0)
	if err != nil {
		return sdkmath.ZeroInt(), false, err
	}
	a1, err := toBig("amount1", amount1)
	if err != nil {
		return sdkmath.ZeroInt(), false, err
	}
	ts, err := supplyToBig(totalSupply)
	if err != nil {
		return sdkmath.ZeroInt(), false, err
	}

	if check.IsBootstrap(r0, r1) {
		// sqrt(amount0 * amount1) - MINIMUM_LIQUIDITY, floored at zero
		lp := new(big.Int).Mul(a0, a1)
		lp.Sqrt(lp)
		lp.Sub(lp, minimumLiquidity)
		if lp.Sign() < 0 {
			lp.SetInt64(0)
		}
		out, err := fromBig(lp)
		return out, true, err
	}

	if r0.Sign() == 0 || r1.Sign() == 0 {
		return sdkmath.ZeroInt(), false, fmt.Errorf("%w: reserve0=%s reserve1=%s", ErrDegenerateReserves, r0, r1)
	}

	lp0 := new(big.Int).Mul(a0, ts)
	lp0.Quo(lp0, r0)
	lp1 := new(big.Int).Mul(a1, ts)
	lp1.Quo(lp1, r1)
	if lp1.Cmp(lp0) < 0 {
		lp0 = lp1
	}
	out, err := fromBig(lp0)
	return out, false, err
}

// GetBurnAmounts splits lpAmount into the underlying reserves.
// A nil or zero totalSupply yields (0, 0) without error.
func GetBurnAmounts(reserve0, reserve1, lpAmount, totalSupply sdkmath.Int) (amount0, amount1 sdkmath.Int, err error) {
	ts, err := supplyToBig(totalSupply)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	if ts.Sign() == 0 {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), nil
	}
	r0, err := toBig("reserve0", reserve0)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	r1, err := toBig("reserve1", reserve1)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	lp, err := toBig("lpAmount", lpAmount)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}

	out0 := new(big.Int).Mul(lp, r0)
	out0.Quo(out0, ts)
	out1 := new(big.Int).Mul(lp, r1)
	out1.Quo(out1, ts)

	if amount0, err = fromBig(out0); err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	if amount1, err = fromBig(out1); err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	return amount0, amount1, nil
}

func toBig(name string, v sdkmath.Int) (*big.Int, error) {
	if v.IsNil() {
		return nil, fmt.Errorf("%w: %s", ErrNilAmount, name)
	}
	if v.IsNegative() {
		return nil, fmt.Errorf("%w: %s=%s", ErrNegativeAmount, name, v)
	}
	return v.BigInt(), nil
}

func supplyToBig(v sdkmath.Int) (*big.Int, error) {
	if v.IsNil() {
		return new(big.Int), nil
	}
	return toBig("totalSupply", v)
}

func fromBig(v *big.Int) (sdkmath.Int, error) {
	if v.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d bits", ErrOverflow, v.BitLen())
	}
	return sdkmath.NewIntFromBigInt(v), nil
}
