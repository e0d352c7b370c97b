/*
This file contains the conversions between raw integer token units, decimal strings
from the indexer, and float64 USD math.

Raw units (sdkmath.Int) are what the AMM math works on. float64 is only for USD valuation
and display. Decimal strings are parsed through sdkmath.LegacyDec so nothing is rounded
before we decide to.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
	ErrInvalidDecimal   = errors.New("invalid decimal string")
)

// maxDecimalPlaces is the precision of sdkmath.LegacyDec.
const maxDecimalPlaces = 18

// SDKIntToFloat64 converts raw token units to a decimal float64 with proper precision handling
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if err := validatePrecision(precision); err != nil {
		return 0, err
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	result := sdkmath.LegacyNewDecFromInt(amount).Quo(powerOfTen(precision))
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}

// ParseDecimal parses a non-negative decimal string as sent by the indexer.
// Digits beyond 18 decimal places are truncated. Exponent notation is accepted.
func ParseDecimal(s string) (sdkmath.LegacyDec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: empty string", ErrInvalidDecimal)
	}

	if strings.ContainsAny(s, "eE") {
		f, _, err := big.ParseFloat(s, 10, 256, big.ToZero)
		if err != nil {
			return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %q: %w", ErrInvalidDecimal, s, err)
		}
		if f.IsInf() {
			return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %q", ErrNotFinite, s)
		}
		s = f.Text('f', maxDecimalPlaces)
	}

	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > maxDecimalPlaces {
		s = s[:dot+1+maxDecimalPlaces]
	}

	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %q: %w", ErrInvalidDecimal, s, err)
	}
	if dec.IsNegative() {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %s", ErrAmountNegative, s)
	}
	return dec, nil
}

// DecimalStringToFloat64 parses a non-negative decimal string into a finite float64.
func DecimalStringToFloat64(s string) (float64, error) {
	dec, err := ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	f, err := dec.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s", ErrNotFinite, s)
	}
	return f, nil
}

// DecimalStringToSDKInt converts a decimal token amount (e.g. "1.5") to raw units at the given precision.
// Fractions of the smallest unit are truncated.
func DecimalStringToSDKInt(s string, precision int) (sdkmath.Int, error) {
	if err := validatePrecision(precision); err != nil {
		return sdkmath.ZeroInt(), err
	}
	dec, err := ParseDecimal(s)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return dec.Mul(powerOfTen(precision)).TruncateInt(), nil
}

func validatePrecision(precision int) error {
	if precision < 0 || precision > maxDecimalPlaces {
		return fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	return nil
}

func powerOfTen(precision int) sdkmath.LegacyDec {
	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}
	return factor
}
