package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKIntToFloat64(t *testing.T) {
	f, err := SDKIntToFloat64(sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	_, err = SDKIntToFloat64(sdkmath.NewInt(-1), 6)
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = SDKIntToFloat64(sdkmath.Int{}, 6)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = SDKIntToFloat64(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestParseDecimal(t *testing.T) {
	dec, err := ParseDecimal(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, "12.500000000000000000", dec.String())

	// more than 18 places is truncated, not rejected
	dec, err = ParseDecimal("0.1234567890123456789999")
	require.NoError(t, err)
	assert.Equal(t, "0.123456789012345678", dec.String())

	dec, err = ParseDecimal("1.5e-7")
	require.NoError(t, err)
	assert.Equal(t, "0.000000150000000000", dec.String())

	_, err = ParseDecimal("-3")
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = ParseDecimal("abc")
	require.ErrorIs(t, err, ErrInvalidDecimal)

	_, err = ParseDecimal("")
	require.ErrorIs(t, err, ErrInvalidDecimal)
}

func TestDecimalStringToSDKInt(t *testing.T) {
	raw, err := DecimalStringToSDKInt("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", raw.String())

	raw, err = DecimalStringToSDKInt("0.0000019", 6)
	require.NoError(t, err)
	assert.Equal(t, "1", raw.String())

	raw, err = DecimalStringToSDKInt("2", 18)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", raw.String())

	_, err = DecimalStringToSDKInt("1", -1)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestDecimalStringToFloat64(t *testing.T) {
	f, err := DecimalStringToFloat64("1234.5678")
	require.NoError(t, err)
	assert.InDelta(t, 1234.5678, f, 1e-12)
}
