package omnipool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeFromParts(t *testing.T) {
	assert.Equal(t, uint32(1500), FeeFromParts(1500).Parts())
	assert.Equal(t, uint32(feeDenominator), FeeFromParts(2_000_000).Parts(), "clamped to 100%")
	assert.True(t, FeeFromParts(0).IsZero())
	assert.True(t, FeeFromParts(feeDenominator).IsOne())
}

func TestFeeFromPercent(t *testing.T) {
	assert.Equal(t, uint32(10_000), FeeFromPercent(1).Parts())
	assert.Equal(t, uint32(feeDenominator), FeeFromPercent(100).Parts())
}

func TestFeeFromPair(t *testing.T) {
	fee, err := FeeFromPair(1500, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), fee.Parts())

	fee, err = FeeFromPair(3, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), fee.Parts())

	_, err = FeeFromPair(1, 0)
	assert.Error(t, err)

	_, err = FeeFromPair(1001, 1000)
	assert.Error(t, err)
}

func TestFeeComplement(t *testing.T) {
	assert.Equal(t, uint32(990_000), FeeFromPercent(1).Complement().Parts())
	assert.True(t, FeeFromPercent(100).Complement().IsZero())
	assert.True(t, FeeFromPercent(0).Complement().IsOne())
}

func TestFeeMulFloor(t *testing.T) {
	requireBalance(t, bal(26666666667), FeeFromPercent(1).MulFloor(bal(2666666666700)))
	requireBalance(t, bal(0), FeeFromPercent(0).MulFloor(bal(unit)))
	requireBalance(t, bal(unit), FeeFromPercent(100).MulFloor(bal(unit)))
	// 1 ppm of 999999 floors to zero.
	requireBalance(t, bal(0), FeeFromParts(1).MulFloor(bal(999_999)))
}

func TestFeeDecimal(t *testing.T) {
	assert.True(t, decimal.RequireFromString("0.0015").Equal(FeeFromParts(1500).Decimal()))
	assert.True(t, decimal.NewFromInt(1).Equal(FeeFromPercent(100).Decimal()))
	assert.True(t, FeeFromParts(0).Decimal().IsZero())
}

func TestFeeString(t *testing.T) {
	assert.Equal(t, "1500/1000000", FeeFromParts(1500).String())
}
