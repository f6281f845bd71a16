package ratio

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galacticcouncil/intent-solver/internal/types"
)

func TestNewClampsZeroDenominator(t *testing.T) {
	r := New(big.NewInt(5), big.NewInt(0))
	assert.Equal(t, "5/1", r.String())
}

func TestNewCopiesOperands(t *testing.T) {
	n := big.NewInt(3)
	d := big.NewInt(4)
	r := New(n, d)

	n.SetInt64(99)
	d.SetInt64(99)

	assert.Equal(t, "3/4", r.String())
}

func TestZeroAndOne(t *testing.T) {
	assert.True(t, Zero().IsZero())
	assert.False(t, Zero().IsOne())
	assert.True(t, One().IsOne())
	assert.False(t, One().IsZero())

	// Unreduced forms still compare equal to one.
	assert.True(t, FromUint64(7, 7).IsOne())
	assert.Zero(t, FromUint64(7, 7).Cmp(One()))
}

func TestInverted(t *testing.T) {
	r := FromUint64(3, 4).Inverted()
	assert.Equal(t, "4/3", r.String())

	assert.True(t, Zero().Inverted().IsZero())
}

func TestCmp(t *testing.T) {
	assert.Zero(t, FromUint64(1, 2).Cmp(FromUint64(2, 4)), "unreduced equality")
	assert.Equal(t, -1, FromUint64(1, 3).Cmp(FromUint64(1, 2)))
	assert.Equal(t, 1, FromUint64(3, 2).Cmp(FromUint64(4, 3)))

	// Same denominator compares numerators directly.
	assert.Equal(t, 1, FromUint64(5, 7).Cmp(FromUint64(4, 7)))

	// A zero denominator sorts above every finite value.
	degenerate := Ratio{N: big.NewInt(1), D: big.NewInt(0)}
	assert.Equal(t, 1, degenerate.Cmp(FromUint64(1000, 1)))
	assert.Equal(t, -1, FromUint64(1000, 1).Cmp(degenerate))
}

func TestCmpAgreesWithDecimalOracle(t *testing.T) {
	// Exactly one ordering must hold for every pair, and it must match
	// the quotient comparison done in decimals.
	values := []Ratio{
		Zero(),
		One(),
		FromUint64(1, 2),
		FromUint64(2, 4),
		FromUint64(3, 4),
		FromUint64(5, 1),
		FromUint64(7, 3),
		FromUint64(999_999, 1_000_000),
		FromUint64(1_000_000, 999_999),
		FromUint64(123_456_789, 987_654_321),
	}

	quotient := func(r Ratio) decimal.Decimal {
		n := decimal.NewFromBigInt(r.N, 0)
		d := decimal.NewFromBigInt(r.D, 0)
		return n.DivRound(d, 30)
	}

	for i, a := range values {
		for j, b := range values {
			got := a.Cmp(b)
			want := quotient(a).Cmp(quotient(b))
			assert.Equal(t, want, got, "values[%d]=%s vs values[%d]=%s", i, a, j, b)
			assert.Equal(t, -got, b.Cmp(a), "antisymmetry %s vs %s", a, b)
		}
	}
}

func TestEqIsStructural(t *testing.T) {
	assert.True(t, FromUint64(1, 2).Eq(FromUint64(1, 2)))
	assert.False(t, FromUint64(1, 2).Eq(FromUint64(2, 4)), "Eq does not reduce")
}

func TestAmountOut(t *testing.T) {
	// 100 units priced at 1/100 into an asset priced at 2/100 yields 50.
	out, ok := AmountOut(types.NewBalance(100), FromUint64(1, 100), FromUint64(2, 100))
	require.True(t, ok)
	assert.Zero(t, out.Cmp(big.NewInt(50)))

	// Truncation drops the remainder.
	out, ok = AmountOut(types.NewBalance(5), FromUint64(1, 1), FromUint64(3, 1))
	require.True(t, ok)
	assert.Zero(t, out.Cmp(big.NewInt(1)))
}

func TestAmountIn(t *testing.T) {
	in, ok := AmountIn(types.NewBalance(50), FromUint64(1, 100), FromUint64(2, 100))
	require.True(t, ok)
	assert.Zero(t, in.Cmp(big.NewInt(100)))
}

func TestAmountOutZeroPrice(t *testing.T) {
	_, ok := AmountOut(types.NewBalance(100), FromUint64(1, 1), Zero())
	assert.False(t, ok, "zero output price divides by zero")
}

func TestAmountOutOverflow(t *testing.T) {
	huge := types.MaxBalance()
	_, ok := AmountOut(huge, FromUint64(2, 1), FromUint64(1, 1))
	assert.False(t, ok, "result exceeds the balance range")

	// The same magnitudes pass when the price shrinks the amount.
	out, ok := AmountOut(huge, FromUint64(1, 2), FromUint64(1, 1))
	require.True(t, ok)
	assert.Zero(t, out.Cmp(new(big.Int).Rsh(types.MaxBalance(), 1)))
}

func TestAmountRoundTripExactWhenDivisible(t *testing.T) {
	// out = amount * 3*7 / (7*9) = amount / 3, exact for multiples of 3.
	priceIn := FromUint64(3, 7)
	priceOut := FromUint64(9, 7)

	amount := types.NewBalance(999_999_999_999)
	out, ok := AmountOut(amount, priceIn, priceOut)
	require.True(t, ok)
	assert.Zero(t, out.Cmp(big.NewInt(333_333_333_333)))

	back, ok := AmountIn(out, priceIn, priceOut)
	require.True(t, ok)
	assert.Zero(t, amount.Cmp(back))
}
