// Package ratio implements the exact rational price type used by the
// solver. Prices are numerator/denominator pairs of 128-bit integers; no
// floating point is used anywhere, and cross-asset amount conversion
// multiplies before dividing in arbitrary-width arithmetic so nothing is
// lost until the final narrowing back to the 128-bit balance range.
package ratio

import (
	"fmt"
	"math/big"

	"github.com/galacticcouncil/intent-solver/internal/types"
)

// Ratio is an immutable rational number n/d. Two ratios are not required
// to be in lowest terms; comparison cross-multiplies instead of reducing.
// Treat values as read-only once constructed.
type Ratio struct {
	N *big.Int
	D *big.Int
}

// New builds a ratio from n/d, clamping a zero denominator to 1 so a valid
// instance can never divide by zero. Both operands are copied.
func New(n, d *big.Int) Ratio {
	dd := new(big.Int).Set(d)
	if dd.Sign() == 0 {
		dd.SetUint64(1)
	}
	return Ratio{N: new(big.Int).Set(n), D: dd}
}

// FromUint64 builds a ratio from two machine words.
func FromUint64(n, d uint64) Ratio {
	return New(new(big.Int).SetUint64(n), new(big.Int).SetUint64(d))
}

// One returns 1/1. Note that other n == d combinations also compare equal
// to one.
func One() Ratio {
	return FromUint64(1, 1)
}

// Zero returns 0/1.
func Zero() Ratio {
	return FromUint64(0, 1)
}

// IsZero reports whether the ratio represents zero.
func (r Ratio) IsZero() bool {
	return r.N == nil || r.N.Sign() == 0
}

// IsOne reports whether n == d with a positive denominator.
func (r Ratio) IsOne() bool {
	return r.N != nil && r.D != nil && r.D.Sign() > 0 && r.N.Cmp(r.D) == 0
}

// Inverted swaps numerator and denominator. Zero inverts to zero.
func (r Ratio) Inverted() Ratio {
	if r.IsZero() {
		return r
	}
	return Ratio{N: r.D, D: r.N}
}

// Cmp orders two ratios by cross-multiplication: r.n*other.d vs
// other.n*r.d. A zero denominator sorts greater than everything else,
// matching the reference ordering for degenerate values.
func (r Ratio) Cmp(other Ratio) int {
	if r.D.Cmp(other.D) == 0 {
		return r.N.Cmp(other.N)
	}
	if r.D.Sign() == 0 {
		return 1
	}
	if other.D.Sign() == 0 {
		return -1
	}
	left := new(big.Int).Mul(r.N, other.D)
	right := new(big.Int).Mul(other.N, r.D)
	return left.Cmp(right)
}

// Eq is structural equality: same numerator and same denominator. Use Cmp
// for value equality of unreduced ratios.
func (r Ratio) Eq(other Ratio) bool {
	return r.N.Cmp(other.N) == 0 && r.D.Cmp(other.D) == 0
}

func (r Ratio) String() string {
	return fmt.Sprintf("%s/%s", r.N, r.D)
}

// AmountOut converts amountIn of an asset priced at priceIn into the asset
// priced at priceOut:
//
//	out = amountIn * priceIn.n * priceOut.d / (priceIn.d * priceOut.n)
//
// The multiply happens before the divide in unbounded precision. Returns
// false when the divisor is zero or the truncated result does not fit the
// 128-bit balance range.
func AmountOut(amountIn types.Balance, priceIn, priceOut Ratio) (types.Balance, bool) {
	n := new(big.Int).Mul(priceIn.N, priceOut.D)
	d := new(big.Int).Mul(priceIn.D, priceOut.N)
	return mulDiv(amountIn, n, d)
}

// AmountIn is the inverse of AmountOut: the input needed to receive
// amountOut.
//
//	in = amountOut * priceOut.n * priceIn.d / (priceOut.d * priceIn.n)
func AmountIn(amountOut types.Balance, priceIn, priceOut Ratio) (types.Balance, bool) {
	n := new(big.Int).Mul(priceOut.N, priceIn.D)
	d := new(big.Int).Mul(priceOut.D, priceIn.N)
	return mulDiv(amountOut, n, d)
}

func mulDiv(amount, n, d *big.Int) (types.Balance, bool) {
	if d.Sign() == 0 {
		return nil, false
	}
	result := new(big.Int).Mul(amount, n)
	result.Quo(result, d)
	if !types.FitsBalance(result) {
		return nil, false
	}
	return result, true
}
