package omnipool

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/galacticcouncil/intent-solver/internal/types"
)

// feeDenominator is the resolution of Fee: parts per million.
const feeDenominator = 1_000_000

// Fee is a pool fee expressed in parts per million. The zero value is a
// zero fee.
type Fee struct {
	parts uint32
}

// FeeFromParts builds a fee from raw parts per million, clamped to 100%.
func FeeFromParts(parts uint32) Fee {
	if parts > feeDenominator {
		parts = feeDenominator
	}
	return Fee{parts: parts}
}

// FeeFromPercent builds a fee from whole percent.
func FeeFromPercent(percent uint32) Fee {
	return FeeFromParts(percent * 10_000)
}

// FeeFromPair builds a fee from an (n, d) pair as found in pool snapshot
// records, e.g. [1500, 1000000].
func FeeFromPair(n, d uint64) (Fee, error) {
	if d == 0 {
		return Fee{}, fmt.Errorf("fee denominator is zero")
	}
	if n > d {
		return Fee{}, fmt.Errorf("fee %d/%d exceeds 100%%", n, d)
	}
	return FeeFromParts(uint32(n * feeDenominator / d)), nil
}

// Parts returns the raw parts-per-million value.
func (f Fee) Parts() uint32 {
	return f.parts
}

// IsZero reports whether the fee is 0%.
func (f Fee) IsZero() bool {
	return f.parts == 0
}

// IsOne reports whether the fee is 100%.
func (f Fee) IsOne() bool {
	return f.parts == feeDenominator
}

// Complement returns 100% - f.
func (f Fee) Complement() Fee {
	return Fee{parts: feeDenominator - f.parts}
}

// MulFloor returns floor(amount * f).
func (f Fee) MulFloor(amount types.Balance) types.Balance {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(f.parts)))
	return out.Quo(out, big.NewInt(feeDenominator))
}

// Decimal returns the fee as a fraction, e.g. 0.0015 for 1500 ppm.
func (f Fee) Decimal() decimal.Decimal {
	return decimal.New(int64(f.parts), -6)
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.parts, feeDenominator)
}
