package types

import (
	"fmt"
	"math/big"
)

// AssetID identifies a fungible asset. It carries no semantics beyond
// equality; ordering is only used to make map iteration deterministic.
type AssetID uint32

// IntentID correlates an input intent with its resolution in a solution.
// Unique within a single solve call.
type IntentID uint64

// Balance is the chain's native amount unit: an unsigned integer capped at
// 128 bits. Represented as *big.Int so intermediate arithmetic can widen
// freely; FitsBalance guards every narrowing back to the 128-bit range.
type Balance = *big.Int

var maxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// MaxBalance returns the largest representable balance (2^128 - 1).
func MaxBalance() Balance {
	return new(big.Int).Set(maxBalance)
}

// NewBalance returns a fresh balance holding v.
func NewBalance(v uint64) Balance {
	return new(big.Int).SetUint64(v)
}

// Zero returns a fresh zero balance.
func Zero() Balance {
	return new(big.Int)
}

// CopyBalance returns an independent copy of v. A nil v copies to zero.
func CopyBalance(v Balance) Balance {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// FitsBalance reports whether v is a valid balance: non-negative and at
// most 128 bits wide.
func FitsBalance(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.BitLen() <= 128
}

// ParseBalance parses a base-10 amount string into a balance.
func ParseBalance(s string) (Balance, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid balance %q", s)
	}
	if !FitsBalance(v) {
		return nil, fmt.Errorf("balance %q out of range", s)
	}
	return v, nil
}

// SatAdd returns a+b saturated at the 128-bit balance ceiling.
func SatAdd(a, b Balance) Balance {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxBalance) > 0 {
		return MaxBalance()
	}
	return sum
}

// SatSub returns a-b floored at zero.
func SatSub(a, b Balance) Balance {
	if a.Cmp(b) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(a, b)
}
