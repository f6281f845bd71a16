// Package omnipool implements the constant-function pricing math of the
// omnipool liquidity venue and an in-memory pool state that exposes it
// through the solver's AMM interface. Every formula multiplies before it
// divides using 256-bit checked intermediates, and every function returns
// an error instead of panicking on overflow or division by zero.
package omnipool

import (
	"errors"
	"math/big"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

var (
	// ErrOverflow is returned when an intermediate or final value falls
	// outside the representable range.
	ErrOverflow = errors.New("omnipool: arithmetic overflow")
	// ErrDivisionByZero is returned when a formula would divide by zero.
	ErrDivisionByZero = errors.New("omnipool: division by zero")
	// ErrInsufficientReserve is returned when a trade would drain a
	// reserve past what the pool holds.
	ErrInsufficientReserve = errors.New("omnipool: insufficient reserve")
	// ErrAssetNotFound is returned by pool operations on unknown assets.
	ErrAssetNotFound = errors.New("omnipool: asset not in pool")
)

// AssetReserveState is the reserve state of a single pool asset.
type AssetReserveState struct {
	// Reserve is the quantity of the asset held by the pool.
	Reserve types.Balance
	// HubReserve is the quantity of hub asset matched against this asset.
	HubReserve types.Balance
	// Shares is the quantity of LP shares issued for this asset.
	Shares types.Balance
	// ProtocolShares is the protocol-owned portion of Shares.
	ProtocolShares types.Balance
}

// Price returns the asset's hub-denominated price hubReserve/reserve.
func (s *AssetReserveState) Price() (ratio.Ratio, bool) {
	if s.Reserve == nil || s.Reserve.Sign() == 0 {
		return ratio.Ratio{}, false
	}
	return ratio.New(s.HubReserve, s.Reserve), true
}

// Clone returns a deep copy of the state.
func (s *AssetReserveState) Clone() *AssetReserveState {
	return &AssetReserveState{
		Reserve:        types.CopyBalance(s.Reserve),
		HubReserve:     types.CopyBalance(s.HubReserve),
		Shares:         types.CopyBalance(s.Shares),
		ProtocolShares: types.CopyBalance(s.ProtocolShares),
	}
}

// ApplyChange returns the state after applying delta. Each component is
// checked individually; a decrease below zero or an increase past the
// balance ceiling fails the whole update.
func (s *AssetReserveState) ApplyChange(delta *AssetStateChange) (*AssetReserveState, error) {
	reserve, err := delta.DeltaReserve.apply(s.Reserve)
	if err != nil {
		return nil, err
	}
	hubReserve, err := delta.TotalDeltaHubReserve().apply(s.HubReserve)
	if err != nil {
		return nil, err
	}
	shares, err := delta.DeltaShares.apply(s.Shares)
	if err != nil {
		return nil, err
	}
	protocolShares, err := delta.DeltaProtocolShares.apply(s.ProtocolShares)
	if err != nil {
		return nil, err
	}
	return &AssetReserveState{
		Reserve:        reserve,
		HubReserve:     hubReserve,
		Shares:         shares,
		ProtocolShares: protocolShares,
	}, nil
}

// BalanceUpdate is a signed delta to apply to a balance. The zero value is
// a no-op increase of zero.
type BalanceUpdate struct {
	Amount   types.Balance
	Decrease bool
}

// Increase builds a positive update.
func Increase(amount types.Balance) BalanceUpdate {
	return BalanceUpdate{Amount: amount}
}

// Decrease builds a negative update.
func Decrease(amount types.Balance) BalanceUpdate {
	return BalanceUpdate{Amount: amount, Decrease: true}
}

func (u BalanceUpdate) amount() types.Balance {
	if u.Amount == nil {
		return types.Zero()
	}
	return u.Amount
}

func (u BalanceUpdate) apply(to types.Balance) (types.Balance, error) {
	base := types.CopyBalance(to)
	if u.Decrease {
		if base.Cmp(u.amount()) < 0 {
			return nil, ErrInsufficientReserve
		}
		return base.Sub(base, u.amount()), nil
	}
	out := base.Add(base, u.amount())
	if !types.FitsBalance(out) {
		return nil, ErrOverflow
	}
	return out, nil
}

// Merge combines two updates of the same balance. Opposing directions
// cancel; the result carries the sign of the larger side.
func (u BalanceUpdate) Merge(other BalanceUpdate) BalanceUpdate {
	if u.Decrease == other.Decrease {
		return BalanceUpdate{Amount: new(big.Int).Add(u.amount(), other.amount()), Decrease: u.Decrease}
	}
	if u.amount().Cmp(other.amount()) >= 0 {
		return BalanceUpdate{Amount: new(big.Int).Sub(u.amount(), other.amount()), Decrease: u.Decrease}
	}
	return BalanceUpdate{Amount: new(big.Int).Sub(other.amount(), u.amount()), Decrease: other.Decrease}
}

// AssetStateChange holds the deltas a trade or liquidity event applies to
// one asset's reserve state.
type AssetStateChange struct {
	DeltaReserve        BalanceUpdate
	DeltaHubReserve     BalanceUpdate
	DeltaShares         BalanceUpdate
	DeltaProtocolShares BalanceUpdate
	// ExtraHubReserve is hub asset minted to cover the part of the asset
	// fee that stays in the pool. Always an increase.
	ExtraHubReserve types.Balance
}

// TotalDeltaHubReserve merges the trade hub delta with the minted extra.
func (c *AssetStateChange) TotalDeltaHubReserve() BalanceUpdate {
	extra := c.ExtraHubReserve
	if extra == nil {
		extra = types.Zero()
	}
	return c.DeltaHubReserve.Merge(Increase(extra))
}

// TradeFee breaks a trade's fees down by destination.
type TradeFee struct {
	AssetFee          types.Balance
	ProtocolFee       types.Balance
	BurnedProtocolFee types.Balance
}

func zeroTradeFee() TradeFee {
	return TradeFee{AssetFee: types.Zero(), ProtocolFee: types.Zero(), BurnedProtocolFee: types.Zero()}
}

// TradeStateChange is the full delta set of a two-asset trade.
type TradeStateChange struct {
	AssetIn  AssetStateChange
	AssetOut AssetStateChange
	Fee      TradeFee
}

// HubTradeStateChange is the delta set of a trade with the hub asset on
// one side; only one pool asset's state changes.
type HubTradeStateChange struct {
	Asset AssetStateChange
	Fee   TradeFee
}

// Position is an LP position against which liquidity is removed.
type Position struct {
	// Amount is the quantity of the asset originally provided.
	Amount types.Balance
	// Shares is the quantity of LP shares owned by the position.
	Shares types.Balance
	// Price is the asset's hub price at the time the position was opened.
	Price ratio.Ratio
}

// LiquidityStateChange is the delta set of an add- or remove-liquidity
// event.
type LiquidityStateChange struct {
	Asset AssetStateChange
	// LPHubAmount is hub asset paid out to the LP on withdrawal above the
	// position price.
	LPHubAmount types.Balance
	// DeltaPositionReserve and DeltaPositionShares update the position.
	DeltaPositionReserve BalanceUpdate
	DeltaPositionShares  BalanceUpdate
}
