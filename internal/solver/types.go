// Package solver implements the v1 intent solver: it nets a batch of
// swap intents against each other and executes only the residual flows
// through an AMM, distributing the results at uniform clearing prices.
package solver

import (
	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// SwapType tells which side of a swap is fixed.
type SwapType uint8

const (
	// ExactIn fixes the input amount; AmountOut is the minimum acceptable output.
	ExactIn SwapType = iota
	// ExactOut fixes the output amount; AmountIn is the maximum acceptable input.
	ExactOut
)

func (t SwapType) String() string {
	switch t {
	case ExactIn:
		return "exact_in"
	case ExactOut:
		return "exact_out"
	default:
		return "unknown"
	}
}

// Intent is a user's declared swap. The pair (AmountIn, AmountOut) is
// read according to Type: for ExactIn, AmountIn is exact and AmountOut
// is the limit; for ExactOut it is the other way around.
type Intent struct {
	ID        types.IntentID
	AssetIn   types.AssetID
	AssetOut  types.AssetID
	AmountIn  types.Balance
	AmountOut types.Balance
	Type      SwapType
	Deadline  uint64
	Partial   bool
}

// ResolvedIntent is an intent the solver committed to, with the amounts
// it will actually settle at. Resolutions are all-or-nothing, so Partial
// is always false.
type ResolvedIntent struct {
	IntentID  types.IntentID
	AssetIn   types.AssetID
	AssetOut  types.AssetID
	AmountIn  types.Balance
	AmountOut types.Balance
	Type      SwapType
	Partial   bool
}

// Hop is one pool traversal within a trade route.
type Hop struct {
	AssetIn  types.AssetID
	AssetOut types.AssetID
}

// TradeExecution reports the realized amounts and route of a single AMM
// trade.
type TradeExecution struct {
	AmountIn  types.Balance
	AmountOut types.Balance
	Route     []Hop
}

// PoolTrade is an executed AMM trade recorded in a solution.
type PoolTrade struct {
	Direction SwapType
	AmountIn  types.Balance
	AmountOut types.Balance
	Route     []Hop
}

// Solution is the solver's output for one batch: the intents it resolved,
// the net AMM trades backing them, the uniform clearing prices (each
// asset priced against the denominator asset), and a comparable score.
//
// Score is the sum of intent surpluses in each intent's own limit-asset
// units, saturated at the balance maximum. It orders competing solutions
// for the same batch and has no meaning across batches.
type Solution struct {
	ResolvedIntents []ResolvedIntent
	Trades          []PoolTrade
	ClearingPrices  map[types.AssetID]ratio.Ratio
	Score           types.Balance
}

func emptySolution() Solution {
	return Solution{
		ResolvedIntents: []ResolvedIntent{},
		Trades:          []PoolTrade{},
		ClearingPrices:  map[types.AssetID]ratio.Ratio{},
		Score:           types.Zero(),
	}
}
