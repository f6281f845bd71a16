package solver

import (
	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// AMM is the liquidity venue the solver trades residual flows against.
// S is the venue's state snapshot; Sell and Buy return a new state and
// never mutate the one passed in, so the solver can thread state through
// a sequence of trades.
type AMM[S any] interface {
	// PriceDenominator is the asset all spot prices are quoted against
	// and the asset intermediate netting trades settle in.
	PriceDenominator() types.AssetID

	// SpotPrice quotes assetIn in units of assetOut, ignoring trade size.
	SpotPrice(assetIn, assetOut types.AssetID, state S) (ratio.Ratio, error)

	// Sell swaps an exact amountIn of assetIn for assetOut.
	Sell(assetIn, assetOut types.AssetID, amountIn types.Balance, state S) (S, TradeExecution, error)

	// Buy swaps assetIn for an exact amountOut of assetOut.
	Buy(assetIn, assetOut types.AssetID, amountOut types.Balance, state S) (S, TradeExecution, error)
}
