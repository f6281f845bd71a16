package solver

import (
	"log/slog"
	"math/big"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// Solver nets a batch of intents and settles the residual against an AMM.
//
// Solve is total: every input batch, including one that is empty or
// entirely unsatisfiable, yields a valid (possibly empty) Solution. AMM
// failures degrade the solution instead of aborting it.
type Solver[S any] struct {
	amm AMM[S]
	log *slog.Logger
}

func New[S any](amm AMM[S], logger *slog.Logger) *Solver[S] {
	return &Solver[S]{
		amm: amm,
		log: logger.With("component", "solver"),
	}
}

// Solve runs the v1 algorithm:
//
//  1. quote spot prices for every asset in the batch against the
//     denominator asset
//  2. drop intents whose limits cannot be met at spot
//  3. net per-asset flows and trade only the residuals through the AMM
//  4. resolve intents at the uniform prices realized by those trades
func (s *Solver[S]) Solve(intents []Intent, initialState S) Solution {
	if len(intents) == 0 {
		return emptySolution()
	}

	denominator := s.amm.PriceDenominator()
	spotPrices := s.fetchSpotPrices(intents, denominator, initialState)

	satisfiable := make([]*Intent, 0, len(intents))
	for i := range intents {
		if isSatisfiable(&intents[i], spotPrices) {
			satisfiable = append(satisfiable, &intents[i])
		}
	}
	if len(satisfiable) == 0 {
		return emptySolution()
	}

	state := initialState
	executedTrades := []PoolTrade{}
	actualPrices := make(map[types.AssetID]ratio.Ratio, len(spotPrices))
	for asset, price := range spotPrices {
		actualPrices[asset] = price
	}

	if len(satisfiable) == 1 {
		// A lone intent trades its own pair directly; routing through the
		// denominator would only add price impact.
		intent := satisfiable[0]

		var (
			newState S
			exec     TradeExecution
			err      error
		)
		switch intent.Type {
		case ExactIn:
			newState, exec, err = s.amm.Sell(intent.AssetIn, intent.AssetOut, intent.AmountIn, state)
		case ExactOut:
			newState, exec, err = s.amm.Buy(intent.AssetIn, intent.AssetOut, intent.AmountOut, state)
		}
		if err != nil {
			s.log.Warn("direct trade failed",
				"intent", intent.ID,
				"asset_in", intent.AssetIn,
				"asset_out", intent.AssetOut,
				"error", err)
			return emptySolution()
		}

		actualPrices[intent.AssetIn] = ratio.New(exec.AmountOut, exec.AmountIn)
		actualPrices[intent.AssetOut] = ratio.New(exec.AmountIn, exec.AmountOut)

		executedTrades = append(executedTrades, PoolTrade{
			Direction: intent.Type,
			AmountIn:  exec.AmountIn,
			AmountOut: exec.AmountOut,
			Route:     exec.Route,
		})
		state = newState
	} else {
		flows := calculateFlows(satisfiable, spotPrices)
		flowAssets := sortedAssets(flows)

		// First pass: sell surplus assets into the denominator. The
		// realized output, not the spot estimate, is what the second pass
		// gets to spend.
		actualDenominatorBalance := types.Zero()

		for _, asset := range flowAssets {
			net := flows[asset].net()
			if net.Sign() <= 0 || asset == denominator {
				continue
			}

			newState, exec, err := s.amm.Sell(asset, denominator, net, state)
			if err != nil {
				s.log.Warn("surplus sell failed", "asset", asset, "error", err)
				continue
			}

			actualPrices[asset] = ratio.New(exec.AmountOut, exec.AmountIn)
			actualDenominatorBalance = types.SatAdd(actualDenominatorBalance, exec.AmountOut)

			executedTrades = append(executedTrades, PoolTrade{
				Direction: ExactIn,
				AmountIn:  exec.AmountIn,
				AmountOut: exec.AmountOut,
				Route:     exec.Route,
			})
			state = newState
		}

		// Second pass: cover deficit assets. Spend the denominator we
		// actually hold; only when there is none, buy the exact deficit.
		for _, asset := range flowAssets {
			net := flows[asset].net()
			if net.Sign() >= 0 || asset == denominator {
				continue
			}

			if actualDenominatorBalance.Sign() > 0 {
				newState, exec, err := s.amm.Sell(denominator, asset, actualDenominatorBalance, state)
				if err != nil {
					s.log.Warn("deficit sell failed", "asset", asset, "error", err)
					continue
				}

				actualPrices[asset] = ratio.New(exec.AmountIn, exec.AmountOut)
				actualDenominatorBalance = types.SatSub(actualDenominatorBalance, exec.AmountIn)

				executedTrades = append(executedTrades, PoolTrade{
					Direction: ExactIn,
					AmountIn:  exec.AmountIn,
					AmountOut: exec.AmountOut,
					Route:     exec.Route,
				})
				state = newState
			} else {
				buyAmount := new(big.Int).Neg(net)

				newState, exec, err := s.amm.Buy(denominator, asset, buyAmount, state)
				if err != nil {
					s.log.Warn("deficit buy failed", "asset", asset, "error", err)
					continue
				}

				actualPrices[asset] = ratio.New(exec.AmountIn, exec.AmountOut)

				executedTrades = append(executedTrades, PoolTrade{
					Direction: ExactOut,
					AmountIn:  exec.AmountIn,
					AmountOut: exec.AmountOut,
					Route:     exec.Route,
				})
				state = newState
			}
		}
	}

	resolvedIntents := []ResolvedIntent{}
	totalScore := types.Zero()

	if len(satisfiable) == 1 && len(executedTrades) == 1 {
		intent := satisfiable[0]
		trade := executedTrades[0]

		limitsOK := false
		switch intent.Type {
		case ExactIn:
			limitsOK = trade.AmountOut.Cmp(intent.AmountOut) >= 0
		case ExactOut:
			limitsOK = trade.AmountIn.Cmp(intent.AmountIn) <= 0
		}

		if limitsOK {
			switch intent.Type {
			case ExactIn:
				totalScore = types.SatSub(trade.AmountOut, intent.AmountOut)
			case ExactOut:
				totalScore = types.SatSub(intent.AmountIn, trade.AmountIn)
			}

			resolvedIntents = append(resolvedIntents, ResolvedIntent{
				IntentID:  intent.ID,
				AssetIn:   intent.AssetIn,
				AssetOut:  intent.AssetOut,
				AmountIn:  trade.AmountIn,
				AmountOut: trade.AmountOut,
				Type:      intent.Type,
				Partial:   false,
			})
		}
	} else if len(satisfiable) > 1 {
		resolvedIntents, totalScore = s.resolveAtClearingPrices(satisfiable, executedTrades, actualPrices)
	}

	return Solution{
		ResolvedIntents: resolvedIntents,
		Trades:          executedTrades,
		ClearingPrices:  actualPrices,
		Score:           totalScore,
	}
}

func (s *Solver[S]) fetchSpotPrices(
	intents []Intent,
	denominator types.AssetID,
	state S,
) map[types.AssetID]ratio.Ratio {
	prices := make(map[types.AssetID]ratio.Ratio)
	for _, asset := range collectUniqueAssets(intents) {
		if asset == denominator {
			prices[asset] = ratio.One()
			continue
		}
		price, err := s.amm.SpotPrice(asset, denominator, state)
		if err != nil {
			s.log.Warn("failed to get spot price, skipping asset", "asset", asset, "error", err)
			continue
		}
		prices[asset] = price
	}
	return prices
}

// resolveAtClearingPrices distributes the executed trades back to the
// intents at the realized prices. ExactOut intents commit first since
// their output is fixed; ExactIn intents then share what remains,
// scaled down proportionally when demand exceeds availability.
func (s *Solver[S]) resolveAtClearingPrices(
	satisfiable []*Intent,
	executedTrades []PoolTrade,
	actualPrices map[types.AssetID]ratio.Ratio,
) ([]ResolvedIntent, types.Balance) {
	resolved := []ResolvedIntent{}
	totalScore := types.Zero()

	// What each asset has available: intent inputs, minus what the trades
	// consumed, plus what they produced.
	available := make(map[types.AssetID]*big.Int)
	availableOf := func(asset types.AssetID) *big.Int {
		bal, ok := available[asset]
		if !ok {
			bal = new(big.Int)
			available[asset] = bal
		}
		return bal
	}

	for _, intent := range satisfiable {
		amountIn := intent.AmountIn
		if intent.Type == ExactOut {
			priceIn, okIn := actualPrices[intent.AssetIn]
			priceOut, okOut := actualPrices[intent.AssetOut]
			if okIn && okOut {
				if in, ok := ratio.AmountIn(intent.AmountOut, priceIn, priceOut); ok {
					amountIn = in
				}
			}
		}
		bal := availableOf(intent.AssetIn)
		bal.Add(bal, amountIn)
	}

	for _, trade := range executedTrades {
		if len(trade.Route) == 0 {
			continue
		}
		assetIn := trade.Route[0].AssetIn
		assetOut := trade.Route[len(trade.Route)-1].AssetOut

		if bal, ok := available[assetIn]; ok {
			bal.Set(types.SatSub(bal, trade.AmountIn))
		}
		bal := availableOf(assetOut)
		bal.Add(bal, trade.AmountOut)
	}

	type indexedResolution struct {
		idx      int
		resolved ResolvedIntent
	}
	idealResolutions := []indexedResolution{}
	for idx, intent := range satisfiable {
		if r, ok := resolveIntent(intent, actualPrices); ok {
			idealResolutions = append(idealResolutions, indexedResolution{idx: idx, resolved: r})
		}
	}

	committedOutput := make(map[types.AssetID]*big.Int)
	committedOf := func(asset types.AssetID) *big.Int {
		bal, ok := committedOutput[asset]
		if !ok {
			bal = new(big.Int)
			committedOutput[asset] = bal
		}
		return bal
	}

	for _, ir := range idealResolutions {
		intent := satisfiable[ir.idx]
		if intent.Type != ExactOut {
			continue
		}

		amountOut := intent.AmountOut
		avail := availableOf(intent.AssetOut)
		committed := committedOf(intent.AssetOut)

		if new(big.Int).Add(committed, amountOut).Cmp(avail) > 0 {
			continue
		}

		priceIn, okIn := actualPrices[intent.AssetIn]
		priceOut, okOut := actualPrices[intent.AssetOut]
		if !okIn || !okOut {
			continue
		}
		actualIn, ok := ratio.AmountIn(amountOut, priceIn, priceOut)
		if !ok {
			continue
		}
		if actualIn.Cmp(intent.AmountIn) > 0 {
			continue
		}

		committed.Add(committed, amountOut)
		totalScore = types.SatAdd(totalScore, types.SatSub(intent.AmountIn, actualIn))

		resolved = append(resolved, ResolvedIntent{
			IntentID:  intent.ID,
			AssetIn:   intent.AssetIn,
			AssetOut:  intent.AssetOut,
			AmountIn:  actualIn,
			AmountOut: types.CopyBalance(amountOut),
			Type:      ExactOut,
			Partial:   false,
		})
	}

	remainingAvail := make(map[types.AssetID]*big.Int, len(available))
	for asset, avail := range available {
		remainingAvail[asset] = types.SatSub(avail, committedOf(asset))
	}

	exactInDemand := make(map[types.AssetID]*big.Int)
	for _, ir := range idealResolutions {
		if satisfiable[ir.idx].Type != ExactIn {
			continue
		}
		asset := ir.resolved.AssetOut
		demand, ok := exactInDemand[asset]
		if !ok {
			demand = new(big.Int)
			exactInDemand[asset] = demand
		}
		demand.Add(demand, ir.resolved.AmountOut)
	}

	for _, ir := range idealResolutions {
		intent := satisfiable[ir.idx]
		if intent.Type != ExactIn {
			continue
		}

		idealOut := ir.resolved.AmountOut
		remaining, ok := remainingAvail[ir.resolved.AssetOut]
		if !ok {
			remaining = new(big.Int)
		}
		totalDemand := exactInDemand[ir.resolved.AssetOut]

		actualOut := idealOut
		if totalDemand != nil && totalDemand.Sign() > 0 && totalDemand.Cmp(remaining) > 0 {
			actualOut = new(big.Int).Mul(idealOut, remaining)
			actualOut.Quo(actualOut, totalDemand)
		}

		if actualOut.Cmp(intent.AmountOut) < 0 {
			continue
		}

		totalScore = types.SatAdd(totalScore, types.SatSub(actualOut, intent.AmountOut))

		resolved = append(resolved, ResolvedIntent{
			IntentID:  intent.ID,
			AssetIn:   intent.AssetIn,
			AssetOut:  intent.AssetOut,
			AmountIn:  types.CopyBalance(intent.AmountIn),
			AmountOut: actualOut,
			Type:      ExactIn,
			Partial:   false,
		})
	}

	return resolved, totalScore
}

// collectUniqueAssets lists every asset referenced by the batch, in
// first-seen order.
func collectUniqueAssets(intents []Intent) []types.AssetID {
	seen := make(map[types.AssetID]bool)
	assets := []types.AssetID{}
	for _, intent := range intents {
		if !seen[intent.AssetIn] {
			seen[intent.AssetIn] = true
			assets = append(assets, intent.AssetIn)
		}
		if !seen[intent.AssetOut] {
			seen[intent.AssetOut] = true
			assets = append(assets, intent.AssetOut)
		}
	}
	return assets
}

// isSatisfiable reports whether the intent's limit can be met at spot.
// Intents touching an asset without a price are unsatisfiable.
func isSatisfiable(intent *Intent, spotPrices map[types.AssetID]ratio.Ratio) bool {
	priceIn, okIn := spotPrices[intent.AssetIn]
	priceOut, okOut := spotPrices[intent.AssetOut]
	if !okIn || !okOut {
		return false
	}

	switch intent.Type {
	case ExactIn:
		out, ok := ratio.AmountOut(intent.AmountIn, priceIn, priceOut)
		return ok && out.Cmp(intent.AmountOut) >= 0
	case ExactOut:
		in, ok := ratio.AmountIn(intent.AmountOut, priceIn, priceOut)
		return ok && in.Cmp(intent.AmountIn) <= 0
	default:
		return false
	}
}

// resolveIntent computes an intent's ideal settlement at the given
// prices, or reports false when the limit cannot be met.
func resolveIntent(intent *Intent, prices map[types.AssetID]ratio.Ratio) (ResolvedIntent, bool) {
	priceIn, okIn := prices[intent.AssetIn]
	priceOut, okOut := prices[intent.AssetOut]
	if !okIn || !okOut {
		return ResolvedIntent{}, false
	}

	switch intent.Type {
	case ExactIn:
		amountOut, ok := ratio.AmountOut(intent.AmountIn, priceIn, priceOut)
		if !ok || amountOut.Cmp(intent.AmountOut) < 0 {
			return ResolvedIntent{}, false
		}
		return ResolvedIntent{
			IntentID:  intent.ID,
			AssetIn:   intent.AssetIn,
			AssetOut:  intent.AssetOut,
			AmountIn:  types.CopyBalance(intent.AmountIn),
			AmountOut: amountOut,
			Type:      ExactIn,
			Partial:   false,
		}, true
	case ExactOut:
		amountIn, ok := ratio.AmountIn(intent.AmountOut, priceIn, priceOut)
		if !ok || amountIn.Cmp(intent.AmountIn) > 0 {
			return ResolvedIntent{}, false
		}
		return ResolvedIntent{
			IntentID:  intent.ID,
			AssetIn:   intent.AssetIn,
			AssetOut:  intent.AssetOut,
			AmountIn:  amountIn,
			AmountOut: types.CopyBalance(intent.AmountOut),
			Type:      ExactOut,
			Partial:   false,
		}, true
	default:
		return ResolvedIntent{}, false
	}
}
