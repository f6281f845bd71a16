package solver

import (
	"math/big"
	"sort"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// assetFlow accumulates the gross amounts of one asset entering and
// leaving the batch, both valued at spot.
type assetFlow struct {
	totalIn  *big.Int
	totalOut *big.Int
}

// net is totalIn - totalOut; positive means the batch has a surplus of
// the asset.
func (f *assetFlow) net() *big.Int {
	return new(big.Int).Sub(f.totalIn, f.totalOut)
}

func newAssetFlow() *assetFlow {
	return &assetFlow{totalIn: new(big.Int), totalOut: new(big.Int)}
}

// calculateFlows sums per-asset in/out flows across the batch. ExactIn
// intents contribute their exact input and a spot-valued output; ExactOut
// intents the reverse. Intents whose prices are missing contribute
// nothing.
func calculateFlows(intents []*Intent, spotPrices map[types.AssetID]ratio.Ratio) map[types.AssetID]*assetFlow {
	flows := make(map[types.AssetID]*assetFlow)

	flow := func(asset types.AssetID) *assetFlow {
		f, ok := flows[asset]
		if !ok {
			f = newAssetFlow()
			flows[asset] = f
		}
		return f
	}

	for _, intent := range intents {
		priceIn, okIn := spotPrices[intent.AssetIn]
		priceOut, okOut := spotPrices[intent.AssetOut]
		if !okIn || !okOut {
			continue
		}

		switch intent.Type {
		case ExactIn:
			flow(intent.AssetIn).totalIn.Add(flow(intent.AssetIn).totalIn, intent.AmountIn)
			if amountOut, ok := ratio.AmountOut(intent.AmountIn, priceIn, priceOut); ok {
				flow(intent.AssetOut).totalOut.Add(flow(intent.AssetOut).totalOut, amountOut)
			}
		case ExactOut:
			flow(intent.AssetOut).totalOut.Add(flow(intent.AssetOut).totalOut, intent.AmountOut)
			if amountIn, ok := ratio.AmountIn(intent.AmountOut, priceIn, priceOut); ok {
				flow(intent.AssetIn).totalIn.Add(flow(intent.AssetIn).totalIn, amountIn)
			}
		}
	}

	return flows
}

// sortedAssets returns map keys in ascending order so trade execution is
// deterministic for a given batch.
func sortedAssets[V any](m map[types.AssetID]V) []types.AssetID {
	assets := make([]types.AssetID, 0, len(m))
	for asset := range m {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}
