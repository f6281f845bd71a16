package solver

import (
	"fmt"
	"math/big"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// MockState is the trivial venue state threaded through MockAMM trades.
type MockState struct {
	// TradeCount increments on every executed trade.
	TradeCount int
}

// MockAMM is a frictionless single-hop venue quoting fixed prices.
// For testing only; trades execute exactly at the configured spot prices
// with no price impact.
type MockAMM struct {
	// Denominator is the asset prices are quoted against.
	Denominator types.AssetID

	// Prices maps each asset to its price in denominator units. The
	// denominator itself needs no entry.
	Prices map[types.AssetID]ratio.Ratio

	// FailPairs marks (assetIn, assetOut) pairs whose trades fail.
	FailPairs map[[2]types.AssetID]bool

	// SlippagePpm worsens every execution by this many parts per
	// million relative to spot: sells pay out less, buys charge more.
	// Zero keeps trades exactly at spot.
	SlippagePpm uint32
}

// NewMockAMM creates a mock venue with no prices configured.
func NewMockAMM(denominator types.AssetID) *MockAMM {
	return &MockAMM{
		Denominator: denominator,
		Prices:      make(map[types.AssetID]ratio.Ratio),
		FailPairs:   make(map[[2]types.AssetID]bool),
	}
}

// SetPrice sets the price of asset in denominator units.
func (m *MockAMM) SetPrice(asset types.AssetID, n, d uint64) {
	m.Prices[asset] = ratio.FromUint64(n, d)
}

// FailPair makes every trade between assetIn and assetOut fail.
func (m *MockAMM) FailPair(assetIn, assetOut types.AssetID) {
	m.FailPairs[[2]types.AssetID{assetIn, assetOut}] = true
}

// SetSlippage makes every execution worse than spot by ppm parts per
// million.
func (m *MockAMM) SetSlippage(ppm uint32) {
	m.SlippagePpm = ppm
}

func (m *MockAMM) worsenOut(amountOut types.Balance) types.Balance {
	if m.SlippagePpm == 0 {
		return amountOut
	}
	cut := new(big.Int).Mul(amountOut, big.NewInt(int64(m.SlippagePpm)))
	cut.Quo(cut, big.NewInt(1_000_000))
	return types.SatSub(amountOut, cut)
}

func (m *MockAMM) worsenIn(amountIn types.Balance) types.Balance {
	if m.SlippagePpm == 0 {
		return amountIn
	}
	extra := new(big.Int).Mul(amountIn, big.NewInt(int64(m.SlippagePpm)))
	extra.Quo(extra, big.NewInt(1_000_000))
	return types.SatAdd(amountIn, extra)
}

func (m *MockAMM) PriceDenominator() types.AssetID {
	return m.Denominator
}

func (m *MockAMM) priceOf(asset types.AssetID) (ratio.Ratio, error) {
	if asset == m.Denominator {
		return ratio.One(), nil
	}
	price, ok := m.Prices[asset]
	if !ok {
		return ratio.Ratio{}, fmt.Errorf("no price for asset %d", asset)
	}
	return price, nil
}

func (m *MockAMM) SpotPrice(assetIn, assetOut types.AssetID, _ MockState) (ratio.Ratio, error) {
	priceIn, err := m.priceOf(assetIn)
	if err != nil {
		return ratio.Ratio{}, err
	}
	priceOut, err := m.priceOf(assetOut)
	if err != nil {
		return ratio.Ratio{}, err
	}
	if assetOut == m.Denominator {
		return priceIn, nil
	}
	out, ok := ratio.AmountOut(types.NewBalance(1_000_000_000_000), priceIn, priceOut)
	if !ok {
		return ratio.Ratio{}, fmt.Errorf("price %d/%d not representable", assetIn, assetOut)
	}
	return ratio.New(out, types.NewBalance(1_000_000_000_000)), nil
}

func (m *MockAMM) Sell(assetIn, assetOut types.AssetID, amountIn types.Balance, state MockState) (MockState, TradeExecution, error) {
	if m.FailPairs[[2]types.AssetID{assetIn, assetOut}] {
		return state, TradeExecution{}, fmt.Errorf("trade %d -> %d unavailable", assetIn, assetOut)
	}
	priceIn, err := m.priceOf(assetIn)
	if err != nil {
		return state, TradeExecution{}, err
	}
	priceOut, err := m.priceOf(assetOut)
	if err != nil {
		return state, TradeExecution{}, err
	}
	amountOut, ok := ratio.AmountOut(amountIn, priceIn, priceOut)
	if !ok {
		return state, TradeExecution{}, fmt.Errorf("sell %d -> %d overflows", assetIn, assetOut)
	}
	state.TradeCount++
	return state, TradeExecution{
		AmountIn:  types.CopyBalance(amountIn),
		AmountOut: m.worsenOut(amountOut),
		Route:     []Hop{{AssetIn: assetIn, AssetOut: assetOut}},
	}, nil
}

func (m *MockAMM) Buy(assetIn, assetOut types.AssetID, amountOut types.Balance, state MockState) (MockState, TradeExecution, error) {
	if m.FailPairs[[2]types.AssetID{assetIn, assetOut}] {
		return state, TradeExecution{}, fmt.Errorf("trade %d -> %d unavailable", assetIn, assetOut)
	}
	priceIn, err := m.priceOf(assetIn)
	if err != nil {
		return state, TradeExecution{}, err
	}
	priceOut, err := m.priceOf(assetOut)
	if err != nil {
		return state, TradeExecution{}, err
	}
	amountIn, ok := ratio.AmountIn(amountOut, priceIn, priceOut)
	if !ok {
		return state, TradeExecution{}, fmt.Errorf("buy %d -> %d overflows", assetIn, assetOut)
	}
	state.TradeCount++
	return state, TradeExecution{
		AmountIn:  m.worsenIn(amountIn),
		AmountOut: types.CopyBalance(amountOut),
		Route:     []Hop{{AssetIn: assetIn, AssetOut: assetOut}},
	}, nil
}
