package omnipool

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/solver"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// PoolAsset is one asset listed in the pool together with its fee
// configuration.
type PoolAsset struct {
	State *AssetReserveState
	// AssetFee is charged on the output side of trades into this asset.
	AssetFee Fee
	// HubFee is the protocol fee taken from the hub leg when this asset
	// is sold.
	HubFee Fee
	// Decimals is the asset's display precision; it plays no role in
	// pricing.
	Decimals uint8
}

func (a *PoolAsset) clone() *PoolAsset {
	return &PoolAsset{
		State:    a.State.Clone(),
		AssetFee: a.AssetFee,
		HubFee:   a.HubFee,
		Decimals: a.Decimals,
	}
}

// Pool is an immutable-by-convention snapshot of omnipool state. Trade
// application clones the pool, so a Pool handed to the solver is never
// mutated.
type Pool struct {
	hubAssetID types.AssetID
	assets     map[types.AssetID]*PoolAsset
}

// NewPool creates an empty pool whose hub asset has the given ID.
func NewPool(hubAssetID types.AssetID) *Pool {
	return &Pool{
		hubAssetID: hubAssetID,
		assets:     make(map[types.AssetID]*PoolAsset),
	}
}

// HubAssetID returns the ID of the hub asset.
func (p *Pool) HubAssetID() types.AssetID {
	return p.hubAssetID
}

// AddAsset lists an asset. Relisting an existing ID or listing the hub
// asset itself is an error.
func (p *Pool) AddAsset(id types.AssetID, asset *PoolAsset) error {
	if id == p.hubAssetID {
		return fmt.Errorf("asset %d is the hub asset", id)
	}
	if _, exists := p.assets[id]; exists {
		return fmt.Errorf("asset %d already listed", id)
	}
	if asset.State == nil {
		return fmt.Errorf("asset %d has no reserve state", id)
	}
	p.assets[id] = asset
	return nil
}

// Asset returns the listed asset or false.
func (p *Pool) Asset(id types.AssetID) (*PoolAsset, bool) {
	a, ok := p.assets[id]
	return a, ok
}

// AssetIDs returns the listed asset IDs in ascending order.
func (p *Pool) AssetIDs() []types.AssetID {
	ids := make([]types.AssetID, 0, len(p.assets))
	for id := range p.assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone deep-copies the pool.
func (p *Pool) Clone() *Pool {
	assets := make(map[types.AssetID]*PoolAsset, len(p.assets))
	for id, a := range p.assets {
		assets[id] = a.clone()
	}
	return &Pool{hubAssetID: p.hubAssetID, assets: assets}
}

// TotalHubReserve sums the hub reserves across all listed assets.
func (p *Pool) TotalHubReserve() types.Balance {
	total := types.Zero()
	for _, a := range p.assets {
		total.Add(total, a.State.HubReserve)
	}
	return total
}

// TVL values the whole pool in units of the given stable asset.
func (p *Pool) TVL(stableAsset types.AssetID) (types.Balance, error) {
	stable, ok := p.assets[stableAsset]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return CalculateTVL(p.TotalHubReserve(), stable.State.Reserve, stable.State.HubReserve)
}

func (p *Pool) applyAssetChange(id types.AssetID, change *AssetStateChange) (*Pool, error) {
	next := p.Clone()
	asset := next.assets[id]
	state, err := asset.State.ApplyChange(change)
	if err != nil {
		return nil, err
	}
	asset.State = state
	return next, nil
}

func (p *Pool) applyTradeChange(assetIn, assetOut types.AssetID, change *TradeStateChange) (*Pool, error) {
	next := p.Clone()
	in := next.assets[assetIn]
	out := next.assets[assetOut]
	inState, err := in.State.ApplyChange(&change.AssetIn)
	if err != nil {
		return nil, err
	}
	outState, err := out.State.ApplyChange(&change.AssetOut)
	if err != nil {
		return nil, err
	}
	in.State = inState
	out.State = outState
	return next, nil
}

// Venue exposes a Pool through the solver's AMM interface. The price
// denominator is a regular pool asset chosen by configuration, not the
// hub asset; burnFee applies to the protocol fee of every trade.
type Venue struct {
	denominator types.AssetID
	burnFee     Fee
}

// NewVenue creates a venue quoting prices against denominator.
func NewVenue(denominator types.AssetID, burnFee Fee) *Venue {
	return &Venue{denominator: denominator, burnFee: burnFee}
}

var _ solver.AMM[*Pool] = (*Venue)(nil)

func (v *Venue) PriceDenominator() types.AssetID {
	return v.denominator
}

// SpotPrice quotes assetIn in assetOut units as the exact rational
//
//	(hubIn/reserveIn) / (hubOut/reserveOut)
//
// with the hub asset priced at hub/1 on either side.
func (v *Venue) SpotPrice(assetIn, assetOut types.AssetID, pool *Pool) (ratio.Ratio, error) {
	hubIn, reserveIn, err := v.hubPricePair(assetIn, pool)
	if err != nil {
		return ratio.Ratio{}, err
	}
	hubOut, reserveOut, err := v.hubPricePair(assetOut, pool)
	if err != nil {
		return ratio.Ratio{}, err
	}
	n := new(big.Int).Mul(hubIn, reserveOut)
	d := new(big.Int).Mul(reserveIn, hubOut)
	if d.Sign() == 0 {
		return ratio.Ratio{}, ErrDivisionByZero
	}
	return ratio.New(n, d), nil
}

func (v *Venue) hubPricePair(asset types.AssetID, pool *Pool) (hub, reserve types.Balance, err error) {
	if asset == pool.hubAssetID {
		return types.NewBalance(1), types.NewBalance(1), nil
	}
	a, ok := pool.assets[asset]
	if !ok {
		return nil, nil, ErrAssetNotFound
	}
	if a.State.Reserve.Sign() == 0 {
		return nil, nil, ErrDivisionByZero
	}
	return a.State.HubReserve, a.State.Reserve, nil
}

// Sell swaps an exact amountIn of assetIn for assetOut and returns the
// post-trade pool.
func (v *Venue) Sell(assetIn, assetOut types.AssetID, amountIn types.Balance, pool *Pool) (*Pool, solver.TradeExecution, error) {
	if assetOut == pool.hubAssetID {
		return pool, solver.TradeExecution{}, fmt.Errorf("hub asset %d cannot be bought from the pool", assetOut)
	}
	out, ok := pool.assets[assetOut]
	if !ok {
		return pool, solver.TradeExecution{}, ErrAssetNotFound
	}

	if assetIn == pool.hubAssetID {
		change, err := CalculateSellHubStateChanges(out.State, amountIn, out.AssetFee)
		if err != nil {
			return pool, solver.TradeExecution{}, err
		}
		next, err := pool.applyAssetChange(assetOut, &change.Asset)
		if err != nil {
			return pool, solver.TradeExecution{}, err
		}
		return next, solver.TradeExecution{
			AmountIn:  types.CopyBalance(amountIn),
			AmountOut: types.CopyBalance(change.Asset.DeltaReserve.Amount),
			Route:     []solver.Hop{{AssetIn: assetIn, AssetOut: assetOut}},
		}, nil
	}

	in, ok := pool.assets[assetIn]
	if !ok {
		return pool, solver.TradeExecution{}, ErrAssetNotFound
	}

	change, err := CalculateSellStateChanges(in.State, out.State, amountIn, out.AssetFee, in.HubFee, v.burnFee)
	if err != nil {
		return pool, solver.TradeExecution{}, err
	}
	next, err := pool.applyTradeChange(assetIn, assetOut, change)
	if err != nil {
		return pool, solver.TradeExecution{}, err
	}
	return next, solver.TradeExecution{
		AmountIn:  types.CopyBalance(amountIn),
		AmountOut: types.CopyBalance(change.AssetOut.DeltaReserve.Amount),
		Route:     []solver.Hop{{AssetIn: assetIn, AssetOut: assetOut}},
	}, nil
}

// Buy swaps assetIn for an exact amountOut of assetOut and returns the
// post-trade pool.
func (v *Venue) Buy(assetIn, assetOut types.AssetID, amountOut types.Balance, pool *Pool) (*Pool, solver.TradeExecution, error) {
	if assetOut == pool.hubAssetID {
		return pool, solver.TradeExecution{}, fmt.Errorf("hub asset %d cannot be bought from the pool", assetOut)
	}
	out, ok := pool.assets[assetOut]
	if !ok {
		return pool, solver.TradeExecution{}, ErrAssetNotFound
	}

	if assetIn == pool.hubAssetID {
		change, err := CalculateBuyForHubAssetStateChanges(out.State, amountOut, out.AssetFee)
		if err != nil {
			return pool, solver.TradeExecution{}, err
		}
		next, err := pool.applyAssetChange(assetOut, &change.Asset)
		if err != nil {
			return pool, solver.TradeExecution{}, err
		}
		return next, solver.TradeExecution{
			AmountIn:  types.CopyBalance(change.Asset.DeltaHubReserve.Amount),
			AmountOut: types.CopyBalance(amountOut),
			Route:     []solver.Hop{{AssetIn: assetIn, AssetOut: assetOut}},
		}, nil
	}

	in, ok := pool.assets[assetIn]
	if !ok {
		return pool, solver.TradeExecution{}, ErrAssetNotFound
	}

	change, err := CalculateBuyStateChanges(in.State, out.State, amountOut, out.AssetFee, in.HubFee, v.burnFee)
	if err != nil {
		return pool, solver.TradeExecution{}, err
	}
	next, err := pool.applyTradeChange(assetIn, assetOut, change)
	if err != nil {
		return pool, solver.TradeExecution{}, err
	}
	return next, solver.TradeExecution{
		AmountIn:  types.CopyBalance(change.AssetIn.DeltaReserve.Amount),
		AmountOut: types.CopyBalance(amountOut),
		Route:     []solver.Hop{{AssetIn: assetIn, AssetOut: assetOut}},
	}, nil
}
