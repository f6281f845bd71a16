package omnipool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/solver"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

const (
	hubID    = types.AssetID(1)
	assetTwo = types.AssetID(2)
	assetTri = types.AssetID(3)
)

func testPool(t *testing.T) *Pool {
	t.Helper()
	pool := NewPool(hubID)
	require.NoError(t, pool.AddAsset(assetTwo, &PoolAsset{State: reserveState(10*unit, 20*unit, 10*unit)}))
	require.NoError(t, pool.AddAsset(assetTri, &PoolAsset{State: reserveState(5*unit, 5*unit, 20*unit)}))
	return pool
}

func TestPoolAddAsset(t *testing.T) {
	pool := testPool(t)

	assert.Error(t, pool.AddAsset(hubID, &PoolAsset{State: reserveState(unit, unit, unit)}),
		"hub asset cannot be listed")
	assert.Error(t, pool.AddAsset(assetTwo, &PoolAsset{State: reserveState(unit, unit, unit)}),
		"duplicate listing")
	assert.Error(t, pool.AddAsset(4, &PoolAsset{}), "missing reserve state")

	_, ok := pool.Asset(assetTwo)
	assert.True(t, ok)
	_, ok = pool.Asset(99)
	assert.False(t, ok)
}

func TestPoolAssetIDs(t *testing.T) {
	pool := NewPool(hubID)
	require.NoError(t, pool.AddAsset(7, &PoolAsset{State: reserveState(unit, unit, unit)}))
	require.NoError(t, pool.AddAsset(3, &PoolAsset{State: reserveState(unit, unit, unit)}))
	require.NoError(t, pool.AddAsset(5, &PoolAsset{State: reserveState(unit, unit, unit)}))

	assert.Equal(t, []types.AssetID{3, 5, 7}, pool.AssetIDs())
}

func TestPoolTotalHubReserve(t *testing.T) {
	pool := testPool(t)
	requireBalance(t, bal(25*unit), pool.TotalHubReserve())
}

func TestPoolTVL(t *testing.T) {
	pool := testPool(t)

	// Total hub reserve 25 valued through asset 3 at 1 hub per unit.
	tvl, err := pool.TVL(assetTri)
	require.NoError(t, err)
	requireBalance(t, bal(25*unit), tvl)

	_, err = pool.TVL(99)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestPoolClone(t *testing.T) {
	pool := testPool(t)
	clone := pool.Clone()

	a, _ := clone.Asset(assetTwo)
	a.State.Reserve.SetInt64(1)

	orig, _ := pool.Asset(assetTwo)
	requireBalance(t, bal(10*unit), orig.State.Reserve)
}

func TestVenueSpotPrice(t *testing.T) {
	pool := testPool(t)
	venue := NewVenue(assetTri, Fee{})

	assert.Equal(t, assetTri, venue.PriceDenominator())

	// Asset 2 trades at 2 hub per unit, asset 3 at 1 hub per unit.
	price, err := venue.SpotPrice(assetTwo, assetTri, pool)
	require.NoError(t, err)
	assert.Zero(t, price.Cmp(ratio.FromUint64(2, 1)), "want 2/1, got %s", price)

	inverse, err := venue.SpotPrice(assetTri, assetTwo, pool)
	require.NoError(t, err)
	assert.Zero(t, inverse.Cmp(ratio.FromUint64(1, 2)), "want 1/2, got %s", inverse)

	hubPrice, err := venue.SpotPrice(hubID, assetTri, pool)
	require.NoError(t, err)
	assert.Zero(t, hubPrice.Cmp(ratio.One()), "want 1/1, got %s", hubPrice)

	_, err = venue.SpotPrice(99, assetTri, pool)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestVenueSell(t *testing.T) {
	pool := testPool(t)
	venue := NewVenue(assetTri, Fee{})

	next, trade, err := venue.Sell(assetTwo, assetTri, bal(4*unit), pool)
	require.NoError(t, err)

	requireBalance(t, bal(4*unit), trade.AmountIn)
	requireBalance(t, bal(2666666666666), trade.AmountOut)
	require.Equal(t, []solver.Hop{{AssetIn: assetTwo, AssetOut: assetTri}}, trade.Route)

	in, _ := next.Asset(assetTwo)
	requireBalance(t, bal(14*unit), in.State.Reserve)
	requireBalance(t, bal(14285714285715), in.State.HubReserve)

	out, _ := next.Asset(assetTri)
	requireBalance(t, bal(2333333333334), out.State.Reserve)
	requireBalance(t, bal(10714285714285), out.State.HubReserve)

	// The input pool is untouched.
	orig, _ := pool.Asset(assetTwo)
	requireBalance(t, bal(10*unit), orig.State.Reserve)
}

func TestVenueSellHubAsset(t *testing.T) {
	pool := testPool(t)
	venue := NewVenue(assetTri, Fee{})

	next, trade, err := venue.Sell(hubID, assetTwo, bal(4*unit), pool)
	require.NoError(t, err)

	requireBalance(t, bal(4*unit), trade.AmountIn)
	requireBalance(t, bal(1666666666666), trade.AmountOut)

	out, _ := next.Asset(assetTwo)
	requireBalance(t, bal(10*unit-1666666666666), out.State.Reserve)
	requireBalance(t, bal(24*unit), out.State.HubReserve)
}

func TestVenueSellHubAssetOutRejected(t *testing.T) {
	pool := testPool(t)
	venue := NewVenue(assetTri, Fee{})

	_, _, err := venue.Sell(assetTwo, hubID, bal(unit), pool)
	assert.Error(t, err)

	_, _, err = venue.Buy(assetTwo, hubID, bal(unit), pool)
	assert.Error(t, err)
}

func TestVenueBuy(t *testing.T) {
	pool := testPool(t)
	venue := NewVenue(assetTri, Fee{})

	next, trade, err := venue.Buy(assetTwo, assetTri, bal(unit), pool)
	require.NoError(t, err)

	requireBalance(t, bal(666666666668), trade.AmountIn)
	requireBalance(t, bal(unit), trade.AmountOut)

	out, _ := next.Asset(assetTri)
	requireBalance(t, bal(4*unit), out.State.Reserve)

	in, _ := next.Asset(assetTwo)
	requireBalance(t, bal(10*unit+666666666668), in.State.Reserve)
}

func TestVenueBuyDrainedReserve(t *testing.T) {
	pool := testPool(t)
	venue := NewVenue(assetTri, Fee{})

	_, _, err := venue.Buy(assetTwo, assetTri, bal(5*unit), pool)
	assert.ErrorIs(t, err, ErrInsufficientReserve)
}

func TestVenueUnknownAssets(t *testing.T) {
	pool := testPool(t)
	venue := NewVenue(assetTri, Fee{})

	_, _, err := venue.Sell(99, assetTri, bal(unit), pool)
	assert.ErrorIs(t, err, ErrAssetNotFound)

	_, _, err = venue.Buy(assetTwo, 99, bal(unit), pool)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}
