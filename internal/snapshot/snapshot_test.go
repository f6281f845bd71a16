package snapshot

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galacticcouncil/intent-solver/internal/omnipool"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

const hubAssetID = types.AssetID(1)

// snapshotDoc mirrors the chain export format: omnipool entries mixed
// with stableswap entries, with reserves above 2^53.
const snapshotDoc = `[
	{"Omnipool": {
		"asset_id": 5,
		"reserve": 52301491602723449004308,
		"hub_reserve": 2218128255986034,
		"decimals": 12,
		"fee": [1500, 1000000],
		"hub_fee": [500, 1000000]
	}},
	{"StableSwap": {
		"pool_id": 100,
		"reserves": [{"asset_id": 10, "amount": 1000}]
	}},
	{"Omnipool": {
		"asset_id": 10,
		"reserve": "67829448624524361905510",
		"hub_reserve": "3306347306384663",
		"decimals": 10,
		"fee": [2500, 1000000],
		"hub_fee": [500, 1000000]
	}}
]`

func TestParsePool(t *testing.T) {
	pool, err := ParsePool([]byte(snapshotDoc), hubAssetID)
	require.NoError(t, err)

	assert.Equal(t, hubAssetID, pool.HubAssetID())
	assert.Equal(t, []types.AssetID{5, 10}, pool.AssetIDs(), "stableswap entries are skipped")

	five, ok := pool.Asset(5)
	require.True(t, ok)
	wantReserve, _ := new(big.Int).SetString("52301491602723449004308", 10)
	assert.Zero(t, wantReserve.Cmp(five.State.Reserve), "large bare integers survive parsing")
	assert.Zero(t, big.NewInt(2218128255986034).Cmp(five.State.HubReserve))
	assert.Equal(t, uint32(1500), five.AssetFee.Parts())
	assert.Equal(t, uint32(500), five.HubFee.Parts())
	assert.Equal(t, uint8(12), five.Decimals)

	ten, ok := pool.Asset(10)
	require.True(t, ok)
	wantReserve, _ = new(big.Int).SetString("67829448624524361905510", 10)
	assert.Zero(t, wantReserve.Cmp(ten.State.Reserve), "string-encoded reserves also parse")
	assert.Equal(t, uint32(2500), ten.AssetFee.Parts())
}

func TestParsePoolErrors(t *testing.T) {
	_, err := ParsePool([]byte(`{"Omnipool":{}}`), hubAssetID)
	assert.Error(t, err, "not an array")

	_, err = ParsePool([]byte(`[{"StableSwap":{"pool_id":1}}]`), hubAssetID)
	assert.Error(t, err, "no omnipool assets")

	_, err = ParsePool([]byte(`[{"Omnipool":{"reserve":1,"hub_reserve":1}}]`), hubAssetID)
	assert.Error(t, err, "missing asset_id")

	_, err = ParsePool([]byte(`[{"Omnipool":{"asset_id":5,"hub_reserve":1}}]`), hubAssetID)
	assert.Error(t, err, "missing reserve")

	_, err = ParsePool([]byte(`[{"Omnipool":{"asset_id":5,"reserve":1,"hub_reserve":1,"fee":[1]}}]`), hubAssetID)
	assert.Error(t, err, "malformed fee pair")

	// The hub asset cannot appear as a listed pool asset.
	_, err = ParsePool([]byte(`[{"Omnipool":{"asset_id":1,"reserve":1,"hub_reserve":1}}]`), hubAssetID)
	assert.Error(t, err)
}

func TestParsePoolOmittedFees(t *testing.T) {
	pool, err := ParsePool([]byte(`[{"Omnipool":{"asset_id":5,"reserve":10,"hub_reserve":20}}]`), hubAssetID)
	require.NoError(t, err)

	five, _ := pool.Asset(5)
	assert.True(t, five.AssetFee.IsZero())
	assert.True(t, five.HubFee.IsZero())
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omnipool.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotDoc), 0o644))

	provider := &FileProvider{Path: path, HubAssetID: hubAssetID}
	pool, err := provider.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, pool.AssetIDs(), 2)

	provider.Path = filepath.Join(t.TempDir(), "missing.json")
	_, err = provider.Fetch(context.Background())
	assert.Error(t, err)
}

func TestStaticProvider(t *testing.T) {
	pool := omnipool.NewPool(hubAssetID)
	require.NoError(t, pool.AddAsset(5, &omnipool.PoolAsset{
		State: &omnipool.AssetReserveState{
			Reserve:        big.NewInt(100),
			HubReserve:     big.NewInt(200),
			Shares:         types.Zero(),
			ProtocolShares: types.Zero(),
		},
	}))

	provider := &StaticProvider{Pool: pool}

	fetched, err := provider.Fetch(context.Background())
	require.NoError(t, err)

	// Each fetch clones, so callers cannot corrupt the source pool.
	asset, _ := fetched.Asset(5)
	asset.State.Reserve.SetInt64(1)

	orig, _ := pool.Asset(5)
	assert.Zero(t, big.NewInt(100).Cmp(orig.State.Reserve))

	_, err = (&StaticProvider{}).Fetch(context.Background())
	assert.Error(t, err)
}
