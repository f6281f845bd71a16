package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galacticcouncil/intent-solver/internal/omnipool"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingProvider struct{}

func (failingProvider) Fetch(context.Context) (*omnipool.Pool, error) {
	return nil, fmt.Errorf("fetch unavailable")
}

func staticPool(t *testing.T) *omnipool.Pool {
	t.Helper()
	pool := omnipool.NewPool(1)
	require.NoError(t, pool.AddAsset(5, &omnipool.PoolAsset{
		State: &omnipool.AssetReserveState{
			Reserve:        big.NewInt(100),
			HubReserve:     big.NewInt(200),
			Shares:         types.Zero(),
			ProtocolShares: types.Zero(),
		},
	}))
	return pool
}

func TestRefresherStartAndCurrent(t *testing.T) {
	provider := &StaticProvider{Pool: staticPool(t)}
	refresher := NewRefresher(provider, time.Hour, discardLogger())

	require.NoError(t, refresher.Start(context.Background()))
	defer refresher.Stop()

	current, err := refresher.Current()
	require.NoError(t, err)
	assert.Len(t, current.AssetIDs(), 1)

	// Current hands out clones.
	asset, _ := current.Asset(5)
	asset.State.Reserve.SetInt64(1)

	again, err := refresher.Current()
	require.NoError(t, err)
	asset, _ = again.Asset(5)
	assert.Zero(t, big.NewInt(100).Cmp(asset.State.Reserve))
}

func TestRefresherStartFailsOnInitialFetch(t *testing.T) {
	refresher := NewRefresher(failingProvider{}, time.Hour, discardLogger())
	assert.Error(t, refresher.Start(context.Background()))
}

func TestRefresherCurrentBeforeStart(t *testing.T) {
	refresher := NewRefresher(&StaticProvider{Pool: staticPool(t)}, time.Hour, discardLogger())
	_, err := refresher.Current()
	assert.Error(t, err)
}
