// Package snapshot loads omnipool state from the JSON snapshot format
// exported by the chain tooling and keeps a periodically refreshed copy
// in memory for the solver.
package snapshot

import (
	"context"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/galacticcouncil/intent-solver/internal/omnipool"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// Provider supplies the current pool state.
type Provider interface {
	Fetch(ctx context.Context) (*omnipool.Pool, error)
}

// ParsePool decodes a snapshot document: a JSON array of entries keyed by
// venue kind, e.g.
//
//	[{"Omnipool":{"asset_id":5,"reserve":...,"hub_reserve":...,
//	  "decimals":10,"fee":[1500,1000000],"hub_fee":[500,1000000]}}, ...]
//
// Non-omnipool entries (stableswap pools) are skipped. Reserve values can
// exceed 2^53 so they are read from the raw JSON literal, never through a
// float.
func ParsePool(data []byte, hubAssetID types.AssetID) (*omnipool.Pool, error) {
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("snapshot: document is not an array")
	}

	pool := omnipool.NewPool(hubAssetID)
	var parseErr error

	doc.ForEach(func(_, entry gjson.Result) bool {
		record := entry.Get("Omnipool")
		if !record.Exists() {
			return true
		}

		asset, id, err := parseOmnipoolAsset(record)
		if err != nil {
			parseErr = err
			return false
		}
		if err := pool.AddAsset(id, asset); err != nil {
			parseErr = fmt.Errorf("snapshot: %w", err)
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(pool.AssetIDs()) == 0 {
		return nil, fmt.Errorf("snapshot: no omnipool assets found")
	}
	return pool, nil
}

func parseOmnipoolAsset(record gjson.Result) (*omnipool.PoolAsset, types.AssetID, error) {
	idField := record.Get("asset_id")
	if !idField.Exists() {
		return nil, 0, fmt.Errorf("snapshot: entry missing asset_id")
	}
	id := types.AssetID(idField.Uint())

	reserve, err := rawBalance(record.Get("reserve"))
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: asset %d reserve: %w", id, err)
	}
	hubReserve, err := rawBalance(record.Get("hub_reserve"))
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: asset %d hub_reserve: %w", id, err)
	}

	assetFee, err := parseFeePair(record.Get("fee"))
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: asset %d fee: %w", id, err)
	}
	hubFee, err := parseFeePair(record.Get("hub_fee"))
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: asset %d hub_fee: %w", id, err)
	}

	return &omnipool.PoolAsset{
		State: &omnipool.AssetReserveState{
			Reserve:    reserve,
			HubReserve: hubReserve,
			// Snapshots carry no share accounting; liquidity math needs a
			// richer source.
			Shares:         types.Zero(),
			ProtocolShares: types.Zero(),
		},
		AssetFee: assetFee,
		HubFee:   hubFee,
		Decimals: uint8(record.Get("decimals").Uint()),
	}, id, nil
}

// rawBalance reads an integer that may exceed float64 precision from the
// raw JSON literal.
func rawBalance(field gjson.Result) (types.Balance, error) {
	if !field.Exists() {
		return nil, fmt.Errorf("missing value")
	}
	raw := field.Raw
	if field.Type == gjson.String {
		raw = field.Str
	}
	return types.ParseBalance(raw)
}

func parseFeePair(field gjson.Result) (omnipool.Fee, error) {
	if !field.Exists() {
		return omnipool.Fee{}, nil
	}
	pair := field.Array()
	if len(pair) != 2 {
		return omnipool.Fee{}, fmt.Errorf("expected [n, d] pair, got %s", field.Raw)
	}
	return omnipool.FeeFromPair(pair[0].Uint(), pair[1].Uint())
}

// FileProvider loads the pool from a snapshot file on every fetch.
type FileProvider struct {
	Path       string
	HubAssetID types.AssetID
}

func (p *FileProvider) Fetch(_ context.Context) (*omnipool.Pool, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", p.Path, err)
	}
	return ParsePool(data, p.HubAssetID)
}

// StaticProvider serves a fixed pool, cloned on every fetch.
type StaticProvider struct {
	Pool *omnipool.Pool
}

func (p *StaticProvider) Fetch(_ context.Context) (*omnipool.Pool, error) {
	if p.Pool == nil {
		return nil, fmt.Errorf("snapshot: no pool configured")
	}
	return p.Pool.Clone(), nil
}
