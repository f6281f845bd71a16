// Package feed implements the JSON message protocol between the solver
// and the intent matchmaker: intent batches in, signed solutions out.
//
// Every message is a text frame with a common envelope:
//
//	{"type": "<kind>", "timestamp": <unix millis>, "payload": {...}}
//
// Amounts can exceed 2^53, so inbound values are read from the raw JSON
// literal and outbound values are emitted as decimal strings.
package feed

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/solver"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// Message kinds.
const (
	TypeIntentBatch = "intent_batch"
	TypeSolution    = "solution"
	TypeHeartbeat   = "heartbeat"
	TypeAck         = "ack"
	TypeError       = "error"
)

// Envelope is a decoded message header with its raw payload.
type Envelope struct {
	Type      string
	Timestamp int64
	Payload   gjson.Result
}

// DecodeEnvelope parses the outer message structure.
func DecodeEnvelope(data []byte) (Envelope, error) {
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Envelope{}, fmt.Errorf("feed: message is not a JSON object")
	}
	msgType := doc.Get("type")
	if !msgType.Exists() {
		return Envelope{}, fmt.Errorf("feed: message has no type")
	}
	return Envelope{
		Type:      msgType.String(),
		Timestamp: doc.Get("timestamp").Int(),
		Payload:   doc.Get("payload"),
	}, nil
}

// IntentBatch is a decoded batch of intents to solve.
type IntentBatch struct {
	BatchID string
	Intents []solver.Intent
}

// DecodeIntentBatch decodes an intent_batch payload. Malformed intents
// fail the whole batch; an intent swapping an asset for itself is
// malformed.
func DecodeIntentBatch(payload gjson.Result) (*IntentBatch, error) {
	batchID := payload.Get("batch_id")
	if !batchID.Exists() {
		return nil, fmt.Errorf("feed: batch has no batch_id")
	}

	intentsField := payload.Get("intents")
	if !intentsField.IsArray() {
		return nil, fmt.Errorf("feed: batch %s has no intents array", batchID.String())
	}

	batch := &IntentBatch{BatchID: batchID.String()}
	var decodeErr error

	intentsField.ForEach(func(_, item gjson.Result) bool {
		intent, err := decodeIntent(item)
		if err != nil {
			decodeErr = fmt.Errorf("feed: batch %s: %w", batchID.String(), err)
			return false
		}
		batch.Intents = append(batch.Intents, intent)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return batch, nil
}

func decodeIntent(item gjson.Result) (solver.Intent, error) {
	id := item.Get("intent_id")
	if !id.Exists() {
		return solver.Intent{}, fmt.Errorf("intent has no intent_id")
	}

	assetIn := types.AssetID(item.Get("asset_in").Uint())
	assetOut := types.AssetID(item.Get("asset_out").Uint())
	if assetIn == assetOut {
		return solver.Intent{}, fmt.Errorf("intent %d swaps asset %d for itself", id.Uint(), assetIn)
	}

	amountIn, err := rawAmount(item.Get("amount_in"))
	if err != nil {
		return solver.Intent{}, fmt.Errorf("intent %d amount_in: %w", id.Uint(), err)
	}
	amountOut, err := rawAmount(item.Get("amount_out"))
	if err != nil {
		return solver.Intent{}, fmt.Errorf("intent %d amount_out: %w", id.Uint(), err)
	}

	var swapType solver.SwapType
	switch st := item.Get("swap_type").String(); st {
	case "exact_in":
		swapType = solver.ExactIn
	case "exact_out":
		swapType = solver.ExactOut
	default:
		return solver.Intent{}, fmt.Errorf("intent %d has unknown swap_type %q", id.Uint(), st)
	}

	return solver.Intent{
		ID:        types.IntentID(id.Uint()),
		AssetIn:   assetIn,
		AssetOut:  assetOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Type:      swapType,
		Deadline:  item.Get("deadline").Uint(),
		Partial:   item.Get("partial").Bool(),
	}, nil
}

// rawAmount accepts both bare integers and string-encoded integers.
func rawAmount(field gjson.Result) (types.Balance, error) {
	if !field.Exists() {
		return nil, fmt.Errorf("missing value")
	}
	raw := field.Raw
	if field.Type == gjson.String {
		raw = field.Str
	}
	return types.ParseBalance(raw)
}

// Outbound wire structs. Amounts travel as decimal strings.

type solutionMsg struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   solutionPayload `json:"payload"`
}

type solutionPayload struct {
	BatchID         string              `json:"batch_id"`
	Score           string              `json:"score"`
	ResolvedIntents []resolvedIntentMsg `json:"resolved_intents"`
	Trades          []tradeMsg          `json:"trades"`
	ClearingPrices  []clearingPriceMsg  `json:"clearing_prices"`
	Signature       string              `json:"signature,omitempty"`
}

type resolvedIntentMsg struct {
	IntentID  uint64 `json:"intent_id"`
	AssetIn   uint32 `json:"asset_in"`
	AssetOut  uint32 `json:"asset_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	SwapType  string `json:"swap_type"`
	Partial   bool   `json:"partial"`
}

type tradeMsg struct {
	Direction string   `json:"direction"`
	AmountIn  string   `json:"amount_in"`
	AmountOut string   `json:"amount_out"`
	Route     []hopMsg `json:"route"`
}

type hopMsg struct {
	AssetIn  uint32 `json:"asset_in"`
	AssetOut uint32 `json:"asset_out"`
}

type clearingPriceMsg struct {
	Asset uint32 `json:"asset"`
	N     string `json:"n"`
	D     string `json:"d"`
}

// EncodeSolution serializes a solved batch, with an optional signature
// over its canonical form.
func EncodeSolution(batchID string, solution *solver.Solution, signature []byte) ([]byte, error) {
	payload := solutionPayload{
		BatchID:         batchID,
		Score:           solution.Score.String(),
		ResolvedIntents: []resolvedIntentMsg{},
		Trades:          []tradeMsg{},
		ClearingPrices:  []clearingPriceMsg{},
	}
	if len(signature) > 0 {
		payload.Signature = "0x" + hex.EncodeToString(signature)
	}

	for _, r := range solution.ResolvedIntents {
		payload.ResolvedIntents = append(payload.ResolvedIntents, resolvedIntentMsg{
			IntentID:  uint64(r.IntentID),
			AssetIn:   uint32(r.AssetIn),
			AssetOut:  uint32(r.AssetOut),
			AmountIn:  r.AmountIn.String(),
			AmountOut: r.AmountOut.String(),
			SwapType:  r.Type.String(),
			Partial:   r.Partial,
		})
	}

	for _, t := range solution.Trades {
		route := make([]hopMsg, 0, len(t.Route))
		for _, hop := range t.Route {
			route = append(route, hopMsg{AssetIn: uint32(hop.AssetIn), AssetOut: uint32(hop.AssetOut)})
		}
		payload.Trades = append(payload.Trades, tradeMsg{
			Direction: t.Direction.String(),
			AmountIn:  t.AmountIn.String(),
			AmountOut: t.AmountOut.String(),
			Route:     route,
		})
	}

	// Deterministic order so the same solution always encodes the same.
	for _, asset := range sortedPriceAssets(solution.ClearingPrices) {
		price := solution.ClearingPrices[asset]
		payload.ClearingPrices = append(payload.ClearingPrices, clearingPriceMsg{
			Asset: uint32(asset),
			N:     price.N.String(),
			D:     price.D.String(),
		})
	}

	return json.Marshal(solutionMsg{
		Type:      TypeSolution,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}

type heartbeatMsg struct {
	Type      string           `json:"type"`
	Timestamp int64            `json:"timestamp"`
	Payload   heartbeatPayload `json:"payload"`
}

type heartbeatPayload struct {
	Ping bool `json:"ping"`
	Pong bool `json:"pong"`
}

// EncodeHeartbeat serializes a heartbeat ping or pong.
func EncodeHeartbeat(ping bool) []byte {
	data, _ := json.Marshal(heartbeatMsg{
		Type:      TypeHeartbeat,
		Timestamp: time.Now().UnixMilli(),
		Payload:   heartbeatPayload{Ping: ping, Pong: !ping},
	})
	return data
}

func sortedPriceAssets(prices map[types.AssetID]ratio.Ratio) []types.AssetID {
	assets := make([]types.AssetID, 0, len(prices))
	for asset := range prices {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

// Ack is a matchmaker acknowledgement of a submitted solution.
type Ack struct {
	BatchID  string
	Accepted bool
	Reason   string
}

// DecodeAck decodes an ack payload.
func DecodeAck(payload gjson.Result) Ack {
	return Ack{
		BatchID:  payload.Get("batch_id").String(),
		Accepted: payload.Get("accepted").Bool(),
		Reason:   payload.Get("reason").String(),
	}
}
