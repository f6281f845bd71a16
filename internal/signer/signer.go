// Package signer signs solved batches so the matchmaker can verify which
// solver produced a submission.
package signer

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/galacticcouncil/intent-solver/internal/solver"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

// Signer signs solution submissions.
type Signer interface {
	// SignSolution signs the canonical encoding of a solved batch.
	SignSolution(batchID string, solution *solver.Solution) ([]byte, error)
	// Address returns the signing address.
	Address() common.Address
}

// Config selects where the signing key comes from.
type Config struct {
	PrivateKey    string `yaml:"privateKey"`    // hex private key (highest priority)
	PrivateKeyEnv string `yaml:"privateKeyEnv"` // environment variable holding the key
}

type signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// New creates a signer from a parsed private key.
func New(privateKey *ecdsa.PrivateKey) Signer {
	return &signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// NewFromHex creates a signer from a hex-encoded private key.
func NewFromHex(hexKey string) (Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return New(privateKey), nil
}

// NewFromConfig creates a signer, preferring an inline key over one read
// from the environment.
func NewFromConfig(config *Config) (Signer, error) {
	var hexKey string
	switch {
	case config.PrivateKey != "":
		hexKey = strings.TrimSpace(config.PrivateKey)
	case config.PrivateKeyEnv != "":
		hexKey = strings.TrimSpace(os.Getenv(config.PrivateKeyEnv))
		if hexKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set and no privateKey in config", config.PrivateKeyEnv)
		}
	default:
		return nil, fmt.Errorf("neither privateKey nor privateKeyEnv is configured")
	}
	return NewFromHex(hexKey)
}

func (s *signer) Address() common.Address {
	return s.address
}

// SignSolution hashes the canonical solution encoding with keccak256 and
// signs it, normalizing the recovery byte to 27/28.
func (s *signer) SignSolution(batchID string, solution *solver.Solution) ([]byte, error) {
	digest := HashSolution(batchID, solution)

	sig, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// HashSolution computes the canonical digest of a solved batch. The
// encoding is order-sensitive: resolved intents and trades in solution
// order, clearing prices by ascending asset ID, every amount as a
// 32-byte big-endian word.
func HashSolution(batchID string, solution *solver.Solution) common.Hash {
	var buf []byte

	buf = append(buf, crypto.Keccak256([]byte(batchID))...)
	buf = append(buf, word(solution.Score)...)

	for _, r := range solution.ResolvedIntents {
		buf = binary.BigEndian.AppendUint64(buf, uint64(r.IntentID))
		buf = binary.BigEndian.AppendUint32(buf, uint32(r.AssetIn))
		buf = binary.BigEndian.AppendUint32(buf, uint32(r.AssetOut))
		buf = append(buf, word(r.AmountIn)...)
		buf = append(buf, word(r.AmountOut)...)
		buf = append(buf, byte(r.Type))
	}

	for _, t := range solution.Trades {
		buf = append(buf, byte(t.Direction))
		buf = append(buf, word(t.AmountIn)...)
		buf = append(buf, word(t.AmountOut)...)
		for _, hop := range t.Route {
			buf = binary.BigEndian.AppendUint32(buf, uint32(hop.AssetIn))
			buf = binary.BigEndian.AppendUint32(buf, uint32(hop.AssetOut))
		}
	}

	assets := make([]types.AssetID, 0, len(solution.ClearingPrices))
	for asset := range solution.ClearingPrices {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	for _, asset := range assets {
		price := solution.ClearingPrices[asset]
		buf = binary.BigEndian.AppendUint32(buf, uint32(asset))
		buf = append(buf, word(price.N)...)
		buf = append(buf, word(price.D)...)
	}

	return crypto.Keccak256Hash(buf)
}

func word(v types.Balance) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}
