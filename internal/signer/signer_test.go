package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galacticcouncil/intent-solver/internal/ratio"
	"github.com/galacticcouncil/intent-solver/internal/solver"
	"github.com/galacticcouncil/intent-solver/internal/types"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testSolution() *solver.Solution {
	return &solver.Solution{
		ResolvedIntents: []solver.ResolvedIntent{
			{
				IntentID:  1,
				AssetIn:   10,
				AssetOut:  20,
				AmountIn:  big.NewInt(100),
				AmountOut: big.NewInt(50),
				Type:      solver.ExactIn,
			},
		},
		Trades: []solver.PoolTrade{
			{
				Direction: solver.ExactIn,
				AmountIn:  big.NewInt(60),
				AmountOut: big.NewInt(30),
				Route:     []solver.Hop{{AssetIn: 10, AssetOut: 20}},
			},
		},
		ClearingPrices: map[types.AssetID]ratio.Ratio{
			10: ratio.FromUint64(1, 1),
			20: ratio.FromUint64(2, 1),
		},
		Score: big.NewInt(10),
	}
}

func TestNewFromHex(t *testing.T) {
	s, err := NewFromHex(testKey)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Address().Hex())

	// A 0x prefix and surrounding whitespace are tolerated.
	s2, err := NewFromHex("  0x" + testKey + " ")
	require.NoError(t, err)
	assert.Equal(t, s.Address(), s2.Address())

	_, err = NewFromHex("not-a-key")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	s, err := NewFromConfig(&Config{PrivateKey: testKey})
	require.NoError(t, err)
	assert.NotZero(t, s.Address())

	t.Setenv("TEST_SOLVER_KEY", testKey)
	s, err = NewFromConfig(&Config{PrivateKeyEnv: "TEST_SOLVER_KEY"})
	require.NoError(t, err)
	assert.NotZero(t, s.Address())

	// The inline key wins over the environment variable.
	t.Setenv("TEST_SOLVER_KEY", "garbage")
	_, err = NewFromConfig(&Config{PrivateKey: testKey, PrivateKeyEnv: "TEST_SOLVER_KEY"})
	assert.NoError(t, err)

	t.Setenv("EMPTY_SOLVER_KEY", "")
	_, err = NewFromConfig(&Config{PrivateKeyEnv: "EMPTY_SOLVER_KEY"})
	assert.Error(t, err)

	_, err = NewFromConfig(&Config{})
	assert.Error(t, err)
}

func TestSignSolutionRecoversAddress(t *testing.T) {
	s, err := NewFromHex(testKey)
	require.NoError(t, err)

	solution := testSolution()
	sig, err := s.SignSolution("batch-42", solution)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.GreaterOrEqual(t, sig[64], byte(27))

	digest := HashSolution("batch-42", solution)

	recoverSig := make([]byte, 65)
	copy(recoverSig, sig)
	recoverSig[64] -= 27

	pub, err := crypto.SigToPub(digest.Bytes(), recoverSig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub))
}

func TestHashSolutionDeterministic(t *testing.T) {
	a := HashSolution("batch-42", testSolution())
	b := HashSolution("batch-42", testSolution())
	assert.Equal(t, a, b)
}

func TestHashSolutionDistinguishesInputs(t *testing.T) {
	base := HashSolution("batch-42", testSolution())

	assert.NotEqual(t, base, HashSolution("batch-43", testSolution()))

	changed := testSolution()
	changed.Score = big.NewInt(11)
	assert.NotEqual(t, base, HashSolution("batch-42", changed))

	changed = testSolution()
	changed.ResolvedIntents[0].AmountOut = big.NewInt(51)
	assert.NotEqual(t, base, HashSolution("batch-42", changed))

	changed = testSolution()
	changed.Trades[0].Direction = solver.ExactOut
	assert.NotEqual(t, base, HashSolution("batch-42", changed))

	changed = testSolution()
	changed.ClearingPrices[20] = ratio.FromUint64(3, 1)
	assert.NotEqual(t, base, HashSolution("batch-42", changed))
}

func TestHashSolutionEmptySolution(t *testing.T) {
	empty := &solver.Solution{
		ClearingPrices: map[types.AssetID]ratio.Ratio{},
		Score:          types.Zero(),
	}
	a := HashSolution("b", empty)
	b := HashSolution("b", empty)
	assert.Equal(t, a, b)
}
