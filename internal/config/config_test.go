package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
app:
  name: test-solver
  logLevel: debug
signer:
  privateKeyEnv: SOLVER_PRIVATE_KEY
websocket:
  serverUrl: wss://feed.example.com/ws
  reconnectInterval: 3s
amm:
  hubAssetId: 1
  priceDenominator: 10
  burnFeePpm: 500000
snapshot:
  path: snapshots/omnipool.json
  refreshInterval: 6s
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "test-solver", cfg.App.Name)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "SOLVER_PRIVATE_KEY", cfg.Signer.PrivateKeyEnv)
	assert.Equal(t, "wss://feed.example.com/ws", cfg.WebSocket.ServerURL)
	assert.Equal(t, 3*time.Second, cfg.WebSocket.ReconnectInterval)
	assert.Equal(t, uint32(1), cfg.AMM.HubAssetID)
	assert.Equal(t, uint32(10), cfg.AMM.PriceDenominator)
	assert.Equal(t, uint32(500000), cfg.AMM.BurnFeePpm)
	assert.Equal(t, "snapshots/omnipool.json", cfg.Snapshot.Path)
	assert.Equal(t, 6*time.Second, cfg.Snapshot.RefreshInterval)
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
websocket:
  serverUrl: wss://feed.example.com/ws
amm:
  hubAssetId: 1
  priceDenominator: 10
snapshot:
  path: snapshots/omnipool.json
`
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "intent-solver", cfg.App.Name)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.ReconnectInterval)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.HeartbeatInterval)
	assert.Equal(t, 90*time.Second, cfg.WebSocket.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.WriteTimeout)
	assert.Equal(t, 12*time.Second, cfg.Snapshot.RefreshInterval)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "{not yaml"))
	assert.Error(t, err)

	noServer := `
amm:
  hubAssetId: 1
  priceDenominator: 10
snapshot:
  path: snapshots/omnipool.json
`
	_, err = Load(writeConfig(t, noServer))
	assert.ErrorContains(t, err, "serverUrl")

	noSnapshot := `
websocket:
  serverUrl: wss://feed.example.com/ws
amm:
  hubAssetId: 1
  priceDenominator: 10
`
	_, err = Load(writeConfig(t, noSnapshot))
	assert.ErrorContains(t, err, "snapshot.path")

	hubDenominator := `
websocket:
  serverUrl: wss://feed.example.com/ws
amm:
  hubAssetId: 1
  priceDenominator: 1
snapshot:
  path: snapshots/omnipool.json
`
	_, err = Load(writeConfig(t, hubDenominator))
	assert.ErrorContains(t, err, "priceDenominator")

	badBurnFee := `
websocket:
  serverUrl: wss://feed.example.com/ws
amm:
  hubAssetId: 1
  priceDenominator: 10
  burnFeePpm: 1000001
snapshot:
  path: snapshots/omnipool.json
`
	_, err = Load(writeConfig(t, badBurnFee))
	assert.ErrorContains(t, err, "burnFeePpm")
}

func TestSignerConfigGetPrivateKey(t *testing.T) {
	c := &SignerConfig{PrivateKey: "0xabc123"}
	key, err := c.GetPrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "abc123", key, "0x prefix is stripped")

	t.Setenv("TEST_CONFIG_KEY", " 0xdef456 ")
	c = &SignerConfig{PrivateKeyEnv: "TEST_CONFIG_KEY"}
	key, err = c.GetPrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "def456", key)

	c = &SignerConfig{PrivateKeyEnv: "TEST_CONFIG_KEY_UNSET"}
	_, err = c.GetPrivateKey()
	assert.Error(t, err)

	c = &SignerConfig{}
	_, err = c.GetPrivateKey()
	assert.Error(t, err)
}
