// Package config loads and validates the solver's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Signer    SignerConfig    `yaml:"signer"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	AMM       AMMConfig       `yaml:"amm"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
}

// AppConfig application basic configuration
type AppConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"logLevel"` // debug, info, warn, error
}

// SignerConfig signer configuration
type SignerConfig struct {
	PrivateKey    string `yaml:"privateKey"`    // hex private key (highest priority)
	PrivateKeyEnv string `yaml:"privateKeyEnv"` // environment variable name (fallback)
}

// GetPrivateKey returns the hex key, preferring the inline value over the
// environment variable.
func (c *SignerConfig) GetPrivateKey() (string, error) {
	if c.PrivateKey != "" {
		return strings.TrimPrefix(strings.TrimSpace(c.PrivateKey), "0x"), nil
	}
	if c.PrivateKeyEnv != "" {
		key := os.Getenv(c.PrivateKeyEnv)
		if key == "" {
			return "", fmt.Errorf("environment variable %s is not set", c.PrivateKeyEnv)
		}
		return strings.TrimPrefix(strings.TrimSpace(key), "0x"), nil
	}
	return "", fmt.Errorf("neither privateKey nor privateKeyEnv is configured")
}

// WebSocketConfig feed connection configuration
type WebSocketConfig struct {
	ServerURL            string        `yaml:"serverUrl"`
	APIToken             string        `yaml:"apiToken"`
	ReconnectInterval    time.Duration `yaml:"reconnectInterval"`
	MaxReconnectAttempts int           `yaml:"maxReconnectAttempts"` // 0 = unlimited
	HeartbeatInterval    time.Duration `yaml:"heartbeatInterval"`
	ReadTimeout          time.Duration `yaml:"readTimeout"`
	WriteTimeout         time.Duration `yaml:"writeTimeout"`
}

// AMMConfig omnipool venue configuration
type AMMConfig struct {
	// HubAssetID is the pool's hub asset.
	HubAssetID uint32 `yaml:"hubAssetId"`
	// PriceDenominator is the regular asset intermediate trades settle in
	// and all clearing prices are quoted against.
	PriceDenominator uint32 `yaml:"priceDenominator"`
	// BurnFeePpm is the share of the protocol fee that is burned, in
	// parts per million.
	BurnFeePpm uint32 `yaml:"burnFeePpm"`
}

// SnapshotConfig pool state source configuration
type SnapshotConfig struct {
	// Path of the snapshot JSON file.
	Path string `yaml:"path"`
	// RefreshInterval between reloads.
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "intent-solver"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.WebSocket.ReconnectInterval == 0 {
		c.WebSocket.ReconnectInterval = 5 * time.Second
	}
	if c.WebSocket.HeartbeatInterval == 0 {
		c.WebSocket.HeartbeatInterval = 30 * time.Second
	}
	if c.WebSocket.ReadTimeout == 0 {
		c.WebSocket.ReadTimeout = 90 * time.Second
	}
	if c.WebSocket.WriteTimeout == 0 {
		c.WebSocket.WriteTimeout = 10 * time.Second
	}
	if c.Snapshot.RefreshInterval == 0 {
		c.Snapshot.RefreshInterval = 12 * time.Second
	}
}

// Validate validates configuration
func (c *Config) Validate() error {
	if c.WebSocket.ServerURL == "" {
		return fmt.Errorf("websocket.serverUrl is required")
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path is required")
	}
	if c.AMM.PriceDenominator == c.AMM.HubAssetID {
		return fmt.Errorf("amm.priceDenominator must be a regular pool asset, not the hub asset")
	}
	if c.AMM.BurnFeePpm > 1_000_000 {
		return fmt.Errorf("amm.burnFeePpm %d exceeds 100%%", c.AMM.BurnFeePpm)
	}
	return nil
}
