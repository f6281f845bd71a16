package ws

import (
	"sync/atomic"
	"time"
)

// ReconnectConfig configures exponential backoff between reconnection
// attempts.
type ReconnectConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     int // 0 = unlimited
	Multiplier      float64
}

// DefaultReconnectConfig returns the default backoff configuration.
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		InitialInterval: 5 * time.Second,
		MaxInterval:     160 * time.Second,
		MaxAttempts:     0,
		Multiplier:      2.0,
	}
}

// Reconnector tracks backoff state across reconnection attempts.
type Reconnector struct {
	config   *ReconnectConfig
	attempts atomic.Int32
	interval time.Duration
}

// NewReconnector creates a backoff tracker.
func NewReconnector(config *ReconnectConfig) *Reconnector {
	if config == nil {
		config = DefaultReconnectConfig()
	}
	if config.Multiplier == 0 {
		config.Multiplier = 2.0
	}
	if config.MaxInterval == 0 {
		config.MaxInterval = config.InitialInterval * 32
	}

	return &Reconnector{
		config:   config,
		interval: config.InitialInterval,
	}
}

// ShouldReconnect reports whether another attempt is allowed.
func (r *Reconnector) ShouldReconnect() bool {
	if r.config.MaxAttempts == 0 {
		return true
	}
	return int(r.attempts.Load()) < r.config.MaxAttempts
}

// NextInterval returns the wait before the next attempt and advances the
// backoff.
func (r *Reconnector) NextInterval() time.Duration {
	r.attempts.Add(1)

	current := r.interval
	next := time.Duration(float64(r.interval) * r.config.Multiplier)
	if next > r.config.MaxInterval {
		next = r.config.MaxInterval
	}
	r.interval = next

	return current
}

// Attempts returns the attempt count since the last reset.
func (r *Reconnector) Attempts() int {
	return int(r.attempts.Load())
}

// Reset clears backoff state after a successful connection.
func (r *Reconnector) Reset() {
	r.attempts.Store(0)
	r.interval = r.config.InitialInterval
}
