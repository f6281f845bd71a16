package ws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/galacticcouncil/intent-solver/internal/feed"
)

// HeartbeatConfig configures liveness detection.
type HeartbeatConfig struct {
	Interval    time.Duration // ping cadence
	ReadTimeout time.Duration // silence threshold that triggers reconnection
}

// Heartbeat pings the feed periodically and forces a reconnect when the
// connection has been silent past the read timeout.
type Heartbeat struct {
	client          Client
	config          *HeartbeatConfig
	logger          *slog.Logger
	lastReceived    atomic.Int64 // unix nanoseconds
	timeoutDetected atomic.Bool
}

// NewHeartbeat creates a heartbeat manager.
func NewHeartbeat(client Client, config *HeartbeatConfig, logger *slog.Logger) *Heartbeat {
	if config == nil {
		config = &HeartbeatConfig{
			Interval:    30 * time.Second,
			ReadTimeout: 90 * time.Second,
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Heartbeat{
		client: client,
		config: config,
		logger: logger,
	}
	h.lastReceived.Store(time.Now().UnixNano())
	return h
}

// Start runs the heartbeat loop until the context is cancelled.
func (h *Heartbeat) Start(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	h.logger.Info("Heartbeat started",
		"interval", h.config.Interval,
		"timeout", h.config.ReadTimeout)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Heartbeat stopped")
			return
		case <-ticker.C:
			h.check()
		}
	}
}

func (h *Heartbeat) check() {
	lastReceived := time.Unix(0, h.lastReceived.Load())
	elapsed := time.Since(lastReceived)

	if elapsed > h.config.ReadTimeout {
		if !h.timeoutDetected.Swap(true) {
			h.logger.Warn("Heartbeat timeout detected, triggering reconnect",
				"elapsed", elapsed,
				"timeout", h.config.ReadTimeout)
		}
		h.client.TriggerReconnect()
		return
	}

	h.timeoutDetected.Store(false)

	if err := h.client.Send(feed.EncodeHeartbeat(true)); err != nil {
		h.logger.Error("Failed to send heartbeat ping", "error", err)
	}
}

// OnMessageReceived records feed activity; any inbound frame counts.
func (h *Heartbeat) OnMessageReceived() {
	h.lastReceived.Store(time.Now().UnixNano())
}

// LastReceivedTime returns the time of the last inbound frame.
func (h *Heartbeat) LastReceivedTime() time.Time {
	return time.Unix(0, h.lastReceived.Load())
}
