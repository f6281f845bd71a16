package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/galacticcouncil/intent-solver/internal/omnipool"
)

// Refresher keeps the latest pool state in memory and refreshes it from a
// Provider on a fixed interval. Current never blocks on a fetch.
type Refresher struct {
	provider Provider
	interval time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	pool *omnipool.Pool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher polling provider every interval.
func NewRefresher(provider Provider, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		provider: provider,
		interval: interval,
		logger:   logger.With("component", "SnapshotRefresher"),
	}
}

// Start performs an initial blocking fetch and then refreshes in the
// background until Stop or context cancellation.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	pool, err := r.provider.Fetch(r.ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot fetch: %w", err)
	}
	r.mu.Lock()
	r.pool = pool
	r.mu.Unlock()

	r.wg.Add(1)
	go r.refreshLoop()

	r.logger.Info("Snapshot refresher started",
		"interval", r.interval,
		"assets", len(pool.AssetIDs()))
	return nil
}

// Stop stops the refresh loop.
func (r *Refresher) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("Snapshot refresher stopped")
	return nil
}

// Current returns a clone of the latest pool state, or an error when no
// fetch has succeeded yet.
func (r *Refresher) Current() (*omnipool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pool == nil {
		return nil, fmt.Errorf("snapshot: no pool state available")
	}
	return r.pool.Clone(), nil
}

func (r *Refresher) refreshLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// refresh fetches a new pool state; on failure the previous state stays
// in place.
func (r *Refresher) refresh() {
	pool, err := r.provider.Fetch(r.ctx)
	if err != nil {
		r.logger.Error("Failed to refresh snapshot", "error", err)
		return
	}

	r.mu.Lock()
	r.pool = pool
	r.mu.Unlock()

	r.logger.Debug("Snapshot refreshed", "assets", len(pool.AssetIDs()))
}
