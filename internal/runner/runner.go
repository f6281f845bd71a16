// Package runner wires the solver service together: feed connection,
// snapshot refresher, solver, and signer.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/galacticcouncil/intent-solver/internal/config"
	"github.com/galacticcouncil/intent-solver/internal/feed"
	"github.com/galacticcouncil/intent-solver/internal/omnipool"
	"github.com/galacticcouncil/intent-solver/internal/signer"
	"github.com/galacticcouncil/intent-solver/internal/snapshot"
	"github.com/galacticcouncil/intent-solver/internal/solver"
	"github.com/galacticcouncil/intent-solver/internal/types"
	"github.com/galacticcouncil/intent-solver/internal/ws"
)

// Runner orchestrates and starts all components.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	wsClient  ws.Client
	signer    signer.Signer
	refresher *snapshot.Refresher
	solver    *solver.Solver[*omnipool.Pool]
}

// New creates a service runner.
func New(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	r := &Runner{
		cfg:    cfg,
		logger: logger,
	}

	s, err := signer.NewFromConfig(&signer.Config{
		PrivateKey:    cfg.Signer.PrivateKey,
		PrivateKeyEnv: cfg.Signer.PrivateKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	r.signer = s
	logger.Info("Signer initialized", "address", s.Address().Hex())

	r.wsClient = ws.NewClient(&ws.Config{
		ServerURL:            cfg.WebSocket.ServerURL,
		APIToken:             cfg.WebSocket.APIToken,
		ReconnectInterval:    cfg.WebSocket.ReconnectInterval,
		MaxReconnectAttempts: cfg.WebSocket.MaxReconnectAttempts,
		HeartbeatInterval:    cfg.WebSocket.HeartbeatInterval,
		ReadTimeout:          cfg.WebSocket.ReadTimeout,
		WriteTimeout:         cfg.WebSocket.WriteTimeout,
	}, logger)

	provider := &snapshot.FileProvider{
		Path:       cfg.Snapshot.Path,
		HubAssetID: types.AssetID(cfg.AMM.HubAssetID),
	}
	r.refresher = snapshot.NewRefresher(provider, cfg.Snapshot.RefreshInterval, logger)

	venue := omnipool.NewVenue(
		types.AssetID(cfg.AMM.PriceDenominator),
		omnipool.FeeFromParts(cfg.AMM.BurnFeePpm),
	)
	r.solver = solver.New[*omnipool.Pool](venue, logger)
	logger.Info("Solver initialized",
		"hubAssetId", cfg.AMM.HubAssetID,
		"priceDenominator", cfg.AMM.PriceDenominator)

	return r, nil
}

// Run runs the service until a signal or context cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting intent solver service",
		"app", r.cfg.App.Name,
		"wsServer", r.cfg.WebSocket.ServerURL)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := r.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start snapshot refresher: %w", err)
	}

	r.wsClient.SetMessageHandler(r.handleMessage)

	r.logger.Info("Connecting to matchmaker feed...")
	if err := r.wsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to feed: %w", err)
	}

	r.logger.Info("Intent solver service started")

	select {
	case sig := <-sigCh:
		r.logger.Info("Received signal, shutting down", "signal", sig)
	case <-ctx.Done():
		r.logger.Info("Context cancelled, shutting down")
	}

	return r.Shutdown()
}

// Shutdown gracefully stops all components.
func (r *Runner) Shutdown() error {
	r.logger.Info("Shutting down intent solver service...")

	if r.wsClient != nil {
		if err := r.wsClient.Close(); err != nil {
			r.logger.Error("Failed to close feed connection", "error", err)
		}
	}
	if r.refresher != nil {
		if err := r.refresher.Stop(); err != nil {
			r.logger.Error("Failed to stop snapshot refresher", "error", err)
		}
	}

	r.logger.Info("Intent solver service stopped")
	return nil
}

// handleMessage dispatches one inbound feed frame.
func (r *Runner) handleMessage(data []byte) error {
	envelope, err := feed.DecodeEnvelope(data)
	if err != nil {
		return err
	}

	switch envelope.Type {
	case feed.TypeIntentBatch:
		return r.handleIntentBatch(envelope)
	case feed.TypeHeartbeat:
		if envelope.Payload.Get("ping").Bool() {
			return r.wsClient.Send(feed.EncodeHeartbeat(false))
		}
		return nil
	case feed.TypeAck:
		ack := feed.DecodeAck(envelope.Payload)
		if ack.Accepted {
			r.logger.Info("Solution accepted", "batchId", ack.BatchID)
		} else {
			r.logger.Warn("Solution rejected", "batchId", ack.BatchID, "reason", ack.Reason)
		}
		return nil
	case feed.TypeError:
		r.logger.Error("Feed error message", "payload", envelope.Payload.Raw)
		return nil
	default:
		r.logger.Debug("Ignoring message", "type", envelope.Type)
		return nil
	}
}

// handleIntentBatch solves one batch and submits the signed solution.
func (r *Runner) handleIntentBatch(envelope feed.Envelope) error {
	batch, err := feed.DecodeIntentBatch(envelope.Payload)
	if err != nil {
		return err
	}

	pool, err := r.refresher.Current()
	if err != nil {
		return fmt.Errorf("no pool state for batch %s: %w", batch.BatchID, err)
	}

	solution := r.solver.Solve(batch.Intents, pool)
	r.logger.Info("Batch solved",
		"batchId", batch.BatchID,
		"intents", len(batch.Intents),
		"resolved", len(solution.ResolvedIntents),
		"trades", len(solution.Trades),
		"score", solution.Score.String())

	sig, err := r.signer.SignSolution(batch.BatchID, &solution)
	if err != nil {
		return fmt.Errorf("failed to sign solution for batch %s: %w", batch.BatchID, err)
	}

	msg, err := feed.EncodeSolution(batch.BatchID, &solution, sig)
	if err != nil {
		return fmt.Errorf("failed to encode solution for batch %s: %w", batch.BatchID, err)
	}

	return r.wsClient.Send(msg)
}
