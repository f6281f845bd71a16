package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/galacticcouncil/intent-solver/internal/config"
	"github.com/galacticcouncil/intent-solver/internal/runner"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	logger := setupLogger()

	logger.Info("Starting intent solver", "configPath", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("Config loaded successfully",
		"app", cfg.App.Name,
		"snapshot", cfg.Snapshot.Path)

	r, err := runner.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to create runner", "error", err)
		os.Exit(1)
	}

	if err := r.Run(context.Background()); err != nil {
		logger.Error("Service error", "error", err)
		os.Exit(1)
	}
}

// setupLogger logs to both stdout and logs/solver.log.
func setupLogger() *slog.Logger {
	if err := os.MkdirAll("logs", 0755); err != nil {
		slog.Error("Failed to create logs directory", "error", err)
	}

	logFile, err := os.OpenFile("logs/solver.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	return slog.New(slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
