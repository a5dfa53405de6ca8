// Package app owns the application lifecycle. It wires the configured
// dependencies (stores, caches, object storage, notifications), builds the
// pipelines, and runs the selected operating mode until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/skinarb/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// the cleanup functions registered during wiring.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires the dependencies, dispatches to the configured mode, and blocks
// until the context is cancelled or the mode finishes.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "scan":
		return a.ScanMode(ctx, deps)
	case "deals":
		return a.DealsMode(ctx, deps)
	case "once":
		return a.OnceMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	case "report":
		return a.ReportMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
