package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/minos/pkg/config"
	"mercator-hq/minos/pkg/critics"
	"mercator-hq/minos/pkg/decision"
	"mercator-hq/minos/pkg/telemetry/metrics"
)

var runFlags struct {
	auditTrail string
	logLevel   string
	dryRun     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the decision engine",
	Long: `Start the decision engine with the specified configuration.

The engine opens the precedent store, rebuilds the similarity index,
schedules retention pruning, and serves Prometheus metrics when a metrics
address is configured. It then runs until interrupted.

Examples:
  # Start with default config
  minos run

  # Start with custom config
  minos run --config /etc/minos/config.yaml

  # Record the signed audit trail
  minos run --audit-trail audit.jsonl

  # Validate config without starting
  minos run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.auditTrail, "audit-trail", "", "append signed decision records to this JSONL file")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.LogLevel = runFlags.logLevel
	}
	logger := newLogger(cfg)

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	promRegistry := prometheus.NewRegistry()
	system, err := decision.Build(cfg, &decision.Options{
		AuditTrailPath: runFlags.auditTrail,
	}, promRegistry, logger)
	if err != nil {
		return err
	}
	defer system.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := system.Precedents.RebuildIndex(ctx); err != nil {
		logger.Warn("index rebuild failed", "error", err)
	}

	if err := system.Pruner.Start(); err != nil {
		return fmt.Errorf("start retention pruner: %w", err)
	}

	if cfg.Critics.WatchConfig {
		watcher, err := startCriticWatcher(ctx, system, logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	var metricsServer *http.Server
	if addr := cfg.Telemetry.MetricsAddress; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(promRegistry))
		metricsServer = &http.Server{Addr: addr, Handler: mux}
		go func() {
			logger.Info("metrics server listening", "address", addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("engine started",
		"critics", system.Registry.Len(),
		"storage", cfg.Precedent.Storage.Path,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	return nil
}

// startCriticWatcher hot-reloads critic weights and criticality when the
// config file changes.
func startCriticWatcher(ctx context.Context, system *decision.System, logger *slog.Logger) (*critics.Watcher, error) {
	watcher, err := critics.NewWatcher(&critics.WatcherConfig{Path: cfgFile}, logger.With("component", "watcher"))
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	onReload := func() error {
		fresh, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		for _, d := range fresh.Critics.Definitions {
			if err := system.Registry.UpdateAttributes(d.Name, d.Weight, d.Critical); err != nil {
				logger.Warn("critic attribute reload skipped", "critic", d.Name, "error", err)
			}
		}
		logger.Info("critic attributes reloaded")
		return nil
	}

	if err := watcher.Watch(ctx, onReload); err != nil {
		return nil, fmt.Errorf("start config watcher: %w", err)
	}
	return watcher, nil
}
