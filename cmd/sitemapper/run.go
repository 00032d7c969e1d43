package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/transport"
)

// metricsReadHeaderTimeout protects the metrics endpoint from slow clients.
const metricsReadHeaderTimeout = 10 * time.Second

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep stored sites fresh until interrupted",
		Long: `Run adds the configured domains and then periodically crawls every stored
site that is stale, at most max_capacity at a time.

A site is stale when its last crawl is older than refresh_period, when it
failed more than problem_retry ago, or when a crawl never finished. Sites
whose refresh is disabled are left alone.

Prometheus metrics are served on --metrics-addr when it is set.

Examples:
  # Refresh stored sites every minute
  sitemapper run

  # Expose metrics and sweep every 5 minutes
  sitemapper run --metrics-addr :9090 --interval 5m`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().String("metrics-addr", "",
		"Listen address of the /metrics endpoint (default: from configuration)")
	cmd.Flags().Duration("interval", 0,
		"Interval between refresh sweeps (default: from configuration)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		cfg.MetricsAddr = v
	}
	if v, _ := cmd.Flags().GetDuration("interval"); v > 0 {
		cfg.SweepInterval = v
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ProxyAddress != "" {
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
			return fmt.Errorf("proxy %s is not usable: %w", cfg.ProxyAddress, err)
		}
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	for _, domain := range cfg.Domains {
		if _, err := a.engine.GetSite(ctx, domain, false, 0, true); err != nil {
			a.logger.Error("failed to add site", "domain", domain, "error", err)
		}
	}

	var server *http.Server
	serverErr := make(chan error, 1)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
		a.logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	policy := a.engine.Policy()
	a.logger.Info("refresh loop started",
		"interval", cfg.SweepInterval,
		"capacity", cfg.MaxCapacity,
		"refresh_period", policy.RefreshPeriod,
		"problem_retry", policy.ProblemRetry,
		"stuck_retry", policy.StuckRetry,
	)
	runErr := make(chan error, 1)
	go func() {
		runErr <- a.engine.Run(ctx, cfg.SweepInterval)
	}()

	var result error
	select {
	case result = <-runErr:
	case err := <-serverErr:
		result = fmt.Errorf("metrics server failed: %w", err)
		stop()
		<-runErr
	}
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("failed to stop metrics server", "error", err)
		}
	}
	return errors.Join(result, a.close(shutdownCtx))
}
