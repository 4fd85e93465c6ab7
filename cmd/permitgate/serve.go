// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/permitgate/permitgate/internal/auth"
	authpg "github.com/permitgate/permitgate/internal/auth/postgres"
	"github.com/permitgate/permitgate/internal/config"
	"github.com/permitgate/permitgate/internal/database"
	"github.com/permitgate/permitgate/internal/httpapi"
	"github.com/permitgate/permitgate/internal/logging"
	"github.com/permitgate/permitgate/internal/observability"
	"github.com/permitgate/permitgate/pkg/errutil"
)

// shutdownTimeout bounds graceful server drains on exit.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the PermitGate HTTP API along with the metrics and health
endpoints. Requires DATABASE_URL (or database-url in the config file).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	defaults := config.Defaults()
	cmd.Flags().String("http-addr", defaults.HTTPAddr, "HTTP API listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().Bool("secure-cookies", defaults.SecureCookies, "mark session cookies Secure (disable for local development)")
	cmd.Flags().Duration("sweep-interval", defaults.SweepInterval, "expired-session sweep interval (0 = disabled)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	logging.SetDefault("permitgate", version, cfg.LogFormat, cfg.LogLevel)
	logger := slog.Default()

	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	users := authpg.NewUserRepository(pool)
	sessionRepo := authpg.NewSessionRepository(pool)

	store, err := auth.NewSessionStore(sessionRepo, users)
	if err != nil {
		return err
	}
	gateway, err := auth.NewGateway(users, store, auth.NewArgon2idHasher(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observability server, readiness gated on the database.
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		metrics = obsServer.Metrics()
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	handler, err := httpapi.NewHandler(gateway, store, metrics, cfg.SecureCookies, logger)
	if err != nil {
		return err
	}
	apiServer, err := httpapi.NewServer(cfg.HTTPAddr, handler, logger)
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "http-api")

	if cfg.SweepInterval > 0 {
		go runSweeper(ctx, store, metrics, cfg.SweepInterval, logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("PermitGate started")
	logger.Info("permitgate ready", "http_addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// runSweeper periodically removes expired sessions. Expired sessions are also
// deleted lazily on validation; this keeps the table from accumulating rows
// for users who never come back.
func runSweeper(ctx context.Context, store *auth.SessionStore, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Sweep(ctx)
			if err != nil {
				errutil.LogError(logger, "session sweep failed", err)
				continue
			}
			if n > 0 {
				logger.Info("swept expired sessions", "count", n)
				if metrics != nil {
					metrics.SessionsSwept.Add(float64(n))
				}
			}
		}
	}
}

// monitorServerErrors cancels the main context when a server reports a fatal
// error, so one failing listener brings the process down cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
