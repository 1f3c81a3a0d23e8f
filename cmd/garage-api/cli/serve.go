package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/garage-labs/garage-api/internal/adapters/httpapi"
	"github.com/garage-labs/garage-api/internal/app/auth"
	"github.com/garage-labs/garage-api/internal/app/vehicles"
	"github.com/garage-labs/garage-api/internal/platform/metrics"
	"github.com/garage-labs/garage-api/internal/platform/schedule"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  "Start the HTTP server and, unless disabled, the daily usage sweep.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				v.Set("server.port", port)
			}
			if cmd.Flags().Changed("host") {
				v.Set("server.host", host)
			}
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	return cmd
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	app, err := openApplication(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg := app.cfg

	allow, err := auth.ParseAllowList(cfg.Auth.PublicRoutes)
	if err != nil {
		return fmt.Errorf("auth.public_routes: %w", err)
	}
	gate := auth.NewGate(app.tokens, app.stores.Users, auth.DefaultPolicy(), allow)

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	api := httpapi.NewServer(app.users, app.vehicles, app.stores.Idem, app.clock, logger)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware:      httpapi.NewAuthMiddleware(gate, logger),
		Metrics:             metrics.Handler(reg),
		Logger:              logger,
		CORSOrigins:         cfg.Server.CORSOrigins,
		SigninRatePerMinute: cfg.Server.SigninRatePerMinute,
	})

	var runner *schedule.Runner
	if cfg.Sweep.Enabled {
		daily, err := schedule.ParseDaily(cfg.Sweep.At, cfg.Sweep.TimeZone)
		if err != nil {
			return fmt.Errorf("sweep schedule: %w", err)
		}
		sweeper := vehicles.NewSweeper(app.vehicles, logger)
		runner = schedule.NewRunner(daily, app.clock, sweeper.Job, logger)
		runner.Start(ctx)
		logger.Info("usage sweep scheduled", "schedule", daily.String())
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", srv.Addr, "storage", cfg.Storage.Backend, "auth_mode", cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			stop()
			if runner != nil {
				runner.Wait()
			}
			return fmt.Errorf("listen: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if runner != nil {
		runner.Wait()
	}
	return err
}
