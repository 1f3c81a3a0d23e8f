package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/garage-labs/garage-api/internal/adapters/storage"
	"github.com/garage-labs/garage-api/internal/app/users"
	"github.com/garage-labs/garage-api/internal/app/vehicles"
	"github.com/garage-labs/garage-api/internal/platform/auth/token"
	platformclock "github.com/garage-labs/garage-api/internal/platform/clock"
	"github.com/garage-labs/garage-api/internal/platform/config"
	"github.com/garage-labs/garage-api/internal/platform/password"
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if devMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// application holds the services every subcommand builds from the same config.
type application struct {
	cfg      config.Config
	logger   *slog.Logger
	clock    platformclock.SystemClock
	stores   storage.Stores
	tokens   *token.Service
	vehicles *vehicles.Service
	users    *users.Service
}

func (a *application) Close() { a.stores.Close() }

func openApplication(ctx context.Context, logger *slog.Logger) (*application, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth.Mode == config.AuthModeDev {
		logger.Warn("auth mode is dev; do not use in production")
	}

	clk := platformclock.NewSystemClock()
	tokens, err := token.NewService(cfg.Auth.TokenSecret, token.ParseLifetime(cfg.Auth.TokenLifetime), clk)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	stores, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("storage ready", "backend", cfg.Storage.Backend)

	vehicleSvc := vehicles.NewService(stores.Vehicles, clk)
	userSvc := users.NewService(stores.Users, vehicleSvc, password.NewBcrypt(cfg.Auth.BcryptCost), tokens, clk)

	return &application{
		cfg:      cfg,
		logger:   logger,
		clock:    clk,
		stores:   stores,
		tokens:   tokens,
		vehicles: vehicleSvc,
		users:    userSvc,
	}, nil
}
