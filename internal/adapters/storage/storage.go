// Package storage opens the configured persistence backend and hands back
// the repositories the application needs.
package storage

import (
	"context"
	"fmt"

	memidempotency "github.com/garage-labs/garage-api/internal/adapters/memory/idempotency"
	memuserrepo "github.com/garage-labs/garage-api/internal/adapters/memory/userrepo"
	memvehiclerepo "github.com/garage-labs/garage-api/internal/adapters/memory/vehiclerepo"
	"github.com/garage-labs/garage-api/internal/adapters/postgres"
	pgidempotency "github.com/garage-labs/garage-api/internal/adapters/postgres/idempotency"
	pguserrepo "github.com/garage-labs/garage-api/internal/adapters/postgres/userrepo"
	pgvehiclerepo "github.com/garage-labs/garage-api/internal/adapters/postgres/vehiclerepo"
	"github.com/garage-labs/garage-api/internal/adapters/sqlite"
	sqliteidempotency "github.com/garage-labs/garage-api/internal/adapters/sqlite/idempotency"
	sqliteuserrepo "github.com/garage-labs/garage-api/internal/adapters/sqlite/userrepo"
	sqlitevehiclerepo "github.com/garage-labs/garage-api/internal/adapters/sqlite/vehiclerepo"
	"github.com/garage-labs/garage-api/internal/platform/config"
	"github.com/garage-labs/garage-api/internal/ports/out/idempotency"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Users    userrepo.Repository
	Vehicles vehiclerepo.Repository
	Idem     idempotency.Store

	close func()
}

// Close releases the backend's connections. It is safe to call on a memory backend.
func (s Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

func Memory() Stores {
	return Stores{
		Users:    memuserrepo.NewRepo(),
		Vehicles: memvehiclerepo.NewRepo(),
		Idem:     memidempotency.NewStore(),
	}
}

// Open connects to the backend named by cfg.Backend and applies migrations.
func Open(ctx context.Context, cfg config.StorageConfig) (Stores, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return Memory(), nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return Stores{}, fmt.Errorf("open sqlite: %w", err)
		}
		return Stores{
			Users:    sqliteuserrepo.NewRepo(db),
			Vehicles: sqlitevehiclerepo.NewRepo(db),
			Idem:     sqliteidempotency.NewStore(db),
			close:    func() { _ = db.Close() },
		}, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.MaxConns})
		if err != nil {
			return Stores{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return Stores{}, fmt.Errorf("migrate postgres: %w", err)
		}
		return Stores{
			Users:    pguserrepo.NewRepo(pool),
			Vehicles: pgvehiclerepo.NewRepo(pool),
			Idem:     pgidempotency.NewStore(pool),
			close:    pool.Close,
		}, nil

	default:
		return Stores{}, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
