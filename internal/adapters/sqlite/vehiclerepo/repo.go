package vehiclerepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/garage-labs/garage-api/internal/adapters/sqlite"
	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

// Repo is a SQLite implementation of vehiclerepo.Repository.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// vehicleRow maps 1:1 to the vehicles table.
type vehicleRow struct {
	ID           string `db:"id"`
	OwnerID      string `db:"owner_id"`
	Year         int    `db:"year"`
	LicensePlate string `db:"license_plate"`
	Model        string `db:"model"`
	Color        string `db:"color"`
	InUse        bool   `db:"in_use"`
	UsageCount   int    `db:"usage_count"`
	Version      int64  `db:"version"`
}

func rowFromVehicle(v domain.Vehicle) vehicleRow {
	return vehicleRow{
		ID:           string(v.ID),
		OwnerID:      string(v.OwnerID),
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
		Model:        v.Model,
		Color:        v.Color,
		InUse:        v.InUse,
		UsageCount:   v.UsageCount,
		Version:      v.Version,
	}
}

func (r vehicleRow) toDomain() domain.Vehicle {
	return domain.Vehicle{
		ID:           domain.VehicleID(r.ID),
		OwnerID:      domain.UserID(r.OwnerID),
		Year:         r.Year,
		LicensePlate: r.LicensePlate,
		Model:        r.Model,
		Color:        r.Color,
		InUse:        r.InUse,
		UsageCount:   r.UsageCount,
		Version:      r.Version,
	}
}

func (r *Repo) Create(ctx context.Context, v domain.Vehicle) error {
	const q = `INSERT INTO vehicles
		(id, owner_id, year, license_plate, model, color, in_use, usage_count, version)
		VALUES
		(:id, :owner_id, :year, :license_plate, :model, :color, :in_use, :usage_count, :version)`

	if _, err := r.db.NamedExecContext(ctx, q, rowFromVehicle(v)); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, v domain.Vehicle) error {
	return r.SaveAll(ctx, []domain.Vehicle{v})
}

// SaveAll writes the batch in one transaction. Each row is guarded by its
// version; the first miss rolls back everything.
func (r *Repo) SaveAll(ctx context.Context, vs []domain.Vehicle) error {
	if len(vs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return sqlite.Classify(err, vehiclerepo.ErrUnavailable)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE vehicles SET
		year = :year, license_plate = :license_plate, model = :model, color = :color,
		in_use = :in_use, usage_count = :usage_count, version = version + 1
		WHERE id = :id AND version = :version`

	for _, v := range vs {
		res, err := tx.NamedExecContext(ctx, q, rowFromVehicle(v))
		if err != nil {
			return mapWriteError(err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			continue
		}
		var exists bool
		if err := tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = ?)", string(v.ID)); err != nil {
			return sqlite.Classify(err, vehiclerepo.ErrUnavailable)
		}
		if !exists {
			return vehiclerepo.ErrNotFound
		}
		return vehiclerepo.ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vehicle batch: %w", sqlite.Classify(err, vehiclerepo.ErrUnavailable))
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.VehicleID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM vehicles WHERE id = ?", string(id))
	if err != nil {
		return sqlite.Classify(err, vehiclerepo.ErrUnavailable)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return vehiclerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteByOwner(ctx context.Context, owner domain.UserID) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM vehicles WHERE owner_id = ?", string(owner))
	if err != nil {
		return 0, sqlite.Classify(err, vehiclerepo.ErrUnavailable)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	return r.getOne(ctx, "SELECT * FROM vehicles WHERE id = ?", string(id))
}

func (r *Repo) GetForOwner(ctx context.Context, owner domain.UserID, id domain.VehicleID) (domain.Vehicle, error) {
	return r.getOne(ctx, "SELECT * FROM vehicles WHERE id = ? AND owner_id = ?", string(id), string(owner))
}

func (r *Repo) getOne(ctx context.Context, q string, args ...any) (domain.Vehicle, error) {
	var row vehicleRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Vehicle{}, vehiclerepo.ErrNotFound
		}
		return domain.Vehicle{}, sqlite.Classify(err, vehiclerepo.ErrUnavailable)
	}
	return row.toDomain(), nil
}

func (r *Repo) ListForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error) {
	return r.list(ctx, "SELECT * FROM vehicles WHERE owner_id = ? ORDER BY usage_count DESC, model ASC, id ASC", string(owner))
}

func (r *Repo) ListInUseForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error) {
	return r.list(ctx, "SELECT * FROM vehicles WHERE owner_id = ? AND in_use = 1 ORDER BY id", string(owner))
}

func (r *Repo) ListInUse(ctx context.Context) ([]domain.Vehicle, error) {
	return r.list(ctx, "SELECT * FROM vehicles WHERE in_use = 1 ORDER BY id")
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]domain.Vehicle, error) {
	var rows []vehicleRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, sqlite.Classify(err, vehiclerepo.ErrUnavailable)
	}
	out := make([]domain.Vehicle, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *Repo) ExistsByLicensePlate(ctx context.Context, plate string, exclude domain.VehicleID) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		"SELECT EXISTS (SELECT 1 FROM vehicles WHERE license_plate = ? AND id <> ?)",
		plate, string(exclude))
	if err != nil {
		return false, sqlite.Classify(err, vehiclerepo.ErrUnavailable)
	}
	return ok, nil
}

func mapWriteError(err error) error {
	switch {
	case sqlite.UniqueViolation(err, "vehicles", "license_plate"):
		return vehiclerepo.ErrPlateTaken
	case sqlite.UniqueViolation(err, "vehicles", "id"):
		return vehiclerepo.ErrAlreadyExists
	}
	return sqlite.Classify(err, vehiclerepo.ErrUnavailable)
}
