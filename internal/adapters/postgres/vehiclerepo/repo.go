package vehiclerepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/garage-labs/garage-api/internal/adapters/postgres"
	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

// Repo is a Postgres implementation of vehiclerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const vehicleColumns = `id, owner_id, year, license_plate, model, color, in_use, usage_count, version`

func (r *Repo) Create(ctx context.Context, v domain.Vehicle) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(v.ID))
	if err != nil {
		return fmt.Errorf("invalid vehicle id: %w", err)
	}
	owner, err := uuid.Parse(string(v.OwnerID))
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO vehicles (`+vehicleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		id,
		owner,
		v.Year,
		v.LicensePlate,
		v.Model,
		v.Color,
		v.InUse,
		v.UsageCount,
		v.Version,
	)
	if err != nil {
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
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	if len(vs) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, v := range vs {
			id, err := uuid.Parse(string(v.ID))
			if err != nil {
				return vehiclerepo.ErrNotFound
			}
			ct, err := tx.Exec(ctx, `
				UPDATE vehicles
				SET year = $3,
				    license_plate = $4,
				    model = $5,
				    color = $6,
				    in_use = $7,
				    usage_count = $8,
				    version = version + 1
				WHERE id = $1 AND version = $2
			`,
				id,
				v.Version,
				v.Year,
				v.LicensePlate,
				v.Model,
				v.Color,
				v.InUse,
				v.UsageCount,
			)
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 1 {
				continue
			}
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return vehiclerepo.ErrNotFound
			}
			return vehiclerepo.ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) || errors.Is(err, vehiclerepo.ErrVersionConflict) {
			return err
		}
		return mapWriteError(err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.VehicleID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	vid, err := uuid.Parse(string(id))
	if err != nil {
		return vehiclerepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, vid)
	if err != nil {
		return postgres.Classify(err, vehiclerepo.ErrUnavailable)
	}
	if ct.RowsAffected() == 0 {
		return vehiclerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteByOwner(ctx context.Context, owner domain.UserID) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	oid, err := uuid.Parse(string(owner))
	if err != nil {
		return 0, nil
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE owner_id = $1`, oid)
	if err != nil {
		return 0, postgres.Classify(err, vehiclerepo.ErrUnavailable)
	}
	return int(ct.RowsAffected()), nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	if r.pool == nil {
		return domain.Vehicle{}, errors.New("nil postgres pool")
	}
	vid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return scanOne(r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, vid))
}

func (r *Repo) GetForOwner(ctx context.Context, owner domain.UserID, id domain.VehicleID) (domain.Vehicle, error) {
	if r.pool == nil {
		return domain.Vehicle{}, errors.New("nil postgres pool")
	}
	vid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Vehicle{}, vehiclerepo.ErrNotFound
	}
	oid, err := uuid.Parse(string(owner))
	if err != nil {
		return domain.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return scanOne(r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1 AND owner_id = $2`, vid, oid))
}

func (r *Repo) ListForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error) {
	oid, err := uuid.Parse(string(owner))
	if err != nil {
		return []domain.Vehicle{}, nil
	}
	return r.list(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE owner_id = $1
		ORDER BY usage_count DESC, model ASC, id ASC
	`, oid)
}

func (r *Repo) ListInUseForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error) {
	oid, err := uuid.Parse(string(owner))
	if err != nil {
		return []domain.Vehicle{}, nil
	}
	return r.list(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE owner_id = $1 AND in_use
		ORDER BY id ASC
	`, oid)
}

func (r *Repo) ListInUse(ctx context.Context) ([]domain.Vehicle, error) {
	return r.list(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE in_use ORDER BY id ASC`)
}

func (r *Repo) ExistsByLicensePlate(ctx context.Context, plate string, exclude domain.VehicleID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var excludeID *uuid.UUID
	if id, err := uuid.Parse(string(exclude)); err == nil {
		excludeID = &id
	}
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vehicles
			WHERE license_plate = $1 AND ($2::uuid IS NULL OR id <> $2)
		)
	`, plate, excludeID).Scan(&ok)
	if err != nil {
		return false, postgres.Classify(err, vehiclerepo.ErrUnavailable)
	}
	return ok, nil
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]domain.Vehicle, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, postgres.Classify(err, vehiclerepo.ErrUnavailable)
	}
	defer rows.Close()

	out := make([]domain.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify(err, vehiclerepo.ErrUnavailable)
	}
	return out, nil
}

func scanOne(row pgx.Row) (domain.Vehicle, error) {
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vehicle{}, vehiclerepo.ErrNotFound
		}
		return domain.Vehicle{}, postgres.Classify(err, vehiclerepo.ErrUnavailable)
	}
	return v, nil
}

func scanVehicle(row interface{ Scan(dest ...any) error }) (domain.Vehicle, error) {
	var (
		id, owner uuid.UUID
		v         domain.Vehicle
	)
	if err := row.Scan(
		&id,
		&owner,
		&v.Year,
		&v.LicensePlate,
		&v.Model,
		&v.Color,
		&v.InUse,
		&v.UsageCount,
		&v.Version,
	); err != nil {
		return domain.Vehicle{}, err
	}
	v.ID = domain.VehicleID(id.String())
	v.OwnerID = domain.UserID(owner.String())
	return v, nil
}

func mapWriteError(err error) error {
	if pe, ok := postgres.AsPgError(err); ok {
		switch {
		case pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "vehicles_license_plate_unique":
			return vehiclerepo.ErrPlateTaken
		case pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "vehicles_pkey":
			return vehiclerepo.ErrAlreadyExists
		case pe.Code == postgres.ForeignKeyViolationCode:
			return fmt.Errorf("vehicle owner does not exist: %w", err)
		}
	}
	return postgres.Classify(err, vehiclerepo.ErrUnavailable)
}
