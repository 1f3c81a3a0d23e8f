package vehiclerepo

import (
	"context"

	"github.com/garage-labs/garage-api/internal/domain"
)

// Repository provides access to persisted vehicles.
//
// Saves are optimistic: the Version of each vehicle passed to Save/SaveAll
// must equal the stored version, and a successful save stores Version+1.
// SaveAll is all-or-nothing.
//
// Result ordering expectations:
// - ListForOwner orders by UsageCount descending, then Model ascending, then ID.
// - ListInUse and ListInUseForOwner order by ID.
type Repository interface {
	Create(ctx context.Context, v domain.Vehicle) error
	Save(ctx context.Context, v domain.Vehicle) error
	SaveAll(ctx context.Context, vs []domain.Vehicle) error
	Delete(ctx context.Context, id domain.VehicleID) error
	DeleteByOwner(ctx context.Context, owner domain.UserID) (int, error)

	GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error)
	// GetForOwner returns ErrNotFound when the vehicle exists but belongs to someone else.
	GetForOwner(ctx context.Context, owner domain.UserID, id domain.VehicleID) (domain.Vehicle, error)

	ListForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error)
	ListInUseForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error)
	ListInUse(ctx context.Context) ([]domain.Vehicle, error)

	// ExistsByLicensePlate checks all vehicles of all owners, ignoring exclude.
	ExistsByLicensePlate(ctx context.Context, plate string, exclude domain.VehicleID) (bool, error)
}
