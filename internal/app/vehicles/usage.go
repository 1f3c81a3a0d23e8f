package vehicles

import (
	"context"
	"errors"

	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

// ApplyUsageUpdate replaces the vehicle's editable fields and sets its usage
// flag. Setting a vehicle in use releases every other in-use vehicle of the
// same owner in the same atomic save.
//
// The batch also carries the owner's untouched vehicles so their versions
// guard the save: a concurrent writer that put a sibling in use forces a
// re-read instead of leaving two vehicles in use.
func (s *Service) ApplyUsageUpdate(ctx context.Context, owner domain.UserID, id domain.VehicleID, targetInUse bool, in domain.VehicleFields) (domain.Vehicle, error) {
	fields := in.Normalize()
	if err := fields.Validate(s.clk.Now()); err != nil {
		return domain.Vehicle{}, fieldError(err)
	}

	attempts := s.maxAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		current, err := s.GetMine(ctx, owner, id)
		if err != nil {
			return domain.Vehicle{}, err
		}

		taken, err := s.repo.ExistsByLicensePlate(ctx, fields.LicensePlate, id)
		if err != nil {
			return domain.Vehicle{}, err
		}
		if taken {
			return domain.Vehicle{}, plateTakenError()
		}

		updated := current.WithFields(fields)
		if targetInUse && !current.InUse {
			updated.UsageCount++
		}
		updated.InUse = targetInUse

		batch := []domain.Vehicle{updated}
		if targetInUse {
			others, err := s.repo.ListForOwner(ctx, owner)
			if err != nil {
				return domain.Vehicle{}, err
			}
			for _, o := range others {
				if o.ID == id {
					continue
				}
				o.InUse = false
				batch = append(batch, o)
			}
		}

		err = s.repo.SaveAll(ctx, batch)
		switch {
		case err == nil:
			updated.Version++
			return updated, nil
		case errors.Is(err, vehiclerepo.ErrVersionConflict):
			if attempt < attempts {
				retryConflict()
			}
			continue
		case errors.Is(err, vehiclerepo.ErrPlateTaken):
			return domain.Vehicle{}, plateTakenError()
		case errors.Is(err, vehiclerepo.ErrNotFound):
			return domain.Vehicle{}, notFoundError()
		default:
			return domain.Vehicle{}, err
		}
	}
	return domain.Vehicle{}, conflictExhaustedError()
}
