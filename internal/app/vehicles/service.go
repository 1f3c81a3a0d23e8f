// Package vehicles owns vehicle registration and the usage state machine:
// at most one of an owner's vehicles is in use at a time.
package vehicles

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/platform/metrics"
	clockport "github.com/garage-labs/garage-api/internal/ports/out/clock"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

// DefaultMaxAttempts bounds optimistic-concurrency retries.
const DefaultMaxAttempts = 5

type Service struct {
	repo vehiclerepo.Repository
	clk  clockport.Clock

	newVehicleID func() domain.VehicleID

	// MaxAttempts bounds re-reads after a version conflict.
	MaxAttempts int
}

func NewService(repo vehiclerepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newVehicleID: func() domain.VehicleID {
			return domain.VehicleID(uuid.NewString())
		},
		MaxAttempts: DefaultMaxAttempts,
	}
}

// UpdateVehicleInput is a full replacement of the client-editable fields plus
// the desired usage flag.
type UpdateVehicleInput struct {
	Fields domain.VehicleFields
	InUse  bool
}

// Register adds a vehicle to owner's set. New vehicles are not in use.
func (s *Service) Register(ctx context.Context, owner domain.UserID, in domain.VehicleFields) (domain.Vehicle, error) {
	created, err := s.RegisterAll(ctx, owner, []domain.VehicleFields{in})
	if err != nil {
		return domain.Vehicle{}, err
	}
	return created[0], nil
}

// ValidateNew checks a batch of vehicles about to be registered: field rules,
// global plate uniqueness and no repeated plate within the batch.
func (s *Service) ValidateNew(ctx context.Context, ins []domain.VehicleFields) error {
	_, err := s.prepare(ctx, ins)
	return err
}

// RegisterAll validates every vehicle before creating any. If a create fails
// part-way, the vehicles already created are removed again.
func (s *Service) RegisterAll(ctx context.Context, owner domain.UserID, ins []domain.VehicleFields) ([]domain.Vehicle, error) {
	fields, err := s.prepare(ctx, ins)
	if err != nil {
		return nil, err
	}

	created := make([]domain.Vehicle, 0, len(fields))
	for _, f := range fields {
		v := domain.Vehicle{
			ID:      s.newVehicleID(),
			OwnerID: owner,
			Version: 1,
		}.WithFields(f)
		if err := s.repo.Create(ctx, v); err != nil {
			for _, c := range created {
				_ = s.repo.Delete(ctx, c.ID)
			}
			if errors.Is(err, vehiclerepo.ErrPlateTaken) {
				return nil, plateTakenError()
			}
			return nil, err
		}
		created = append(created, v)
	}
	return created, nil
}

func (s *Service) prepare(ctx context.Context, ins []domain.VehicleFields) ([]domain.VehicleFields, error) {
	now := s.clk.Now()
	out := make([]domain.VehicleFields, 0, len(ins))
	seen := make(map[string]struct{}, len(ins))
	for _, in := range ins {
		f := in.Normalize()
		if err := f.Validate(now); err != nil {
			return nil, fieldError(err)
		}
		if _, dup := seen[f.LicensePlate]; dup {
			return nil, plateTakenError()
		}
		seen[f.LicensePlate] = struct{}{}
		taken, err := s.repo.ExistsByLicensePlate(ctx, f.LicensePlate, "")
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, plateTakenError()
		}
		out = append(out, f)
	}
	return out, nil
}

// ListMine returns owner's vehicles, most used first, then by model.
func (s *Service) ListMine(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error) {
	return s.repo.ListForOwner(ctx, owner)
}

func (s *Service) GetMine(ctx context.Context, owner domain.UserID, id domain.VehicleID) (domain.Vehicle, error) {
	v, err := s.repo.GetForOwner(ctx, owner, id)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return domain.Vehicle{}, notFoundError()
		}
		return domain.Vehicle{}, err
	}
	return v, nil
}

// Update applies a full replacement of the vehicle, including its usage flag.
func (s *Service) Update(ctx context.Context, owner domain.UserID, id domain.VehicleID, in UpdateVehicleInput) (domain.Vehicle, error) {
	return s.ApplyUsageUpdate(ctx, owner, id, in.InUse, in.Fields)
}

func (s *Service) Delete(ctx context.Context, owner domain.UserID, id domain.VehicleID) error {
	if _, err := s.GetMine(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return notFoundError()
		}
		return err
	}
	return nil
}

// DeleteAllForOwner removes every vehicle of owner and returns how many were removed.
func (s *Service) DeleteAllForOwner(ctx context.Context, owner domain.UserID) (int, error) {
	return s.repo.DeleteByOwner(ctx, owner)
}

func (s *Service) maxAttempts() int {
	if s.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return s.MaxAttempts
}

func conflictExhaustedError() *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeConcurrentUpdate,
		Message: "The vehicle was modified concurrently; please retry.",
	}
}

func retryConflict() {
	metrics.IncrementUsageConflictRetry()
}
