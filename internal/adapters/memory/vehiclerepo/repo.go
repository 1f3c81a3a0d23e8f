package vehiclerepo

import (
	"context"
	"sort"
	"sync"

	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

// Repo is an in-memory implementation of vehiclerepo.Repository.
// It is safe for concurrent use; SaveAll holds the write lock for the whole batch.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.VehicleID]domain.Vehicle
	idByPlate map[string]domain.VehicleID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.VehicleID]domain.Vehicle),
		idByPlate: make(map[string]domain.VehicleID),
	}
}

func (r *Repo) Create(ctx context.Context, v domain.Vehicle) error {
	_ = ctx
	if v.ID == "" {
		return vehiclerepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[v.ID]; ok {
		return vehiclerepo.ErrAlreadyExists
	}
	if _, ok := r.idByPlate[v.LicensePlate]; ok {
		return vehiclerepo.ErrPlateTaken
	}
	r.byID[v.ID] = v
	r.idByPlate[v.LicensePlate] = v.ID
	return nil
}

func (r *Repo) Save(ctx context.Context, v domain.Vehicle) error {
	return r.SaveAll(ctx, []domain.Vehicle{v})
}

func (r *Repo) SaveAll(ctx context.Context, vs []domain.Vehicle) error {
	_ = ctx
	if len(vs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate the whole batch before touching anything.
	plates := make(map[string]domain.VehicleID, len(r.idByPlate))
	for p, id := range r.idByPlate {
		plates[p] = id
	}
	for _, v := range vs {
		cur, ok := r.byID[v.ID]
		if !ok {
			return vehiclerepo.ErrNotFound
		}
		if cur.Version != v.Version {
			return vehiclerepo.ErrVersionConflict
		}
		if cur.LicensePlate != v.LicensePlate {
			delete(plates, cur.LicensePlate)
		}
	}
	for _, v := range vs {
		if id, ok := plates[v.LicensePlate]; ok && id != v.ID {
			return vehiclerepo.ErrPlateTaken
		}
		plates[v.LicensePlate] = v.ID
	}

	for _, v := range vs {
		v.Version++
		r.byID[v.ID] = v
	}
	r.idByPlate = plates
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.VehicleID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byID[id]
	if !ok {
		return vehiclerepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByPlate, v.LicensePlate)
	return nil
}

func (r *Repo) DeleteByOwner(ctx context.Context, owner domain.UserID) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, v := range r.byID {
		if v.OwnerID != owner {
			continue
		}
		delete(r.byID, id)
		delete(r.idByPlate, v.LicensePlate)
		n++
	}
	return n, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	if !ok {
		return domain.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) GetForOwner(ctx context.Context, owner domain.UserID, id domain.VehicleID) (domain.Vehicle, error) {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Vehicle{}, err
	}
	if v.OwnerID != owner {
		return domain.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) ListForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error) {
	out := r.filter(ctx, func(v domain.Vehicle) bool { return v.OwnerID == owner })
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) ListInUseForOwner(ctx context.Context, owner domain.UserID) ([]domain.Vehicle, error) {
	out := r.filter(ctx, func(v domain.Vehicle) bool { return v.InUse && v.OwnerID == owner })
	sortByID(out)
	return out, nil
}

func (r *Repo) ListInUse(ctx context.Context) ([]domain.Vehicle, error) {
	out := r.filter(ctx, func(v domain.Vehicle) bool { return v.InUse })
	sortByID(out)
	return out, nil
}

func (r *Repo) ExistsByLicensePlate(ctx context.Context, plate string, exclude domain.VehicleID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByPlate[plate]
	return ok && id != exclude, nil
}

func (r *Repo) filter(ctx context.Context, keep func(domain.Vehicle) bool) []domain.Vehicle {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Vehicle, 0)
	for _, v := range r.byID {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortByID(vs []domain.Vehicle) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
}
