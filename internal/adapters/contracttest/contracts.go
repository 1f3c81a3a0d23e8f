package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garage-labs/garage-api/internal/domain"
	idempotencyport "github.com/garage-labs/garage-api/internal/ports/out/idempotency"
	userrepoport "github.com/garage-labs/garage-api/internal/ports/out/userrepo"
	vehiclerepoport "github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

type CleanupFunc = func()

// Stores groups repositories that share one backing store, so vehicles can
// reference users under foreign-key constraints.
type Stores struct {
	Users    userrepoport.Repository
	Vehicles vehiclerepoport.Repository
}

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type StoresFactory func(t *testing.T) (Stores, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scope := idempotencyport.Scope{
		Key:   "k-1",
		Owner: domain.UserID(uuid.NewString()),
		Route: "POST /api/cars",
	}
	if _, ok, err := store.Lookup(ctx, scope, time.Time{}); err != nil || ok {
		t.Fatalf("Lookup before Save: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		RequestHash: "hash-abc",
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"v-1"}`),
		CreatedAt:   created,
	}
	if err := store.Save(ctx, scope, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := store.Lookup(ctx, scope, created.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if got.RequestHash != "hash-abc" || got.StatusCode != 201 || got.ContentType != "application/json" || string(got.Body) != `{"id":"v-1"}` {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt=%v want %v", got.CreatedAt, created)
	}

	// Records older than the window are absent.
	if _, ok, err := store.Lookup(ctx, scope, created.Add(time.Second)); err != nil || ok {
		t.Fatalf("Lookup past retention: ok=%v err=%v", ok, err)
	}

	// Save replaces.
	rec2 := rec
	rec2.RequestHash = "hash-def"
	rec2.CreatedAt = created.Add(time.Minute)
	if err := store.Save(ctx, scope, rec2); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, ok, err = store.Lookup(ctx, scope, created)
	if err != nil || !ok || got.RequestHash != "hash-def" {
		t.Fatalf("expected replaced record, got ok=%v err=%v hash=%q", ok, err, got.RequestHash)
	}

	// Scope is key + owner + route.
	for name, other := range map[string]idempotencyport.Scope{
		"key":   {Key: "k-2", Owner: scope.Owner, Route: scope.Route},
		"owner": {Key: scope.Key, Owner: domain.UserID(uuid.NewString()), Route: scope.Route},
		"route": {Key: scope.Key, Owner: scope.Owner, Route: "PUT /api/cars/{id}"},
	} {
		if _, ok, err := store.Lookup(ctx, other, time.Time{}); err != nil || ok {
			t.Fatalf("Lookup with different %s: ok=%v err=%v", name, ok, err)
		}
	}
}

// NewUser returns a valid user with unique login and email derived from tag.
func NewUser(tag string) domain.User {
	now := time.Unix(1000, 0).UTC()
	return domain.User{
		ID:           domain.UserID(uuid.NewString()),
		FirstName:    "First " + tag,
		LastName:     "Last",
		Email:        tag + "@example.com",
		Birthday:     time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		Login:        tag,
		PasswordHash: "hash-" + tag,
		Phone:        "988887777",
		CreatedAt:    now,
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	alice := NewUser("alice")
	if err := repo.Create(ctx, alice); err != nil {
		t.Fatalf("Create alice: %v", err)
	}
	got, err := repo.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Login != "alice" || got.Email != alice.Email || got.PasswordHash != alice.PasswordHash || !got.Birthday.Equal(alice.Birthday) {
		t.Fatalf("GetByID=%+v, want %+v", got, alice)
	}
	if got.LastLogin != nil {
		t.Fatalf("expected nil LastLogin, got %v", got.LastLogin)
	}
	if _, err := repo.GetByLogin(ctx, "alice"); err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if _, err := repo.GetByLogin(ctx, "nobody"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByLogin(missing) err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID(missing) err=%v, want ErrNotFound", err)
	}

	if ok, err := repo.ExistsByLogin(ctx, "alice"); err != nil || !ok {
		t.Fatalf("ExistsByLogin(alice)=%v err=%v", ok, err)
	}
	if ok, err := repo.ExistsByLogin(ctx, "bob"); err != nil || ok {
		t.Fatalf("ExistsByLogin(bob)=%v err=%v", ok, err)
	}
	if ok, err := repo.ExistsByEmail(ctx, alice.Email); err != nil || !ok {
		t.Fatalf("ExistsByEmail(alice)=%v err=%v", ok, err)
	}

	// Uniqueness.
	dupLogin := NewUser("alice")
	dupLogin.Email = "other@example.com"
	if err := repo.Create(ctx, dupLogin); !errors.Is(err, userrepoport.ErrLoginTaken) {
		t.Fatalf("Create dup login err=%v, want ErrLoginTaken", err)
	}
	dupEmail := NewUser("carol")
	dupEmail.Email = alice.Email
	if err := repo.Create(ctx, dupEmail); !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("Create dup email err=%v, want ErrEmailTaken", err)
	}

	bob := NewUser("bob")
	if err := repo.Create(ctx, bob); err != nil {
		t.Fatalf("Create bob: %v", err)
	}

	// Update.
	last := time.Unix(5000, 0).UTC()
	bob.FirstName = "Robert"
	bob.LastLogin = &last
	if err := repo.Update(ctx, bob); err != nil {
		t.Fatalf("Update bob: %v", err)
	}
	got, err = repo.GetByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("GetByID bob: %v", err)
	}
	if got.FirstName != "Robert" || got.LastLogin == nil || !got.LastLogin.Equal(last) {
		t.Fatalf("after update: %+v", got)
	}
	stealEmail := bob
	stealEmail.Email = alice.Email
	if err := repo.Update(ctx, stealEmail); !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("Update stolen email err=%v, want ErrEmailTaken", err)
	}
	missing := NewUser("ghost")
	if err := repo.Update(ctx, missing); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("Update(missing) err=%v, want ErrNotFound", err)
	}

	// Deterministic list ordering by login.
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Login != "alice" || list[1].Login != "bob" {
		t.Fatalf("List order unexpected: %+v", list)
	}

	if err := repo.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, alice.ID); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("Delete again err=%v, want ErrNotFound", err)
	}
	if ok, err := repo.ExistsByLogin(ctx, "alice"); err != nil || ok {
		t.Fatalf("ExistsByLogin after delete=%v err=%v", ok, err)
	}
}

func RunVehicleRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	stores, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	users, repo := stores.Users, stores.Vehicles

	alice := NewUser("valice")
	bob := NewUser("vbob")
	for _, u := range []domain.User{alice, bob} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create user %s: %v", u.Login, err)
		}
	}

	newVehicle := func(owner domain.UserID, plate, model string, usage int) domain.Vehicle {
		return domain.Vehicle{
			ID:           domain.VehicleID(uuid.NewString()),
			OwnerID:      owner,
			Year:         2020,
			LicensePlate: plate,
			Model:        model,
			Color:        "Black",
			UsageCount:   usage,
			Version:      1,
		}
	}

	a1 := newVehicle(alice.ID, "AAA-0001", "Uno", 2)
	a2 := newVehicle(alice.ID, "AAA0B02", "Civic", 5)
	a3 := newVehicle(alice.ID, "AAA-0003", "Argo", 2)
	b1 := newVehicle(bob.ID, "BBB-0001", "Kwid", 0)
	for _, v := range []domain.Vehicle{a1, a2, a3, b1} {
		if err := repo.Create(ctx, v); err != nil {
			t.Fatalf("Create %s: %v", v.LicensePlate, err)
		}
	}

	dup := newVehicle(bob.ID, "AAA-0001", "Gol", 0)
	if err := repo.Create(ctx, dup); !errors.Is(err, vehiclerepoport.ErrPlateTaken) {
		t.Fatalf("Create dup plate err=%v, want ErrPlateTaken", err)
	}

	got, err := repo.GetByID(ctx, a1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.OwnerID != alice.ID || got.LicensePlate != "AAA-0001" || got.Version != 1 || got.InUse {
		t.Fatalf("GetByID=%+v", got)
	}
	if _, err := repo.GetForOwner(ctx, alice.ID, a1.ID); err != nil {
		t.Fatalf("GetForOwner(owner): %v", err)
	}
	if _, err := repo.GetForOwner(ctx, bob.ID, a1.ID); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("GetForOwner(other owner) err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(ctx, domain.VehicleID(uuid.NewString())); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("GetByID(missing) err=%v, want ErrNotFound", err)
	}

	// Ordering: usage desc, then model asc.
	list, err := repo.ListForOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if len(list) != 3 || list[0].ID != a2.ID || list[1].ID != a3.ID || list[2].ID != a1.ID {
		t.Fatalf("ListForOwner order unexpected: %+v", list)
	}

	if ok, err := repo.ExistsByLicensePlate(ctx, "BBB-0001", ""); err != nil || !ok {
		t.Fatalf("ExistsByLicensePlate(BBB-0001)=%v err=%v", ok, err)
	}
	if ok, err := repo.ExistsByLicensePlate(ctx, "BBB-0001", b1.ID); err != nil || ok {
		t.Fatalf("ExistsByLicensePlate excluding self=%v err=%v", ok, err)
	}

	// Single save bumps version.
	a1.InUse = true
	a1.UsageCount++
	if err := repo.Save(ctx, a1); err != nil {
		t.Fatalf("Save a1: %v", err)
	}
	got, _ = repo.GetByID(ctx, a1.ID)
	if !got.InUse || got.UsageCount != 3 || got.Version != 2 {
		t.Fatalf("after Save: %+v", got)
	}
	// Stale version.
	if err := repo.Save(ctx, a1); !errors.Is(err, vehiclerepoport.ErrVersionConflict) {
		t.Fatalf("Save stale err=%v, want ErrVersionConflict", err)
	}
	a1 = got

	// Batch with a stale member writes nothing.
	a2.InUse = true
	staleA1 := a1
	staleA1.Version = 1
	staleA1.InUse = false
	if err := repo.SaveAll(ctx, []domain.Vehicle{a2, staleA1}); !errors.Is(err, vehiclerepoport.ErrVersionConflict) {
		t.Fatalf("SaveAll stale err=%v, want ErrVersionConflict", err)
	}
	got, _ = repo.GetByID(ctx, a2.ID)
	if got.InUse || got.Version != 1 {
		t.Fatalf("SaveAll conflict must not write a2: %+v", got)
	}

	// Batch with unknown vehicle writes nothing.
	ghost := newVehicle(alice.ID, "ZZZ-9999", "Ghost", 0)
	if err := repo.SaveAll(ctx, []domain.Vehicle{a2, ghost}); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("SaveAll unknown err=%v, want ErrNotFound", err)
	}

	// Plate collision through save.
	clash := b1
	clash.LicensePlate = "AAA-0003"
	if err := repo.Save(ctx, clash); !errors.Is(err, vehiclerepoport.ErrPlateTaken) {
		t.Fatalf("Save clashing plate err=%v, want ErrPlateTaken", err)
	}

	// Valid batch.
	a1.InUse = false
	b1.InUse = true
	if err := repo.SaveAll(ctx, []domain.Vehicle{a1, a2, b1}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := repo.SaveAll(ctx, nil); err != nil {
		t.Fatalf("SaveAll(empty): %v", err)
	}

	inUse, err := repo.ListInUse(ctx)
	if err != nil {
		t.Fatalf("ListInUse: %v", err)
	}
	if len(inUse) != 2 {
		t.Fatalf("ListInUse len=%d, want 2: %+v", len(inUse), inUse)
	}
	for _, v := range inUse {
		if v.ID != a2.ID && v.ID != b1.ID {
			t.Fatalf("ListInUse unexpected vehicle %+v", v)
		}
		if v.Version != 2 {
			t.Fatalf("ListInUse version=%d, want 2 for %s", v.Version, v.LicensePlate)
		}
	}
	mine, err := repo.ListInUseForOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListInUseForOwner: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != a2.ID {
		t.Fatalf("ListInUseForOwner=%+v, want [a2]", mine)
	}

	// Deletes.
	if err := repo.Delete(ctx, b1.ID); err != nil {
		t.Fatalf("Delete b1: %v", err)
	}
	if err := repo.Delete(ctx, b1.ID); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("Delete again err=%v, want ErrNotFound", err)
	}
	n, err := repo.DeleteByOwner(ctx, alice.ID)
	if err != nil || n != 3 {
		t.Fatalf("DeleteByOwner=%d err=%v, want 3", n, err)
	}
	left, err := repo.ListForOwner(ctx, alice.ID)
	if err != nil || len(left) != 0 {
		t.Fatalf("ListForOwner after delete=%+v err=%v", left, err)
	}
}
