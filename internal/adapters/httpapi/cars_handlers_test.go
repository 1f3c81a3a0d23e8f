package httpapi

import (
	"net/http"
	"testing"
	"time"
)

func TestCars_CRUD(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	_, tok := f.signUp(t, "alice")
	_, bobTok := f.signUp(t, "bob")

	rec := f.do(t, http.MethodPost, "/api/cars", tok, carBody("abc1d23", "Civic", true))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	car := mustDecode[carResponse](t, rec)
	if car.LicensePlate != "ABC1D23" || car.InUse || car.UsageCount != 0 {
		t.Fatalf("created=%+v, new cars start unused", car)
	}

	rec = f.do(t, http.MethodGet, "/api/cars/"+car.ID, tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status=%d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/cars/"+car.ID, bobTok, nil)
	requireError(t, rec, http.StatusNotFound, "NOT_FOUND", "")

	rec = f.do(t, http.MethodPost, "/api/cars", bobTok, carBody("ABC1D23", "Gol", false))
	requireError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR", "License plate already exists")

	rec = f.do(t, http.MethodPost, "/api/cars", tok, map[string]any{"year": 2018, "licensePlate": "XYZ-9999"})
	requireError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR", "Missing fields")

	rec = f.do(t, http.MethodDelete, "/api/cars/"+car.ID, bobTok, nil)
	requireError(t, rec, http.StatusNotFound, "NOT_FOUND", "")
	rec = f.do(t, http.MethodDelete, "/api/cars/"+car.ID, tok, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/cars", tok, nil)
	if got := mustDecode[[]carResponse](t, rec); len(got) != 0 {
		t.Fatalf("cars=%+v", got)
	}
}

func TestCars_UpdateKeepsOneInUse(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	_, tok := f.signUp(t, "carol")

	var ids []string
	for _, b := range []map[string]any{carBody("AAA-1111", "Civic", false), carBody("BBB-2222", "Fit", false)} {
		rec := f.do(t, http.MethodPost, "/api/cars", tok, b)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status=%d", rec.Code)
		}
		ids = append(ids, mustDecode[carResponse](t, rec).ID)
	}

	rec := f.do(t, http.MethodPut, "/api/cars/"+ids[0], tok, carBody("AAA-1111", "Civic", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPut, "/api/cars/"+ids[1], tok, carBody("BBB-2222", "Fit", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/cars", tok, nil)
	cars := mustDecode[[]carResponse](t, rec)
	inUse := 0
	for _, c := range cars {
		if c.InUse {
			inUse++
			if c.ID != ids[1] {
				t.Fatalf("car %s in use, want %s", c.ID, ids[1])
			}
		}
		if c.UsageCount != 1 {
			t.Fatalf("car %s usageCount=%d", c.ID, c.UsageCount)
		}
	}
	if inUse != 1 {
		t.Fatalf("in use=%d, want 1", inUse)
	}

	bad := carBody("BBB-2222", "Fit", true)
	bad["year"] = 3000
	rec = f.do(t, http.MethodPut, "/api/cars/"+ids[1], tok, bad)
	requireError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields")
}

func TestCars_CreateIdempotency(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	_, tok := f.signUp(t, "dave")
	_, otherTok := f.signUp(t, "erin")

	first := f.do(t, http.MethodPost, "/api/cars", tok, carBody("AAA-1111", "Civic", false), "Idempotency-Key", "k-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", first.Code, first.Body.String())
	}
	replay := f.do(t, http.MethodPost, "/api/cars", tok, carBody("aaa-1111", " Civic ", false), "Idempotency-Key", "k-1")
	if replay.Code != http.StatusCreated || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay status=%d headers=%v body=%s", replay.Code, replay.Header(), replay.Body.String())
	}
	if mustDecode[carResponse](t, replay).ID != mustDecode[carResponse](t, first).ID {
		t.Fatalf("replay returned a different car")
	}

	rec := f.do(t, http.MethodPost, "/api/cars", tok, carBody("BBB-2222", "Fit", false), "Idempotency-Key", "k-1")
	requireError(t, rec, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "")

	// Keys are scoped per caller.
	rec = f.do(t, http.MethodPost, "/api/cars", otherTok, carBody("CCC-3333", "Gol", false), "Idempotency-Key", "k-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("other caller status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/cars", tok, nil)
	if got := mustDecode[[]carResponse](t, rec); len(got) != 1 {
		t.Fatalf("cars=%+v, want exactly one", got)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestCars_IdempotencyKeyExpires(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	_, tok := f.signUp(t, "frank")

	first := f.do(t, http.MethodPost, "/api/cars", tok, carBody("AAA-1111", "Civic", false), "Idempotency-Key", "k-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", first.Code, first.Body.String())
	}

	f.clk.Advance(idempotencyRetention + time.Minute)
	rec := f.do(t, http.MethodPost, "/api/signin", "", map[string]any{"login": "frank", "password": "h3ll0"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status=%d body=%s", rec.Code, rec.Body.String())
	}
	tok = mustDecode[signInResponse](t, rec).Token

	// The expired key no longer replays, so the request reaches the service
	// and collides with the car it created the first time.
	rec = f.do(t, http.MethodPost, "/api/cars", tok, carBody("AAA-1111", "Civic", false), "Idempotency-Key", "k-1")
	requireError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR", "License plate already exists")
	if rec.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("expired key was replayed")
	}
}
