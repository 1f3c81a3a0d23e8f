package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	memclock "github.com/garage-labs/garage-api/internal/adapters/memory/clock"
	memidempotency "github.com/garage-labs/garage-api/internal/adapters/memory/idempotency"
	memuserrepo "github.com/garage-labs/garage-api/internal/adapters/memory/userrepo"
	memvehiclerepo "github.com/garage-labs/garage-api/internal/adapters/memory/vehiclerepo"
	"github.com/garage-labs/garage-api/internal/app/auth"
	"github.com/garage-labs/garage-api/internal/app/users"
	"github.com/garage-labs/garage-api/internal/app/vehicles"
	"github.com/garage-labs/garage-api/internal/platform/auth/token"
	"github.com/garage-labs/garage-api/internal/platform/password"
)

type apiFixture struct {
	h        http.Handler
	tokens   *token.Service
	users    *memuserrepo.Repo
	vehicles *memvehiclerepo.Repo
	clk      *memclock.ManualClock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	tokens, err := token.NewService("handler-test-secret", time.Hour, clk)
	if err != nil {
		t.Fatalf("token.NewService err=%v", err)
	}
	userRepo := memuserrepo.NewRepo()
	vehicleRepo := memvehiclerepo.NewRepo()

	vehicleSvc := vehicles.NewService(vehicleRepo, clk)
	userSvc := users.NewService(userRepo, vehicleSvc, password.NewBcrypt(bcrypt.MinCost), tokens, clk)
	api := NewServer(userSvc, vehicleSvc, memidempotency.NewStore(), clk, quietLogger())

	gate := auth.NewGate(tokens, userRepo, auth.DefaultPolicy(), auth.DefaultAllowList())
	h := NewRouter(api, RouterOptions{
		AuthMiddleware: NewAuthMiddleware(gate, quietLogger()),
		Logger:         quietLogger(),
	})
	return apiFixture{h: h, tokens: tokens, users: userRepo, vehicles: vehicleRepo, clk: clk}
}

func (f apiFixture) do(t *testing.T, method, path, bearer string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func newUserBody(login string, cars ...map[string]any) map[string]any {
	body := map[string]any{
		"firstName": "Hello",
		"lastName":  "World",
		"email":     login + "@example.com",
		"birthday":  "1990-05-01",
		"login":     login,
		"password":  "h3ll0",
		"phone":     "988887777",
	}
	if len(cars) > 0 {
		body["cars"] = cars
	}
	return body
}

func carBody(plate, model string, inUse bool) map[string]any {
	return map[string]any{
		"year":         2018,
		"licensePlate": plate,
		"model":        model,
		"color":        "White",
		"inUse":        inUse,
	}
}

// signUp registers login and signs in, returning the user and a bearer token.
func (f apiFixture) signUp(t *testing.T, login string) (userResponse, string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/users", "", newUserBody(login))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/api/signin", "", map[string]any{"login": login, "password": "h3ll0"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status=%d body=%s", rec.Code, rec.Body.String())
	}
	res := mustDecode[signInResponse](t, rec)
	return res.User, res.Token
}

func mustDecode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, rec.Body.String())
	}
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode, wantMessage string) {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, wantStatus, rec.Body.String())
	}
	er := mustDecode[errorResponse](t, rec)
	if er.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q", er.Error.Code, wantCode)
	}
	if wantMessage != "" && er.Error.Message != wantMessage {
		t.Fatalf("error.message=%q want=%q", er.Error.Message, wantMessage)
	}
}
