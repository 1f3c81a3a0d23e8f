package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/garage-labs/garage-api/internal/adapters/httpapi"
	memclock "github.com/garage-labs/garage-api/internal/adapters/memory/clock"
	pgidempotency "github.com/garage-labs/garage-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/garage-labs/garage-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/garage-labs/garage-api/internal/adapters/postgres/userrepo"
	pgvehiclerepo "github.com/garage-labs/garage-api/internal/adapters/postgres/vehiclerepo"
	"github.com/garage-labs/garage-api/internal/adapters/storage"
	"github.com/garage-labs/garage-api/internal/app/auth"
	"github.com/garage-labs/garage-api/internal/app/users"
	"github.com/garage-labs/garage-api/internal/app/vehicles"
	"github.com/garage-labs/garage-api/internal/platform/auth/token"
	"github.com/garage-labs/garage-api/internal/platform/config"
	"github.com/garage-labs/garage-api/internal/platform/password"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendSQLite   backend = "sqlite"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "local":
		return []backend{backendMemory, backendSQLite}
	case "memory":
		return []backend{backendMemory}
	case "sqlite":
		return []backend{backendSQLite}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendSQLite, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|sqlite|postgres|local|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock
	sweeper *vehicles.Sweeper
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var stores storage.Stores
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		stores = storage.Stores{
			Users:    pguserrepo.NewRepo(pool),
			Vehicles: pgvehiclerepo.NewRepo(pool),
			Idem:     pgidempotency.NewStore(pool),
		}
	case backendSQLite, backendMemory:
		s, err := storage.Open(context.Background(), config.StorageConfig{Backend: string(b)})
		if err != nil {
			t.Fatalf("open %s: %v", b, err)
		}
		t.Cleanup(s.Close)
		stores = s
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	tokens, err := token.NewService("itest-secret", time.Hour, clk)
	if err != nil {
		t.Fatalf("token.NewService: %v", err)
	}
	vehicleSvc := vehicles.NewService(stores.Vehicles, clk)
	userSvc := users.NewService(stores.Users, vehicleSvc, password.NewBcrypt(bcrypt.MinCost), tokens, clk)
	api := httpapi.NewServer(userSvc, vehicleSvc, stores.Idem, clk, logger)

	gate := auth.NewGate(tokens, stores.Users, auth.DefaultPolicy(), auth.DefaultAllowList())
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(gate, logger),
		Logger:         logger,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clk:     clk,
		sweeper: vehicles.NewSweeper(vehicleSvc, logger),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, bearer string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}
