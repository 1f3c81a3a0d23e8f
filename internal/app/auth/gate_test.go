package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	memclock "github.com/garage-labs/garage-api/internal/adapters/memory/clock"
	memuserrepo "github.com/garage-labs/garage-api/internal/adapters/memory/userrepo"
	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/platform/auth/token"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	gate   *Gate
	tokens *token.Service
	clock  *memclock.ManualClock
	users  *memuserrepo.Repo
	ana    domain.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	clk := memclock.NewManualClock(t0)
	tokens, err := token.NewService("s3cret", time.Minute, clk)
	if err != nil {
		t.Fatalf("token.NewService() err=%v", err)
	}
	users := memuserrepo.NewRepo()
	ana := domain.User{ID: "u-ana", Login: "ana", Email: "ana@example.com", FirstName: "Ana"}
	if err := users.Create(context.Background(), ana); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	return fixture{
		gate:   NewGate(tokens, users, DefaultPolicy(), DefaultAllowList()),
		tokens: tokens,
		clock:  clk,
		users:  users,
		ana:    ana,
	}
}

func (f fixture) bearer(t *testing.T, u domain.User) string {
	t.Helper()
	raw, err := f.tokens.Issue(token.ClaimsFor(u))
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}
	return "Bearer " + raw
}

func TestGate_AllowListBypassesEvenMalformedCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out, err := f.gate.Authenticate(context.Background(), Request{
		Method:        http.MethodPost,
		Path:          "/api/signin",
		Authorization: "Bearer garbage",
		Intent:        IntentWrite,
	})
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if out.State != StateBypassed || out.Principal.IsAuthenticated() {
		t.Fatalf("Authenticate()=%+v, want bypassed without principal", out)
	}
}

func TestGate_AllowListIsExact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, req := range []Request{
		{Method: http.MethodGet, Path: "/api/users"},
		{Method: http.MethodPost, Path: "/api/users/"},
		{Method: http.MethodPost, Path: "/api/signin/extra"},
	} {
		out, err := f.gate.Authenticate(context.Background(), req)
		if err != nil {
			t.Fatalf("Authenticate(%+v) err=%v", req, err)
		}
		if out.State != StateUnauthenticated {
			t.Fatalf("Authenticate(%+v) state=%v, want unauthenticated", req, out.State)
		}
	}
}

func TestGate_NoOrMalformedHeaderIsUnauthenticated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   ", "Token xyz", "Bearer not-a-jwt"} {
		out, err := f.gate.Authenticate(context.Background(), Request{
			Method:        http.MethodGet,
			Path:          "/api/cars",
			Authorization: header,
			Intent:        IntentRead,
		})
		if err != nil {
			t.Fatalf("Authenticate(%q) err=%v", header, err)
		}
		if out.State != StateUnauthenticated || out.Principal.IsAuthenticated() {
			t.Fatalf("Authenticate(%q)=%+v, want unauthenticated", header, out)
		}
	}
}

func TestGate_ReadIntentBuildsLightPrincipalWithoutLookup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	header := f.bearer(t, f.ana)

	// The weak tier trusts claims alone, so a deleted user still reads.
	if err := f.users.Delete(context.Background(), f.ana.ID); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}

	out, err := f.gate.Authenticate(context.Background(), Request{
		Method: http.MethodGet, Path: "/api/cars", Authorization: header, Intent: IntentRead,
	})
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if out.State != StateLightAuthenticated {
		t.Fatalf("state=%v, want light_authenticated", out.State)
	}
	if out.Principal.Kind() != domain.PrincipalLight || out.Principal.SubjectID() != "u-ana" || out.Principal.Login() != "ana" {
		t.Fatalf("principal=%+v", out.Principal)
	}
	if _, ok := out.Principal.Full(); ok {
		t.Fatalf("light principal exposes a full record")
	}
}

func TestGate_ReadIntentWithExpiredTokenIsUnauthenticated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	header := f.bearer(t, f.ana)
	f.clock.Advance(61 * time.Second)

	out, err := f.gate.Authenticate(context.Background(), Request{
		Method: http.MethodGet, Path: "/api/cars", Authorization: header, Intent: IntentRead,
	})
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if out.State != StateUnauthenticated {
		t.Fatalf("state=%v, want unauthenticated", out.State)
	}
}

func TestGate_WriteIntentLoadsFullPrincipal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out, err := f.gate.Authenticate(context.Background(), Request{
		Method: http.MethodPost, Path: "/api/cars", Authorization: f.bearer(t, f.ana), Intent: IntentWrite,
	})
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if out.State != StateFullyAuthenticated {
		t.Fatalf("state=%v, want fully_authenticated", out.State)
	}
	u, ok := out.Principal.Full()
	if !ok || u.Email != "ana@example.com" {
		t.Fatalf("Full()=%+v ok=%v", u, ok)
	}
}

func TestGate_WriteIntentForDeletedUserIsUnauthenticated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	header := f.bearer(t, f.ana)
	if err := f.users.Delete(context.Background(), f.ana.ID); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}

	out, err := f.gate.Authenticate(context.Background(), Request{
		Method: http.MethodPut, Path: "/api/cars/x", Authorization: header, Intent: IntentWrite,
	})
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if out.State != StateUnauthenticated || out.Principal.IsAuthenticated() {
		t.Fatalf("Authenticate()=%+v, want unauthenticated", out)
	}
}

type failingLookup struct{ err error }

func (l failingLookup) GetByLogin(ctx context.Context, login string) (domain.User, error) {
	return domain.User{}, l.err
}

func TestGate_StoreOutagePropagates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	gate := NewGate(f.tokens, failingLookup{err: userrepo.ErrUnavailable}, DefaultPolicy(), DefaultAllowList())

	out, err := gate.Authenticate(context.Background(), Request{
		Method: http.MethodDelete, Path: "/api/cars/x", Authorization: f.bearer(t, f.ana), Intent: IntentWrite,
	})
	if !errors.Is(err, userrepo.ErrUnavailable) {
		t.Fatalf("Authenticate() err=%v, want ErrUnavailable", err)
	}
	if out.Principal.IsAuthenticated() {
		t.Fatalf("principal installed despite store failure")
	}
}

func TestGate_PolicyCanRequireStrongReads(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	gate := NewGate(f.tokens, f.users, Policy{IntentRead: TierStrong}, DefaultAllowList())
	out, err := gate.Authenticate(context.Background(), Request{
		Method: http.MethodGet, Path: "/api/me", Authorization: f.bearer(t, f.ana), Intent: IntentRead,
	})
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if out.State != StateFullyAuthenticated {
		t.Fatalf("state=%v, want fully_authenticated", out.State)
	}
}

func TestBearerToken_SchemeIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	if raw, ok := bearerToken("bearer abc"); !ok || raw != "abc" {
		t.Fatalf("bearerToken(lowercase)=%q ok=%v", raw, ok)
	}
}
