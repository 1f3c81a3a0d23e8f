package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	memclock "github.com/garage-labs/garage-api/internal/adapters/memory/clock"
	"github.com/garage-labs/garage-api/internal/domain"
)

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, secret string, lifetime time.Duration) (*Service, *memclock.ManualClock) {
	t.Helper()
	clk := memclock.NewManualClock(t0)
	svc, err := NewService(secret, lifetime, clk)
	if err != nil {
		t.Fatalf("NewService() err=%v", err)
	}
	return svc, clk
}

func TestService_IssueThenVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "s3cret", time.Hour)
	raw, err := svc.Issue(ClaimsFor(domain.User{ID: "u-1", Login: "ana", FirstName: "Ana", LastName: "Souza"}))
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}

	c, err := svc.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() err=%v", err)
	}
	if c.Subject != "ana" || c.UserID != "u-1" || c.FirstName != "Ana" || c.LastName != "Souza" {
		t.Fatalf("Verify() claims=%+v", c)
	}
	if !c.IssuedAt.Equal(t0) || !c.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("Verify() iat=%v exp=%v", c.IssuedAt, c.ExpiresAt)
	}

	sub, err := svc.Subject(raw)
	if err != nil || sub != "ana" {
		t.Fatalf("Subject()=%q err=%v", sub, err)
	}
}

func TestService_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	svc, clk := newService(t, "s3cret", 60*time.Second)
	raw, err := svc.Issue(Claims{Subject: "ana"})
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}

	clk.Set(t0.Add(59 * time.Second))
	if _, err := svc.Verify(raw); err != nil {
		t.Fatalf("Verify() at 59s err=%v, want nil", err)
	}

	clk.Set(t0.Add(60 * time.Second))
	if _, err := svc.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() at exp err=%v, want ErrInvalidToken", err)
	}

	clk.Set(t0.Add(61 * time.Second))
	if _, err := svc.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() at 61s err=%v, want ErrInvalidToken", err)
	}
}

func TestService_RejectsOtherSecret(t *testing.T) {
	t.Parallel()

	issuer, _ := newService(t, "secret-a", time.Hour)
	verifier, _ := newService(t, "secret-b", time.Hour)

	raw, err := issuer.Issue(Claims{Subject: "ana"})
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}
	if _, err := verifier.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() err=%v, want ErrInvalidToken", err)
	}
}

func TestService_RejectsForeignIssuer(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "s3cret", time.Hour)
	claims := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "ana",
		IssuedAt:  jwt.NewNumericDate(t0),
		ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
	}}
	key := []byte(base64.StdEncoding.EncodeToString([]byte("s3cret")))
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() err=%v", err)
	}
	if _, err := svc.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() err=%v, want ErrInvalidToken", err)
	}
}

func TestService_RejectsTamperedAndGarbage(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "s3cret", time.Hour)
	raw, err := svc.Issue(Claims{Subject: "ana"})
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}
	parts := strings.Split(raw, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	for _, in := range []string{"", "not-a-jwt", tampered, raw + "x"} {
		if _, err := svc.Verify(in); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) err=%v, want ErrInvalidToken", in, err)
		}
	}
}

func TestService_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "s3cret", time.Hour)
	claims := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() err=%v", err)
	}
	if _, err := svc.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() err=%v, want ErrInvalidToken", err)
	}
}

func TestNewService_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewService("", time.Hour, memclock.NewManualClock(t0)); err == nil {
		t.Fatalf("NewService(empty secret) err=nil, want error")
	}
}

func TestNewService_NonPositiveLifetimeFallsBack(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "s3cret", 0)
	if svc.Lifetime() != DefaultLifetime {
		t.Fatalf("Lifetime()=%v, want %v", svc.Lifetime(), DefaultLifetime)
	}
}

func TestIssue_RequiresSubject(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "s3cret", time.Hour)
	_, err := svc.Issue(Claims{})
	var se *SigningError
	if !errors.As(err, &se) {
		t.Fatalf("Issue(no subject) err=%v, want *SigningError", err)
	}
}

func TestParseLifetime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "", want: time.Hour},
		{in: "3600000", want: time.Hour},
		{in: "60000", want: time.Minute},
		{in: "90m", want: 90 * time.Minute},
		{in: "abc", want: time.Hour},
		{in: "0", want: time.Hour},
		{in: "-5", want: time.Hour},
		{in: "-5m", want: time.Hour},
	}
	for _, tc := range tests {
		if got := ParseLifetime(tc.in); got != tc.want {
			t.Fatalf("ParseLifetime(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}
