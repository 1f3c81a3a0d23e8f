// Package token issues and verifies the signed bearer tokens handed out at
// sign-in.
//
// Tokens are HS256 JWTs with issuer "garage-api". The subject is the user's
// login; the "id", "firstName" and "lastName" claims carry profile data.
package token

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garage-labs/garage-api/internal/domain"
	clockport "github.com/garage-labs/garage-api/internal/ports/out/clock"
)

// Issuer is stamped into every token and required on verification.
const Issuer = "garage-api"

// DefaultLifetime applies when no usable lifetime is configured.
const DefaultLifetime = time.Hour

// ErrInvalidToken is returned for every verification failure: bad signature,
// wrong issuer, expired, malformed. Callers cannot and should not tell them apart.
var ErrInvalidToken = errors.New("invalid token")

// SigningError reports that a token could not be produced.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return "sign token: " + e.Err.Error() }

func (e *SigningError) Unwrap() error { return e.Err }

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	UserID    domain.UserID
	FirstName string
	LastName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsFor builds the claims issued for u.
func ClaimsFor(u domain.User) Claims {
	return Claims{Subject: u.Login, UserID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

type jwtClaims struct {
	UserID    string `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies tokens. It is safe for concurrent use.
type Service struct {
	key      []byte
	lifetime time.Duration
	clock    clockport.Clock
	parser   *jwt.Parser
}

// NewService derives the signing key from secret once. A non-positive
// lifetime falls back to DefaultLifetime.
func NewService(secret string, lifetime time.Duration, clk clockport.Clock) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if clk == nil {
		return nil, errors.New("clock is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	s := &Service{
		key:      []byte(base64.StdEncoding.EncodeToString([]byte(secret))),
		lifetime: lifetime,
		clock:    clk,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clk.Now),
	)
	return s, nil
}

// Lifetime returns the effective token lifetime.
func (s *Service) Lifetime() time.Duration { return s.lifetime }

// Issue signs a token for c.Subject valid from now until now+lifetime.
// IssuedAt and ExpiresAt on c are ignored.
func (s *Service) Issue(c Claims) (string, error) {
	if c.Subject == "" {
		return "", &SigningError{Err: errors.New("subject is required")}
	}
	now := s.clock.Now()
	claims := jwtClaims{
		UserID:    string(c.UserID),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (s *Service) Verify(raw string) (Claims, error) {
	var claims jwtClaims
	tok, err := s.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{
		Subject:   claims.Subject,
		UserID:    domain.UserID(claims.UserID),
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Subject verifies raw and returns only its subject.
func (s *Service) Subject(raw string) (string, error) {
	c, err := s.Verify(raw)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// ParseLifetime reads a configured lifetime. It accepts a Go duration
// ("90m") or a bare integer number of milliseconds ("3600000"). Empty,
// unparseable and non-positive values yield DefaultLifetime.
func ParseLifetime(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLifetime
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms <= 0 {
			return DefaultLifetime
		}
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return DefaultLifetime
	}
	return d
}
