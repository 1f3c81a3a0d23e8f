// Package auth decides, per request, who the caller is.
//
// The gate is transport-neutral: the HTTP adapter feeds it the method, path,
// Authorization header value and the request's Intent, and installs the
// returned principal in the request context.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/platform/auth/token"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

// Intent classifies what a request wants to do.
type Intent int

const (
	IntentRead Intent = iota
	IntentWrite
)

func (i Intent) String() string {
	if i == IntentWrite {
		return "write"
	}
	return "read"
}

// Tier is the amount of verification a request receives.
type Tier int

const (
	// TierWeak trusts verified token claims without touching the store.
	TierWeak Tier = iota
	// TierStrong reloads the user from the store on every request.
	TierStrong
)

// Policy maps intents to tiers. Intents missing from the map get TierStrong.
type Policy map[Intent]Tier

// DefaultPolicy verifies reads weakly and writes strongly.
func DefaultPolicy() Policy {
	return Policy{IntentRead: TierWeak, IntentWrite: TierStrong}
}

func (p Policy) tierFor(i Intent) Tier {
	if t, ok := p[i]; ok {
		return t
	}
	return TierStrong
}

// State is the terminal state of one request's authentication.
type State int

const (
	StateNoContext State = iota
	StateBypassed
	StateUnauthenticated
	StateLightAuthenticated
	StateFullyAuthenticated
)

func (s State) String() string {
	switch s {
	case StateBypassed:
		return "bypassed"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLightAuthenticated:
		return "light_authenticated"
	case StateFullyAuthenticated:
		return "fully_authenticated"
	default:
		return "no_context"
	}
}

// Verifier checks a raw token. token.Service satisfies it.
type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// UserLookup loads the user behind a verified subject. userrepo.Repository satisfies it.
type UserLookup interface {
	GetByLogin(ctx context.Context, login string) (domain.User, error)
}

// Request is the transport-neutral view of an incoming request.
type Request struct {
	Method string
	Path   string
	// Authorization is the raw header value, empty when absent.
	Authorization string
	Intent        Intent
}

// Outcome is the gate's decision. Principal is the zero value unless State
// is StateLightAuthenticated or StateFullyAuthenticated.
type Outcome struct {
	State     State
	Principal domain.Principal
}

// Gate authenticates requests.
type Gate struct {
	verifier Verifier
	users    UserLookup
	policy   Policy
	allow    AllowList
}

func NewGate(verifier Verifier, users UserLookup, policy Policy, allow AllowList) *Gate {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Gate{verifier: verifier, users: users, policy: policy, allow: allow}
}

// Authenticate never fails for authentication reasons: bad or missing
// credentials yield StateUnauthenticated. The only error is a store failure
// other than "not found" during a strong-tier lookup.
func (g *Gate) Authenticate(ctx context.Context, req Request) (Outcome, error) {
	if g.allow.Allows(req.Method, req.Path) {
		return Outcome{State: StateBypassed}, nil
	}

	raw, ok := bearerToken(req.Authorization)
	if !ok {
		return Outcome{State: StateUnauthenticated}, nil
	}
	claims, err := g.verifier.Verify(raw)
	if err != nil {
		return Outcome{State: StateUnauthenticated}, nil
	}

	if g.policy.tierFor(req.Intent) == TierWeak {
		return Outcome{
			State:     StateLightAuthenticated,
			Principal: domain.LightPrincipal(claims.UserID, claims.Subject),
		}, nil
	}

	u, err := g.users.GetByLogin(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return Outcome{State: StateUnauthenticated}, nil
		}
		return Outcome{State: StateUnauthenticated}, err
	}
	return Outcome{State: StateFullyAuthenticated, Principal: domain.FullPrincipal(u)}, nil
}

const bearerPrefix = "Bearer "

// bearerToken extracts the credential from an Authorization header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return "", false
	}
	return raw, true
}
