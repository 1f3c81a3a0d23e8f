package idempotency

import (
	"context"
	"time"

	"github.com/garage-labs/garage-api/internal/domain"
)

// Key is the value of an Idempotency-Key request header.
type Key string

// Scope is one use of a key: who sent it, and to which route
// (method + path template, e.g. "POST /api/cars").
type Scope struct {
	Key   Key
	Owner domain.UserID
	Route string
}

// Record is the first successful response produced under a Scope.
type Record struct {
	// RequestHash fingerprints the normalized request body. A retry under the
	// same scope with a different hash is a misuse of the key.
	RequestHash string
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store remembers one response per scope so retries can be replayed.
type Store interface {
	// Lookup returns the record saved under scope, treating records created
	// before notBefore as absent.
	Lookup(ctx context.Context, scope Scope, notBefore time.Time) (Record, bool, error)
	// Save stores rec under scope, replacing any earlier record.
	Save(ctx context.Context, scope Scope, rec Record) error
}
