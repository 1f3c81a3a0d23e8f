package idempotency

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/garage-labs/garage-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[idempotency.Scope]idempotency.Record
}

func NewStore() *Store {
	return &Store{
		m: make(map[idempotency.Scope]idempotency.Record),
	}
}

func (s *Store) Lookup(ctx context.Context, scope idempotency.Scope, notBefore time.Time) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[scope]
	if !ok || rec.CreatedAt.Before(notBefore) {
		return idempotency.Record{}, false, nil
	}
	rec.Body = slices.Clone(rec.Body)
	return rec, true, nil
}

func (s *Store) Save(ctx context.Context, scope idempotency.Scope, rec idempotency.Record) error {
	_ = ctx
	rec.Body = slices.Clone(rec.Body)
	rec.CreatedAt = rec.CreatedAt.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[scope] = rec
	return nil
}
