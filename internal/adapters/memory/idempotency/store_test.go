package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/garage-labs/garage-api/internal/ports/out/idempotency"
)

func TestStore_LookupIsolatesOwners(t *testing.T) {
	t.Parallel()

	s := NewStore()
	scope := idempotency.Scope{Key: "k1", Owner: "u-1", Route: "POST /api/cars"}
	if err := s.Save(context.Background(), scope, idempotency.Record{StatusCode: 201, CreatedAt: time.Unix(100, 0)}); err != nil {
		t.Fatalf("Save() err=%v", err)
	}
	other := scope
	other.Owner = "u-2"
	if _, ok, err := s.Lookup(context.Background(), other, time.Time{}); err != nil || ok {
		t.Fatalf("Lookup(other owner) ok=%v err=%v, want miss", ok, err)
	}
}

func TestStore_LookupReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	scope := idempotency.Scope{Key: "k1", Owner: "u-1", Route: "POST /api/cars"}
	if err := s.Save(context.Background(), scope, idempotency.Record{Body: []byte(`{"id":"v-1"}`), CreatedAt: time.Unix(100, 0)}); err != nil {
		t.Fatalf("Save() err=%v", err)
	}
	got, _, _ := s.Lookup(context.Background(), scope, time.Time{})
	got.Body[0] = 'X'

	again, ok, err := s.Lookup(context.Background(), scope, time.Time{})
	if err != nil || !ok {
		t.Fatalf("Lookup() ok=%v err=%v", ok, err)
	}
	if string(again.Body) != `{"id":"v-1"}` {
		t.Fatalf("stored body mutated through a returned record: %q", again.Body)
	}
}
