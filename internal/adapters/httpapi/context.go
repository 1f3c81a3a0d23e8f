package httpapi

import (
	"context"

	"github.com/garage-labs/garage-api/internal/domain"
)

type principalKey struct{}

// principalSlot is installed fresh for every authenticated-path request and
// filled at most once by the auth middleware.
type principalSlot struct {
	p domain.Principal
}

func withPrincipalSlot(ctx context.Context) (context.Context, *principalSlot) {
	slot := &principalSlot{}
	return context.WithValue(ctx, principalKey{}, slot), slot
}

// WithPrincipal returns a context carrying p. Mostly useful in tests.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	ctx, slot := withPrincipalSlot(ctx)
	slot.p = p
	return ctx
}

func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	slot, ok := ctx.Value(principalKey{}).(*principalSlot)
	if !ok || slot == nil || !slot.p.IsAuthenticated() {
		return domain.Principal{}, false
	}
	return slot.p, true
}
