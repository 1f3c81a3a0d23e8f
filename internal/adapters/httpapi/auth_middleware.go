package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/garage-labs/garage-api/internal/app/auth"
	"github.com/garage-labs/garage-api/internal/platform/metrics"
)

// IntentFor maps an HTTP verb to the gate's trust intent. Safe verbs read;
// everything else writes.
func IntentFor(method string) auth.Intent {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return auth.IntentRead
	default:
		return auth.IntentWrite
	}
}

// NewAuthMiddleware runs the authentication gate for every request.
//
// It never rejects a request for bad credentials: the request continues
// without a principal and downstream authorization decides. Allow-listed
// requests pass through untouched. A storage failure while loading the
// caller is answered with 503.
func NewAuthMiddleware(gate *auth.Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out, err := gate.Authenticate(r.Context(), auth.Request{
				Method:        r.Method,
				Path:          r.URL.Path,
				Authorization: r.Header.Get("Authorization"),
				Intent:        IntentFor(r.Method),
			})
			if err != nil {
				metrics.IncrementAuthOutcome("error")
				writeAppError(w, r, logger, err)
				return
			}
			metrics.IncrementAuthOutcome(out.State.String())

			if out.State == auth.StateBypassed {
				next.ServeHTTP(w, r)
				return
			}
			ctx, slot := withPrincipalSlot(r.Context())
			slot.p = out.Principal
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePrincipal rejects requests that reached it without a principal.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
