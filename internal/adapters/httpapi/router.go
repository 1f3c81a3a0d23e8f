package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

type RouterOptions struct {
	// AuthMiddleware runs the authentication gate for every /api request.
	// When nil, requests carry no principal.
	AuthMiddleware func(http.Handler) http.Handler
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler

	Logger              *slog.Logger
	CORSOrigins         []string
	SigninRatePerMinute int
}

// NewRouter constructs the API HTTP router.
func NewRouter(api *Server, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	// Infra endpoints sit outside the gate.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		signin := r.With()
		if opts.SigninRatePerMinute > 0 {
			signin = r.With(httprate.LimitByIP(opts.SigninRatePerMinute, time.Minute))
		}
		signin.Post("/signin", api.SignIn)

		r.Post("/users", api.CreateUser)
		r.Get("/users", api.ListUsers)
		r.Get("/users/{id}", api.GetUser)

		r.Group(func(r chi.Router) {
			r.Use(RequirePrincipal)

			r.Put("/users/{id}", api.UpdateUser)
			r.Delete("/users/{id}", api.DeleteUser)

			r.Get("/me", api.Me)

			r.Post("/cars", api.CreateCar)
			r.Get("/cars", api.ListCars)
			r.Get("/cars/{id}", api.GetCar)
			r.Put("/cars/{id}", api.UpdateCar)
			r.Delete("/cars/{id}", api.DeleteCar)
		})
	})
	return r
}
