package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/YuppyChen/ai-images-creator/internal/http/handlers"
	"github.com/YuppyChen/ai-images-creator/internal/infra"
	"github.com/YuppyChen/ai-images-creator/internal/middleware"
)

// NewRouter assembles the chi router with the ambient middleware chain and
// the authenticated API surface.
func NewRouter(app *handlers.App, cfg *infra.Config, logger zerolog.Logger, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Locale(cfg.DefaultLocale, lookup))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))

		r.Route("/v1/generations", func(r chi.Router) {
			r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).
				Post("/", app.GenerationsCreate)
			r.Get("/{task_id}", app.GenerationOutcome)
		})

		r.Route("/v1/me", func(r chi.Router) {
			r.Get("/credits", app.MeCredits)
			r.Get("/history", app.MeHistory)
		})
	})

	return r
}
