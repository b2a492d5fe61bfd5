package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/tiffin-tracker/internal/config"
	"github.com/tiffin-tracker/internal/transport/http/handler"
	appmiddleware "github.com/tiffin-tracker/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(deps.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Deny
	if deps.Verifier != nil {
		authMw = appmiddleware.Auth(deps.Verifier)
	}

	// 5 requests/second, burst of 10, on the token-authenticated reply routes.
	replyRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(deps.Correlation)
	dashH := handler.NewDashboardHandler(deps.History, deps.Settings)

	r.Get("/health", healthH.Health)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (reminder token is the credential) ────────────────
		r.With(replyRL.Limit).Post("/notifications/respond", notifH.Respond)
		r.With(replyRL.Limit).Post("/dashboard/update-from-notification", notifH.Respond)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/dashboard/data", dashH.Data)
			r.Post("/dashboard/update-tiffin", dashH.UpdateTiffin)
			r.Get("/dashboard/settings", dashH.GetSettings)
			r.Post("/dashboard/settings", dashH.UpdateSettings)
			r.Put("/dashboard/settings", dashH.UpdateSettings)
			r.Post("/dashboard/save-subscription", dashH.SaveSubscription)
		})
	})

	return r
}
