// Package api exposes the admin HTTP surface: watch management, previews,
// history, and live credential/webhook updates.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/kellervogt/restocker/internal/api/handler"
	"github.com/kellervogt/restocker/internal/config"
	"github.com/kellervogt/restocker/internal/notify"
	"github.com/kellervogt/restocker/internal/upstream"
	"github.com/kellervogt/restocker/internal/watch"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(mon *watch.Monitor, creds *upstream.Credentials, sink *notify.Webhook, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := handler.New(mon, creds, sink, logger)

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/preview", h.PreviewProduct)

		r.Route("/watches", func(r chi.Router) {
			r.Get("/", h.ListWatches)
			r.Post("/", h.AddWatch)
			r.Delete("/{key}", h.RemoveWatch)
			r.Put("/{key}/sizes", h.UpdateWatchSizes)
			r.Delete("/{key}/notifications", h.ResetNotifications)
		})

		r.Get("/history", h.ListHistory)
		r.Delete("/history", h.ClearHistory)

		r.Put("/credentials", h.UpdateCredentials)
		r.Put("/webhook", h.UpdateWebhook)
	})

	return r
}
