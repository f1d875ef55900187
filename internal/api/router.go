// Package api exposes the search, history and watchlist operations over
// HTTP using the chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds middleware settings.
type RouterConfig struct {
	// RateLimitRequests per RateLimitWindow per client IP; zero disables.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter wires the handler's endpoints:
//
//	GET    /search?query=
//	GET    /history
//	DELETE /history
//	GET    /watchlist
//	POST   /watchlist
//	DELETE /watchlist
//	GET    /healthz
//	GET    /metrics
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			window := cfg.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, window))
		}

		r.Get("/search", h.Search)

		r.Get("/history", h.ListHistory)
		r.Delete("/history", h.ClearHistory)

		r.Get("/watchlist", h.ListWatchlist)
		r.Post("/watchlist", h.AddWatchlist)
		r.Delete("/watchlist", h.RemoveWatchlist)
	})

	return r
}
