package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(handler *Handler, chatHandler *ChatHandler, health *HealthHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware(logger))
	r.Use(CORSMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	// Health and metrics endpoints are registered BEFORE the rate limiter
	// so Kubernetes probes and Prometheus scrapes are never rejected under load.
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Realtime chat holds connections open for the life of the viewing
	// session, so it bypasses the in-flight request cap too.
	r.Get("/ws/events/{eventID}", chatHandler.Websocket)

	r.Group(func(r chi.Router) {
		rl := NewRateLimiter(1000, logger)
		r.Use(rl.Middleware)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/search", handler.Search)
			r.Post("/search", handler.Search)
			r.Get("/search/trending", handler.Trending)

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/{media}/search", handler.CatalogSearch)
				r.Get("/{media}/trending", handler.CatalogTrending)
				r.Get("/{media}/popular", handler.CatalogPopular)
				r.Get("/{media}/top-rated", handler.CatalogTopRated)
				r.Get("/{media}/genres", handler.CatalogGenres)
				r.Get("/{media}/discover", handler.CatalogDiscover)
				r.Get("/{media}/{id}", handler.CatalogDetail)
				r.Get("/{media}/{id}/credits", handler.CatalogCredits)
				r.Get("/{media}/{id}/videos", handler.CatalogVideos)
				r.Get("/{media}/{id}/similar", handler.CatalogSimilar)
				r.Get("/tv/{id}/season/{season}", handler.SeasonEpisodes)
			})

			r.Route("/player", func(r chi.Router) {
				r.Get("/movie/{id}", handler.MoviePlayer)
				r.Get("/tv/{id}/{season}/{episode}", handler.TVPlayer)
				r.Post("/sports", handler.SportsPlayer)
			})

			r.Route("/sports", func(r chi.Router) {
				r.Get("/", handler.SportsList)
				r.Get("/matches", handler.SportsMatches)
				r.Get("/{sport}/matches", handler.SportMatches)
				r.Get("/streams/{source}/{id}", handler.MatchStreams)
			})

			r.Route("/events/{eventID}", func(r chi.Router) {
				r.Get("/messages", chatHandler.History)
				r.Post("/messages", chatHandler.PostMessage)
				r.Get("/viewers", chatHandler.Viewers)
			})
		})
	})

	return r
}
