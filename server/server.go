// Package server is the HTTP boundary: routing, parameter validation,
// output formatting, and the mapping from client-core errors to transport
// responses. The remote-client core itself lives in the client, session and
// cache packages.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/fanwave/fanwave/cache"
	"github.com/fanwave/fanwave/client"
	"github.com/fanwave/fanwave/internal/config"
	"github.com/fanwave/fanwave/session"
)

type Server struct {
	config  *config.Config
	client  *client.Client
	session *session.Session
	store   *cache.Store
	router  chi.Router
}

// New wires the boundary around an already-constructed client core. The
// server owns none of its collaborators.
func New(cfg *config.Config, cl *client.Client, sess *session.Session, store *cache.Store) *Server {
	s := &Server{
		config:  cfg,
		client:  cl,
		session: sess,
		store:   store,
	}
	s.router = s.routes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.RequestIDMiddleware)
	r.Use(s.LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         86400,
	}))
	r.Use(s.MetricsMiddleware)

	r.Get(RouteHealthz, s.HealthzHandler())
	r.Handle(RouteMetrics, promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/communities", s.CommunitiesHandler())
		r.Get("/community/{communityID}/posts", s.PostsHandler())
		r.Get("/community/{communityID}/artists", s.ArtistsHandler())
		r.Get("/post/{postID}", s.PostHandler())
		r.Get("/post/{postID}/media", s.MediaHandler())
		r.Get("/post/{postID}/comments", s.CommentsHandler())
		r.Get("/notifications", s.NotificationsHandler())
	})

	r.Get("/feed/community/{communityID}.rss", s.RSSHandler())
	r.Get("/feed/community/{communityID}.ics", s.ICalHandler())
	r.Get("/widget/community/{communityID}", s.WidgetHandler())
	r.Get("/export/community/{communityID}.json", s.ExportHandler())

	// Admin routes require a configured secret; without one they simply
	// do not exist.
	if s.config.Admin.Secret != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.AdminAuthMiddleware)
			r.Get("/cache/stats", s.CacheStatsHandler())
			r.Delete("/cache", s.CacheFlushHandler())
		})
	}

	return r
}

func (s *Server) logRoutes() {
	if s.config.Env != "DEV" {
		return // Skip route listing outside development
	}
	walker := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		log.Debug().Str("method", method).Str("route", route).Msg("route registered")
		return nil
	}
	if err := chi.Walk(s.router, walker); err != nil {
		log.Warn().Err(err).Msg("failed to walk routes")
	}
}
