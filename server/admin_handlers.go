package server

import (
	"net/http"
)

// CacheStatsHandler exposes the cache counters to admins.
func (s *Server) CacheStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, s.store.Stats())
	}
}

// CacheFlushHandler empties the response cache. Flushing is a development
// convenience and is rejected outright in production.
func (s *Server) CacheFlushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.IsProduction() {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "cache flush is disabled in production")
			return
		}
		s.store.Flush()
		respondJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
	}
}
