package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/fanwave/fanwave/client"
	apperrors "github.com/fanwave/fanwave/internal/errors"
	"github.com/fanwave/fanwave/session"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// HealthzHandler reports liveness and whether a platform session is held.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"authenticated": s.session.Authenticated(),
		})
	}
}

// CommunitiesHandler proxies the community list.
func (s *Server) CommunitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := s.client.Communities(r.Context())
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		respondRaw(w, raw)
	}
}

// PostsHandler proxies a community's post list. Query parameters: page,
// size, type.
func (s *Server) PostsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePagination(r)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		raw, err := s.client.Posts(r.Context(), chi.URLParam(r, "communityID"), page, r.URL.Query().Get("type"))
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		respondRaw(w, raw)
	}
}

// ArtistsHandler proxies a community's artist list.
func (s *Server) ArtistsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := s.client.Artists(r.Context(), chi.URLParam(r, "communityID"))
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		respondRaw(w, raw)
	}
}

// PostHandler proxies a single post.
func (s *Server) PostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := s.client.Post(r.Context(), chi.URLParam(r, "postID"))
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		respondRaw(w, raw)
	}
}

// MediaHandler proxies a post's media.
func (s *Server) MediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := s.client.Media(r.Context(), chi.URLParam(r, "postID"))
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		respondRaw(w, raw)
	}
}

// CommentsHandler proxies a post's comments.
func (s *Server) CommentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePagination(r)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		raw, err := s.client.Comments(r.Context(), chi.URLParam(r, "postID"), page)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		respondRaw(w, raw)
	}
}

// NotificationsHandler proxies the account's notifications.
func (s *Server) NotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePagination(r)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		raw, err := s.client.Notifications(r.Context(), page)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		respondRaw(w, raw)
	}
}

// parsePagination reads optional page/size query parameters. Absent values
// stay zero so the client applies its defaults.
func parsePagination(r *http.Request) (client.Pagination, error) {
	var page client.Pagination
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, fmt.Errorf("%w: page must be a positive integer", apperrors.ErrInvalidRequest)
		}
		page.Page = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, fmt.Errorf("%w: size must be a positive integer", apperrors.ErrInvalidRequest)
		}
		page.Size = n
	}
	return page, nil
}

// writeClientError maps core errors onto transport responses: validation to
// 400, credential and upstream failures to 502, transport failures to 504.
func (s *Server) writeClientError(w http.ResponseWriter, r *http.Request, err error) {
	requestID, _ := r.Context().Value(ContextKeyRequestID).(string)
	log.Warn().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("request failed")

	var (
		credErr     *session.CredentialError
		upstreamErr *client.UpstreamError
		networkErr  *client.NetworkError
	)
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case apperrors.Is(err, apperrors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case apperrors.As(err, &credErr):
		respondError(w, http.StatusBadGateway, "CREDENTIAL_ERROR", err.Error())
	case client.IsAuthExpired(err):
		respondError(w, http.StatusBadGateway, "AUTH_EXPIRED", "platform rejected the session")
	case apperrors.As(err, &upstreamErr):
		if upstreamErr.Status == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	case apperrors.As(err, &networkErr):
		respondError(w, http.StatusGatewayTimeout, "NETWORK_ERROR", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// respondRaw passes the upstream JSON payload through untouched.
func respondRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
