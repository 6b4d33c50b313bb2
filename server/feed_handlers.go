package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fanwave/fanwave/client"
	"github.com/fanwave/fanwave/feed"
)

// feedPageSize is how many recent posts the formatted outputs include.
const feedPageSize = 20

func (s *Server) recentPosts(r *http.Request) (string, []feed.Post, error) {
	communityID := chi.URLParam(r, "communityID")
	raw, err := s.client.Posts(r.Context(), communityID, client.Pagination{Page: 1, Size: feedPageSize}, "")
	if err != nil {
		return communityID, nil, err
	}
	posts, err := feed.ParsePosts(raw)
	if err != nil {
		return communityID, nil, err
	}
	return communityID, posts, nil
}

// RSSHandler renders a community's recent posts as RSS.
func (s *Server) RSSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, posts, err := s.recentPosts(r)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		rss, err := feed.RSS(communityID, posts, time.Now())
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write([]byte(rss))
	}
}

// ICalHandler renders a community's recent posts as an iCalendar document.
func (s *Server) ICalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, posts, err := s.recentPosts(r)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		_, _ = w.Write([]byte(feed.ICal(communityID, posts, time.Now())))
	}
}

// WidgetHandler renders a community's recent posts as an embeddable HTML
// widget.
func (s *Server) WidgetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, posts, err := s.recentPosts(r)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		html, err := feed.Widget(communityID, posts)
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeHTML)
		_, _ = w.Write([]byte(html))
	}
}

// ExportHandler offers a community's recent posts as a JSON download. The
// payload passes through untouched inside a small envelope.
func (s *Server) ExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID := chi.URLParam(r, "communityID")
		raw, err := s.client.Posts(r.Context(), communityID, client.Pagination{Page: 1, Size: feedPageSize}, "")
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		out, err := feed.ExportJSON(communityID, raw, time.Now())
		if err != nil {
			s.writeClientError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Content-Disposition", `attachment; filename="community-`+communityID+`.json"`)
		_, _ = w.Write(out)
	}
}
