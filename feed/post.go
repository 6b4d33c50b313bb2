// Package feed reformats platform payloads into RSS, iCal, an HTML widget
// and a JSON export. It parses only the minimal post shape it needs and
// treats everything else in the payload as opaque.
package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Post is the minimal shape the formatters rely on. Every field is
// best-effort: the platform schema is not part of our contract.
type Post struct {
	ID          string
	Title       string
	Body        string
	Author      string
	URL         string
	PublishedAt time.Time
}

// ParsePosts extracts posts from a raw platform payload. Accepts either a
// bare array or an object with a "posts" array.
func ParsePosts(raw json.RawMessage) ([]Post, error) {
	var items []map[string]any

	if err := json.Unmarshal(raw, &items); err != nil {
		var envelope struct {
			Posts []map[string]any `json:"posts"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("payload is neither a post array nor a posts envelope: %w", err)
		}
		items = envelope.Posts
	}

	posts := make([]Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, parsePost(item))
	}
	return posts, nil
}

func parsePost(item map[string]any) Post {
	p := Post{
		ID:     asString(item["id"]),
		Title:  asString(item["title"]),
		Body:   asString(item["body"]),
		Author: authorName(item),
		URL:    firstString(item, "url", "shareUrl"),
	}
	if p.Title == "" {
		p.Title = firstLine(p.Body)
	}
	p.PublishedAt = asTime(firstValue(item, "publishedAt", "createdAt"))
	return p
}

func authorName(item map[string]any) string {
	for _, key := range []string{"author", "communityUser", "artist"} {
		switch v := item[key].(type) {
		case string:
			return v
		case map[string]any:
			if name := firstString(v, "name", "profileNickname", "nickname"); name != "" {
				return name
			}
		}
	}
	return ""
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// Platform ids show up as numbers in some payloads.
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func firstValue(item map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := item[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(item[key]); s != "" {
			return s
		}
	}
	return ""
}

// asTime accepts the platform's two timestamp encodings: unix milliseconds
// and RFC 3339.
func asTime(v any) time.Time {
	switch t := v.(type) {
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const maxTitle = 120
	if len(s) > maxTitle {
		s = s[:maxTitle] + "…"
	}
	return s
}
