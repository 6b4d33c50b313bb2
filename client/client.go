// Package client issues authenticated read operations against the platform
// resource API. Idempotent reads are served cache-aside through a namespaced
// TTL cache; a 401 triggers at most one token refresh followed by exactly
// one retry.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/fanwave/fanwave/cache"
	apperrors "github.com/fanwave/fanwave/internal/errors"
	"github.com/fanwave/fanwave/internal/metrics"
	"github.com/fanwave/fanwave/session"
)

const (
	sortRecent  = "RECENT"
	defaultPage = 1
	defaultSize = 20

	// maxAttempts bounds the retry-on-expiry protocol: the original call
	// plus one retry after a successful refresh, never more.
	maxAttempts = 2

	// maxErrorBody bounds how much of an upstream error body is carried in
	// the returned error.
	maxErrorBody = 512

	defaultTimeout = 10 * time.Second
)

// Config carries the resource API endpoint and the headers it demands.
type Config struct {
	BaseURL   string
	UserAgent string
	Origin    string
	Referer   string
	Timeout   time.Duration

	// RateLimit caps upstream calls per second; 0 disables the limiter.
	RateLimit float64
	RateBurst int
}

// Pagination selects a page of a list operation. Zero values fall back to
// page 1, size 20.
type Pagination struct {
	Page int
	Size int
}

func (p Pagination) orDefaults() Pagination {
	if p.Page <= 0 {
		p.Page = defaultPage
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	return p
}

// Client executes named read operations against the platform. It reads the
// session's token but never mutates it beyond triggering Refresh; payloads
// pass through as raw JSON, untouched.
type Client struct {
	cfg     Config
	http    *http.Client
	session *session.Session
	store   *cache.Store

	group   singleflight.Group
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// ClientOption mutates a Client at construction time.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client (primarily for testing).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// New creates a Client. Both the session and the cache store are passed in
// by reference; the client owns neither.
func New(cfg Config, sess *session.Session, store *cache.Store, options ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("[client.New] BaseURL is required")
	}
	if sess == nil {
		return nil, fmt.Errorf("[client.New] session is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[client.New] cache store is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		session: sess,
		store:   store,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    "platform-api",
			Timeout: 30 * time.Second,
		}),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Communities lists the communities visible to the logged-in account.
func (c *Client) Communities(ctx context.Context) (json.RawMessage, error) {
	return c.cached(ctx, "get communities", "communities", "/v1/communities")
}

// Post fetches a single post.
func (c *Client) Post(ctx context.Context, postID string) (json.RawMessage, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is required", apperrors.ErrInvalidRequest)
	}
	return c.cached(ctx, "get post", "post", "/v1/post/"+url.PathEscape(postID))
}

// Posts lists a community's posts, newest first. postType, when non-empty,
// is normalized to uppercase before it goes on the wire.
func (c *Client) Posts(ctx context.Context, communityID string, page Pagination, postType string) (json.RawMessage, error) {
	if communityID == "" {
		return nil, fmt.Errorf("%w: community id is required", apperrors.ErrInvalidRequest)
	}
	page = page.orDefaults()

	q := url.Values{}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("size", strconv.Itoa(page.Size))
	q.Set("sort", sortRecent)
	if postType != "" {
		q.Set("type", strings.ToUpper(postType))
	}
	target := "/v1/community/" + url.PathEscape(communityID) + "/posts?" + q.Encode()
	return c.cached(ctx, "get posts", "posts", target)
}

// Artists lists a community's artists.
func (c *Client) Artists(ctx context.Context, communityID string) (json.RawMessage, error) {
	if communityID == "" {
		return nil, fmt.Errorf("%w: community id is required", apperrors.ErrInvalidRequest)
	}
	return c.cached(ctx, "get artists", "artists", "/v1/community/"+url.PathEscape(communityID)+"/artists")
}

// Media fetches the media attached to a post.
func (c *Client) Media(ctx context.Context, postID string) (json.RawMessage, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is required", apperrors.ErrInvalidRequest)
	}
	return c.cached(ctx, "get media", "media", "/v1/post/"+url.PathEscape(postID)+"/media")
}

// Comments lists a post's comments, newest first.
func (c *Client) Comments(ctx context.Context, postID string, page Pagination) (json.RawMessage, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is required", apperrors.ErrInvalidRequest)
	}
	page = page.orDefaults()

	q := url.Values{}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("size", strconv.Itoa(page.Size))
	q.Set("sort", sortRecent)
	target := "/v1/post/" + url.PathEscape(postID) + "/comments?" + q.Encode()
	return c.cached(ctx, "get comments", "comments", target)
}

// Notifications lists the account's notifications. They are per-user and
// volatile, so they bypass the cache.
func (c *Client) Notifications(ctx context.Context, page Pagination) (json.RawMessage, error) {
	page = page.orDefaults()

	q := url.Values{}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("size", strconv.Itoa(page.Size))
	return c.do(ctx, "get notifications", "/v1/notification?"+q.Encode())
}

// CacheStats exposes the cache counters for the ops endpoints.
func (c *Client) CacheStats() cache.Stats {
	return c.store.Stats()
}

// cached serves a read cache-aside: fingerprint, cache get, then one
// upstream call whose result is stored on full success. Concurrent misses
// on the same fingerprint coalesce onto a single upstream call.
func (c *Client) cached(ctx context.Context, op, namespace, target string) (json.RawMessage, error) {
	key := cache.Key(namespace, target)
	if v, ok := c.store.Get(key); ok {
		return v.(json.RawMessage), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		payload, err := c.do(ctx, op, target)
		if err != nil {
			return nil, err
		}
		c.store.Set(key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// do runs the retry-on-expiry protocol around a single authenticated GET.
// A 401 on the first attempt triggers one refresh; if the refresh succeeds
// the call is reissued exactly once and that outcome is final, even if it
// is another 401. If the refresh fails, the original 401 surfaces.
func (c *Client) do(ctx context.Context, op, target string) (json.RawMessage, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, body, err := c.roundTrip(ctx, op, target)
		if err != nil {
			return nil, fmt.Errorf("failed to %s: %w", op, &NetworkError{Err: err})
		}

		if status == http.StatusUnauthorized && attempt == 0 {
			if refreshErr := c.session.Refresh(ctx); refreshErr == nil {
				metrics.UpstreamRetries.Inc()
				log.Debug().Str("operation", op).Msg("token refreshed, retrying once")
				continue
			}
		}

		if status < 200 || status > 299 {
			return nil, fmt.Errorf("failed to %s: %w", op, &UpstreamError{Status: status, Body: truncate(body)})
		}
		return json.RawMessage(body), nil
	}
	// Unreachable: every attempt either returns or continues at most once.
	return nil, fmt.Errorf("failed to %s: retry budget exhausted", op)
}

func (c *Client) roundTrip(ctx context.Context, op, target string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken())
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Origin", c.cfg.Origin)
	req.Header.Set("Referer", c.cfg.Referer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return 0, nil, err
	}

	metrics.UpstreamRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
