// Package session owns the platform authentication state: the current
// access/refresh token pair and the login and refresh exchanges that mutate
// it. Tokens live for the process lifetime and are never persisted.
package session

import (
	"bytes"
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/fanwave/fanwave/internal/metrics"
)

const (
	pathInitialize = "/oauth/initialize"
	pathLogin      = "/oauth/login"
	pathToken      = "/oauth/token"

	defaultTimeout = 10 * time.Second
)

// Config carries the authentication endpoint, the fixed client credentials,
// and the browser-impersonating headers the platform requires on every call.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PublicKeyPEM string

	UserAgent string
	Origin    string
	Referer   string

	Timeout time.Duration
}

// Session holds the current token pair. It is safe for concurrent use:
// token reads take a read lock, and concurrent Refresh calls coalesce onto
// a single in-flight exchange whose result all callers observe.
type Session struct {
	cfg  Config
	http *http.Client
	pub  *rsa.PublicKey

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	refreshGroup singleflight.Group
}

// SessionOption mutates a Session at construction time.
type SessionOption func(*Session)

// WithHTTPClient overrides the HTTP client (primarily for testing).
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) { s.http = c }
}

// New creates a Session. The platform public key is parsed eagerly so a
// malformed key fails at startup rather than on the first login.
func New(cfg Config, options ...SessionOption) (*Session, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("[session.New] BaseURL is required")
	}
	pub, err := ParsePublicKey(cfg.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("[session.New] invalid platform public key: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	s := &Session{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		pub:  pub,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// AccessToken returns the current access token, empty if not logged in.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Authenticated reports whether the session holds an access token.
func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

type loginRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login exchanges user credentials for a token pair and installs it. The
// password is RSA-OAEP-encrypted with the platform public key before it
// leaves the process. Failures are classified: KindNetwork (no usable
// response), KindRejected (the platform refused the credentials) or
// KindMalformed (a 2xx without a token).
func (s *Session) Login(ctx context.Context, email, password string) error {
	// The platform requires this priming call before a credential exchange.
	if err := s.initialize(ctx); err != nil {
		return err
	}

	encrypted, err := encryptPassword(s.pub, password)
	if err != nil {
		return credErr("login", KindMalformed, err)
	}

	tokens, err := s.tokenExchange(ctx, "login", pathLogin, loginRequest{
		GrantType:    "password",
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Username:     email,
		Password:     encrypted,
	})
	if err != nil {
		return err
	}

	s.install(tokens)
	log.Info().Str("email", email).Msg("platform login succeeded")
	return nil
}

// Refresh exchanges the stored refresh token for a fresh pair. Concurrent
// callers share one in-flight exchange; each observes its outcome. On
// success both tokens are replaced atomically.
func (s *Session) Refresh(ctx context.Context) error {
	_, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	if err != nil {
		metrics.SessionRefreshes.WithLabelValues("failure").Inc()
		return err
	}
	metrics.SessionRefreshes.WithLabelValues("success").Inc()
	return nil
}

func (s *Session) refresh(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return credErr("refresh", KindRejected, ErrNoRefreshToken)
	}

	tokens, err := s.tokenExchange(ctx, "refresh", pathToken, refreshRequest{
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
	})
	if err != nil {
		log.Debug().Err(err).Msg("token refresh failed")
		return err
	}

	s.install(tokens)
	log.Debug().Msg("token refresh succeeded")
	return nil
}

func (s *Session) install(t tokenResponse) {
	s.mu.Lock()
	s.accessToken = t.AccessToken
	s.refreshToken = t.RefreshToken
	s.mu.Unlock()
}

func (s *Session) initialize(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+pathInitialize, nil)
	if err != nil {
		return credErr("login", KindNetwork, err)
	}
	s.setHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return credErr("login", KindNetwork, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // body content is irrelevant

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return credErr("login", KindNetwork, fmt.Errorf("initialize returned status %d", resp.StatusCode))
	}
	return nil
}

func (s *Session) tokenExchange(ctx context.Context, op, path string, payload any) (tokenResponse, error) {
	var tokens tokenResponse

	body, err := json.Marshal(payload)
	if err != nil {
		return tokens, credErr(op, KindMalformed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return tokens, credErr(op, KindNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.setHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return tokens, credErr(op, KindNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokens, credErr(op, KindNetwork, err)
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return tokens, credErr(op, KindRejected, fmt.Errorf("platform returned status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return tokens, credErr(op, KindNetwork, fmt.Errorf("platform returned status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(respBody, &tokens); err != nil {
		return tokens, credErr(op, KindMalformed, err)
	}
	if tokens.AccessToken == "" {
		return tokens, credErr(op, KindMalformed, fmt.Errorf("response carried no access token"))
	}
	return tokens, nil
}

func (s *Session) setHeaders(req *http.Request) {
	// Reproduced bit-for-bit: the platform rejects requests without them.
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Origin", s.cfg.Origin)
	req.Header.Set("Referer", s.cfg.Referer)
	req.Header.Set("Accept", "application/json")
}
