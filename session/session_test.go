package session_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/fanwave/fanwave/session"
)

const (
	testEmail    = "fan@example.com"
	testPassword = "correct horse battery staple"
)

// platformStub fakes the platform authentication endpoint. It decrypts
// submitted passwords with the private half of the advertised key.
type platformStub struct {
	t   *testing.T
	key *rsa.PrivateKey

	mu           sync.Mutex
	loginCalls   int
	refreshCalls int

	rejectLogin    bool
	emptyResponse  bool
	refreshStatus  int
	refreshDelay   time.Duration
	lastGrantType  string
	lastRefreshTok string
}

func newPlatformStub(t *testing.T) *platformStub {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &platformStub{t: t, key: key}
}

func (p *platformStub) publicPEM() string {
	der, err := x509.MarshalPKIXPublicKey(&p.key.PublicKey)
	require.NoError(p.t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func (p *platformStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/initialize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /oauth/login", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.loginCalls++
		p.mu.Unlock()

		var req struct {
			GrantType string `json:"grant_type"`
			Username  string `json:"username"`
			Password  string `json:"password"`
		}
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&req))
		p.mu.Lock()
		p.lastGrantType = req.GrantType
		p.mu.Unlock()

		if p.rejectLogin {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.emptyResponse {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{}`)) //nolint:errcheck
			return
		}

		ciphertext, err := base64.StdEncoding.DecodeString(req.Password)
		require.NoError(p.t, err)
		plaintext, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, p.key, ciphertext, nil)
		require.NoError(p.t, err)
		if string(plaintext) != testPassword || req.Username != testEmail {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		writeTokens(w, "access-1", "refresh-1")
	})
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.refreshCalls++
		p.mu.Unlock()

		if p.refreshDelay > 0 {
			time.Sleep(p.refreshDelay)
		}

		var req struct {
			GrantType    string `json:"grant_type"`
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&req))
		p.mu.Lock()
		p.lastGrantType = req.GrantType
		p.lastRefreshTok = req.RefreshToken
		p.mu.Unlock()

		if p.refreshStatus != 0 {
			w.WriteHeader(p.refreshStatus)
			return
		}
		writeTokens(w, "access-2", "refresh-2")
	})
	return mux
}

func writeTokens(w http.ResponseWriter, access, refresh string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    3600,
	})
}

func (p *platformStub) counts() (logins, refreshes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginCalls, p.refreshCalls
}

func (p *platformStub) grantType() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastGrantType
}

func (p *platformStub) refreshTokenSeen() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRefreshTok
}

func newTestSession(t *testing.T, stub *platformStub) *session.Session {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	sess, err := session.New(session.Config{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		PublicKeyPEM: stub.publicPEM(),
		UserAgent:    "test-agent",
		Origin:       "https://origin.example",
		Referer:      "https://origin.example/",
	})
	require.NoError(t, err)
	return sess
}

func TestLoginInstallsTokens(t *testing.T) {
	stub := newPlatformStub(t)
	sess := newTestSession(t, stub)

	require.False(t, sess.Authenticated())
	require.NoError(t, sess.Login(context.Background(), testEmail, testPassword))

	require.True(t, sess.Authenticated())
	require.Equal(t, "access-1", sess.AccessToken())
	require.Equal(t, "password", stub.grantType())
}

func TestLoginRejectedLeavesSessionUnset(t *testing.T) {
	stub := newPlatformStub(t)
	stub.rejectLogin = true
	sess := newTestSession(t, stub)

	err := sess.Login(context.Background(), testEmail, testPassword)

	var credErr *session.CredentialError
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, session.KindRejected, credErr.Kind)
	require.False(t, sess.Authenticated())
}

func TestLoginMalformedResponse(t *testing.T) {
	stub := newPlatformStub(t)
	stub.emptyResponse = true
	sess := newTestSession(t, stub)

	err := sess.Login(context.Background(), testEmail, testPassword)

	var credErr *session.CredentialError
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, session.KindMalformed, credErr.Kind)
	require.False(t, sess.Authenticated())
}

func TestLoginUnreachablePlatform(t *testing.T) {
	stub := newPlatformStub(t)
	srv := httptest.NewServer(stub.handler())
	srv.Close() // nothing listening

	sess, err := session.New(session.Config{
		BaseURL:      srv.URL,
		PublicKeyPEM: stub.publicPEM(),
	})
	require.NoError(t, err)

	err = sess.Login(context.Background(), testEmail, testPassword)

	var credErr *session.CredentialError
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, session.KindNetwork, credErr.Kind)
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	stub := newPlatformStub(t)
	sess := newTestSession(t, stub)

	err := sess.Refresh(context.Background())
	require.ErrorIs(t, err, session.ErrNoRefreshToken)
}

func TestRefreshReplacesBothTokens(t *testing.T) {
	stub := newPlatformStub(t)
	sess := newTestSession(t, stub)
	require.NoError(t, sess.Login(context.Background(), testEmail, testPassword))

	require.NoError(t, sess.Refresh(context.Background()))

	require.Equal(t, "access-2", sess.AccessToken())
	require.Equal(t, "refresh_token", stub.grantType())
	require.Equal(t, "refresh-1", stub.refreshTokenSeen())
}

func TestRefreshFailureKeepsError(t *testing.T) {
	stub := newPlatformStub(t)
	sess := newTestSession(t, stub)
	require.NoError(t, sess.Login(context.Background(), testEmail, testPassword))

	stub.refreshStatus = http.StatusBadRequest
	err := sess.Refresh(context.Background())

	var credErr *session.CredentialError
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, session.KindRejected, credErr.Kind)
}

func TestConcurrentRefreshCoalesces(t *testing.T) {
	stub := newPlatformStub(t)
	stub.refreshDelay = 50 * time.Millisecond
	sess := newTestSession(t, stub)
	require.NoError(t, sess.Login(context.Background(), testEmail, testPassword))

	const callers = 10
	var failures atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sess.Refresh(context.Background()); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, failures.Load())
	_, refreshes := stub.counts()
	require.Equal(t, 1, refreshes, "concurrent refreshes must share one exchange")
	require.Equal(t, "access-2", sess.AccessToken())
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	_, err := session.ParsePublicKey("not a pem block")
	require.Error(t, err)
}
