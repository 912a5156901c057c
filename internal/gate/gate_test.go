package gate

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/metrics"
)

var (
	testKey   *rsa.PrivateKey
	testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

func init() {
	var err error
	testKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGate(t *testing.T, mutate func(*config.Config)) *Gate {
	t.Helper()
	cfg := config.Config{
		AuthMode:              config.AuthModeJWT,
		AuthCookieName:        config.DefaultAuthCookieName,
		TrustProxyProtoHeader: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	var verifier *auth.Verifier
	if cfg.AuthMode == config.AuthModeJWT {
		v, err := auth.NewVerifier([]*rsa.PublicKey{&testKey.PublicKey}, 0)
		if err != nil {
			t.Fatalf("NewVerifier: %v", err)
		}
		verifier = v.WithTimeFunc(func() time.Time { return testEpoch })
	}
	g, err := New(cfg, verifier, discardLogger(), &metrics.Metrics{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.now = func() time.Time { return testEpoch }
	return g
}

// Secure request: loopback peer so no TLS plumbing is needed.
func newSecureRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.RemoteAddr = "127.0.0.1:51234"
	return r
}

func TestIsSecure(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "203.0.113.9:40000"
	if g.IsSecure(r) {
		t.Fatal("plain remote request must not be secure")
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	if !g.IsSecure(r) {
		t.Fatal("trusted https proxy header must be secure")
	}

	r.Header.Set("X-Forwarded-Proto", "http, https")
	if g.IsSecure(r) {
		t.Fatal("only the first forwarded proto counts")
	}

	r.Header.Del("X-Forwarded-Proto")
	r.RemoteAddr = "[::1]:40000"
	if !g.IsSecure(r) {
		t.Fatal("loopback must be secure")
	}
}

func TestIsSecureUntrustedProxyHeader(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, func(cfg *config.Config) {
		cfg.TrustProxyProtoHeader = false
	})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "203.0.113.9:40000"
	r.Header.Set("X-Forwarded-Proto", "https")
	if g.IsSecure(r) {
		t.Fatal("proxy header must be ignored when untrusted")
	}
}

func TestCheckRejectsInsecureTransport(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "203.0.113.9:40000"

	if _, err := g.Check(httptest.NewRecorder(), r); !errors.Is(err, ErrInsecureTransport) {
		t.Fatalf("got err=%v, want ErrInsecureTransport", err)
	}
}

func TestCheckAllowInsecureOverride(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, func(cfg *config.Config) {
		cfg.AuthMode = config.AuthModeNone
		cfg.AllowInsecure = true
	})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "203.0.113.9:40000"

	if _, err := g.Check(httptest.NewRecorder(), r); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckAuthDisabled(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, func(cfg *config.Config) {
		cfg.AuthMode = config.AuthModeNone
	})
	id, err := g.Check(httptest.NewRecorder(), newSecureRequest(t, "/ws"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if id.Authenticated {
		t.Fatal("identity must not be authenticated when auth is off")
	}
}

func TestCheckTokenPrecedence(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, nil)
	good := signToken(t, jwt.MapClaims{
		"exp":  testEpoch.Add(time.Hour).Unix(),
		"name": "Alice",
	})

	// Header beats an invalid query token.
	r := newSecureRequest(t, "/ws?token=garbage")
	r.Header.Set("Authorization", "Bearer "+good)
	id, err := g.Check(httptest.NewRecorder(), r)
	if err != nil {
		t.Fatalf("Check with header token: %v", err)
	}
	if !id.Authenticated || id.Name != "Alice" {
		t.Fatalf("identity: %+v", id)
	}

	// Query beats an invalid cookie.
	r = newSecureRequest(t, "/ws?token="+good)
	r.AddCookie(&http.Cookie{Name: config.DefaultAuthCookieName, Value: "garbage"})
	if _, err := g.Check(httptest.NewRecorder(), r); err != nil {
		t.Fatalf("Check with query token: %v", err)
	}

	// A bad header token fails even with a valid query token behind it.
	r = newSecureRequest(t, "/ws?token="+good)
	r.Header.Set("Authorization", "Bearer garbage")
	if _, err := g.Check(httptest.NewRecorder(), r); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got err=%v, want ErrUnauthenticated", err)
	}
}

func TestCheckCookieFallback(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, nil)
	good := signToken(t, jwt.MapClaims{"exp": testEpoch.Add(time.Hour).Unix()})

	r := newSecureRequest(t, "/ws")
	r.AddCookie(&http.Cookie{Name: config.DefaultAuthCookieName, Value: good})
	w := httptest.NewRecorder()
	id, err := g.Check(w, r)
	if err != nil {
		t.Fatalf("Check with cookie token: %v", err)
	}
	if !id.Authenticated {
		t.Fatal("expected authenticated identity")
	}
	// An already-present cookie is not rewritten.
	if cookies := w.Result().Cookies(); len(cookies) != 0 {
		t.Fatalf("unexpected Set-Cookie: %+v", cookies)
	}
}

func TestCheckSetsCookieFromQueryToken(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, nil)
	good := signToken(t, jwt.MapClaims{"exp": testEpoch.Add(10 * time.Minute).Unix()})

	w := httptest.NewRecorder()
	if _, err := g.Check(w, newSecureRequest(t, "/ws?token="+good)); err != nil {
		t.Fatalf("Check: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookie count: got %d want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != config.DefaultAuthCookieName || c.Value != good {
		t.Fatalf("cookie: %+v", c)
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Fatalf("cookie attributes: %+v", c)
	}
	if c.MaxAge != int(10*time.Minute/time.Second) {
		t.Fatalf("cookie MaxAge: got %d want %d", c.MaxAge, int(10*time.Minute/time.Second))
	}
}

func TestCheckClearsBadCookie(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, nil)
	expired := signToken(t, jwt.MapClaims{"exp": testEpoch.Add(-time.Hour).Unix()})

	r := newSecureRequest(t, "/ws")
	r.AddCookie(&http.Cookie{Name: config.DefaultAuthCookieName, Value: expired})
	w := httptest.NewRecorder()
	if _, err := g.Check(w, r); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got err=%v, want ErrUnauthenticated", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("expected clearing Set-Cookie, got %+v", cookies)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, nil)
	good := signToken(t, jwt.MapClaims{
		"exp":  testEpoch.Add(time.Hour).Unix(),
		"name": "Alice",
	})

	var gotIdentity Identity
	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Authorized.
	r := newSecureRequest(t, "/participants")
	r.Header.Set("Authorization", "Bearer "+good)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d want 200", w.Code)
	}
	if gotIdentity.Name != "Alice" {
		t.Fatalf("identity from context: %+v", gotIdentity)
	}

	// Missing token.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newSecureRequest(t, "/participants"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", w.Code)
	}

	// Insecure transport.
	r = httptest.NewRequest(http.MethodGet, "/participants", nil)
	r.RemoteAddr = "203.0.113.9:40000"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want 400", w.Code)
	}
}
