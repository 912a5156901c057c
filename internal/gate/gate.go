// Package gate decides whether an incoming connection may reach the room:
// it checks transport security evidence and verifies the bearer token, and
// maintains the session cookie so page reloads keep working after the
// original token left the URL.
package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/metrics"
)

var (
	ErrInsecureTransport = errors.New("gate: transport is not secure")
	ErrUnauthenticated   = errors.New("gate: missing or invalid credentials")
)

// Identity describes who passed the gate. Name is empty when the token
// carries no name claim or when auth is disabled.
type Identity struct {
	Authenticated bool
	Name          string
	Claims        auth.Claims
}

type Gate struct {
	cfg      config.Config
	verifier *auth.Verifier
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New builds a gate. verifier may be nil iff cfg.AuthMode is none.
func New(cfg config.Config, verifier *auth.Verifier, logger *slog.Logger, m *metrics.Metrics) (*Gate, error) {
	if cfg.AuthMode == config.AuthModeJWT && verifier == nil {
		return nil, fmt.Errorf("gate: auth mode %s requires a verifier", cfg.AuthMode)
	}
	return &Gate{
		cfg:      cfg,
		verifier: verifier,
		log:      logger,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// IsSecure reports whether the request arrived over transport the server
// considers safe for credentials: direct TLS, an https X-Forwarded-Proto
// from a trusted reverse proxy, or a loopback peer (local development).
func (g *Gate) IsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if g.cfg.TrustProxyProtoHeader {
		proto := r.Header.Get("X-Forwarded-Proto")
		// Proxies may append; only the first hop's value counts.
		if first, _, _ := strings.Cut(proto, ","); strings.EqualFold(strings.TrimSpace(first), "https") {
			return true
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	return false
}

// Check runs the full gate without writing to w except for cookie updates.
// Callers decide how to report failure: plain HTTP handlers send a status
// code, the WebSocket handler completes the upgrade and closes with a
// policy violation so browser clients can observe the close code.
func (g *Gate) Check(w http.ResponseWriter, r *http.Request) (Identity, error) {
	secure := g.IsSecure(r)
	if !secure && !g.cfg.AllowInsecure {
		g.metrics.Inc(metrics.InsecureRejected)
		g.log.Warn("rejected insecure connection", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		return Identity{}, ErrInsecureTransport
	}

	if g.cfg.AuthMode == config.AuthModeNone {
		return Identity{}, nil
	}

	token, source := tokenFromRequest(r, g.cfg.AuthCookieName)
	if token == "" {
		g.metrics.Inc(metrics.AuthFailed)
		return Identity{}, fmt.Errorf("%w: no token presented", ErrUnauthenticated)
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		g.metrics.Inc(metrics.AuthFailed)
		g.log.Warn("rejected token", "remote_addr", r.RemoteAddr, "source", source, "err", err)
		if source == tokenSourceCookie {
			g.clearCookie(w, secure)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	// Persist header and query tokens so a reload without the token still
	// authenticates until the token expires.
	if source != tokenSourceCookie {
		g.setCookie(w, token, claims, secure)
	}

	return Identity{
		Authenticated: true,
		Name:          claims.Name,
		Claims:        claims,
	}, nil
}

// Middleware gates plain HTTP routes. Insecure transport gets 400,
// missing or invalid credentials get 401.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.Check(w, r)
		switch {
		case errors.Is(err, ErrInsecureTransport):
			http.Error(w, "secure transport required", http.StatusBadRequest)
			return
		case err != nil:
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

type tokenSource string

const (
	tokenSourceHeader tokenSource = "authorization-header"
	tokenSourceQuery  tokenSource = "query"
	tokenSourceCookie tokenSource = "cookie"
)

// tokenFromRequest resolves the bearer token with fixed precedence:
// Authorization header, then ?token=, then the session cookie. The first
// source that yields a token wins even if it fails verification.
func tokenFromRequest(r *http.Request, cookieName string) (string, tokenSource) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, rest, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			if token := strings.TrimSpace(rest); token != "" {
				return token, tokenSourceHeader
			}
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, tokenSourceQuery
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, tokenSourceCookie
	}
	return "", ""
}

func (g *Gate) setCookie(w http.ResponseWriter, token string, claims auth.Claims, secure bool) {
	remaining := claims.RemainingLifetime(g.now())
	if remaining <= 0 {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(remaining / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (g *Gate) clearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
