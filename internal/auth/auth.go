// Package auth verifies RS256-signed bearer tokens against a key set that
// is loaded once at startup.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrTokenNotYetValid = errors.New("auth: token not yet valid")
)

// Claims is the validated claim set of an accepted token. Unknown claims
// are ignored; only exp is required.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks token signatures against every key in the set and
// enforces exp (required), nbf, and iat with a configurable clock-skew
// tolerance.
type Verifier struct {
	keys []*rsa.PublicKey
	skew time.Duration
	now  func() time.Time
}

func NewVerifier(keys []*rsa.PublicKey, skew time.Duration) (*Verifier, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if skew < 0 {
		return nil, fmt.Errorf("auth: negative clock skew %v", skew)
	}
	return &Verifier{keys: keys, skew: skew, now: time.Now}, nil
}

// WithTimeFunc overrides the clock. Intended for tests.
func (v *Verifier) WithTimeFunc(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify parses and validates token, returning its claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.skew),
		jwt.WithTimeFunc(v.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, v.keyfunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenNotYetValid, err)
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	return claims, nil
}

func (v *Verifier) keyfunc(*jwt.Token) (any, error) {
	set := jwt.VerificationKeySet{Keys: make([]jwt.VerificationKey, 0, len(v.keys))}
	for _, k := range v.keys {
		set.Keys = append(set.Keys, k)
	}
	return set, nil
}

// RemainingLifetime returns how long the token stays valid from now,
// clamped at zero. Used to bound the session cookie max-age.
func (c Claims) RemainingLifetime(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
