package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	testKey   *rsa.PrivateKey
	otherKey  *rsa.PrivateKey
	testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

func init() {
	var err error
	testKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	otherKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestVerifier(t *testing.T, skew time.Duration, keys ...*rsa.PublicKey) *Verifier {
	t.Helper()
	if len(keys) == 0 {
		keys = []*rsa.PublicKey{&testKey.PublicKey}
	}
	v, err := NewVerifier(keys, skew)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v.WithTimeFunc(func() time.Time { return testEpoch })
}

func TestVerifyValidToken(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, 30*time.Second)
	token := signToken(t, testKey, jwt.MapClaims{
		"exp":  testEpoch.Add(time.Hour).Unix(),
		"name": "Alice",
	})

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Name != "Alice" {
		t.Fatalf("Name: got %q want %q", claims.Name, "Alice")
	}
}

func TestVerifyExpiryWithSkew(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		skew    time.Duration
		expAgo  time.Duration
		expired bool
	}{
		{"just-expired-no-skew", 0, time.Second, true},
		{"at-skew-boundary-fails", 5 * time.Second, 5 * time.Second, true},
		{"inside-skew-passes", 5 * time.Second, 4 * time.Second, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestVerifier(t, tc.skew)
			token := signToken(t, testKey, jwt.MapClaims{
				"exp": testEpoch.Add(-tc.expAgo).Unix(),
			})
			_, err := v.Verify(token)
			if tc.expired {
				if !errors.Is(err, ErrTokenExpired) {
					t.Fatalf("got err=%v, want ErrTokenExpired", err)
				}
			} else if err != nil {
				t.Fatalf("Verify: %v", err)
			}
		})
	}
}

func TestVerifyRejectsMissingExp(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, 0)
	token := signToken(t, testKey, jwt.MapClaims{"name": "Alice"})
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got err=%v, want ErrInvalidToken", err)
	}
}

func TestVerifyFutureNbfAndIat(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, 5*time.Second)

	// Beyond the tolerance: rejected.
	token := signToken(t, testKey, jwt.MapClaims{
		"exp": testEpoch.Add(time.Hour).Unix(),
		"nbf": testEpoch.Add(time.Minute).Unix(),
	})
	if _, err := v.Verify(token); !errors.Is(err, ErrTokenNotYetValid) {
		t.Fatalf("future nbf: got err=%v, want ErrTokenNotYetValid", err)
	}

	token = signToken(t, testKey, jwt.MapClaims{
		"exp": testEpoch.Add(time.Hour).Unix(),
		"iat": testEpoch.Add(time.Minute).Unix(),
	})
	if _, err := v.Verify(token); !errors.Is(err, ErrTokenNotYetValid) {
		t.Fatalf("future iat: got err=%v, want ErrTokenNotYetValid", err)
	}

	// Within the tolerance: accepted.
	token = signToken(t, testKey, jwt.MapClaims{
		"exp": testEpoch.Add(time.Hour).Unix(),
		"nbf": testEpoch.Add(4 * time.Second).Unix(),
		"iat": testEpoch.Add(4 * time.Second).Unix(),
	})
	if _, err := v.Verify(token); err != nil {
		t.Fatalf("nbf/iat inside skew: %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, 0)
	token := signToken(t, otherKey, jwt.MapClaims{
		"exp": testEpoch.Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got err=%v, want ErrInvalidToken", err)
	}
}

func TestVerifyAcceptsAnyKeyInSet(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, 0, &testKey.PublicKey, &otherKey.PublicKey)
	token := signToken(t, otherKey, jwt.MapClaims{
		"exp": testEpoch.Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(token); err != nil {
		t.Fatalf("Verify with second key: %v", err)
	}
}

func TestVerifyRejectsNonRS256(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, 0)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": testEpoch.Add(time.Hour).Unix(),
	}).SignedString([]byte("shared secret"))
	if err != nil {
		t.Fatalf("sign HS256 token: %v", err)
	}
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got err=%v, want ErrInvalidToken", err)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, 0)
	for _, token := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: got err=%v, want ErrInvalidToken", token, err)
		}
	}
}

func TestRemainingLifetime(t *testing.T) {
	t.Parallel()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testEpoch.Add(10 * time.Minute)),
		},
	}
	if got := claims.RemainingLifetime(testEpoch); got != 10*time.Minute {
		t.Fatalf("RemainingLifetime: got %v want %v", got, 10*time.Minute)
	}
	if got := claims.RemainingLifetime(testEpoch.Add(time.Hour)); got != 0 {
		t.Fatalf("RemainingLifetime past exp: got %v want 0", got)
	}
	if got := (Claims{}).RemainingLifetime(testEpoch); got != 0 {
		t.Fatalf("RemainingLifetime without exp: got %v want 0", got)
	}
}
