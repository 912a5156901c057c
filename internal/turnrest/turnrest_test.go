package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func expectedCredential(t *testing.T, sharedSecret []byte, username string) string {
	t.Helper()
	mac := hmac.New(sha1.New, sharedSecret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestGenerate_DeterministicWithFixedTime(t *testing.T) {
	g, err := NewGenerator(GeneratorConfig{
		SharedSecret:   "shared-secret",
		TTLSeconds:     3600,
		UsernamePrefix: "parley",
		Now:            func() time.Time { return time.Unix(1_700_000_000, 0).UTC() },
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	creds, err := g.Generate("p-123")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	wantExpiry := int64(1_700_003_600)
	if creds.ExpiryUnix != wantExpiry {
		t.Fatalf("ExpiryUnix: got %d, want %d", creds.ExpiryUnix, wantExpiry)
	}
	wantUsername := "1700003600:parley:p-123"
	if creds.Username != wantUsername {
		t.Fatalf("Username: got %q, want %q", creds.Username, wantUsername)
	}
	if want := expectedCredential(t, []byte("shared-secret"), wantUsername); creds.Credential != want {
		t.Fatalf("Credential: got %q, want %q", creds.Credential, want)
	}
}

func TestGenerate_RejectsColonInParticipantID(t *testing.T) {
	g, err := NewGenerator(GeneratorConfig{
		SharedSecret:   "secret",
		TTLSeconds:     10,
		UsernamePrefix: "parley",
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if _, err := g.Generate("a:b"); err == nil {
		t.Fatal("expected error for ':' in participant ID")
	}
	if _, err := g.Generate(""); err == nil {
		t.Fatal("expected error for empty participant ID")
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  GeneratorConfig
	}{
		{"missing-secret", GeneratorConfig{TTLSeconds: 1, UsernamePrefix: "p"}},
		{"zero-ttl", GeneratorConfig{SharedSecret: "s", UsernamePrefix: "p"}},
		{"missing-prefix", GeneratorConfig{SharedSecret: "s", TTLSeconds: 1}},
		{"colon-prefix", GeneratorConfig{SharedSecret: "s", TTLSeconds: 1, UsernamePrefix: "a:b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewGenerator(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecorate(t *testing.T) {
	servers := []webrtc.ICEServer{
		{URLs: []string{"stun:stun.example.com"}},
		{URLs: []string{"turn:turn.example.com:3478"}},
		{URLs: []string{"turns:turn.example.com:5349"}, Username: "static", Credential: "static-cred"},
	}
	creds := Credentials{Username: "1:parley:p", Credential: "mac"}

	got := Decorate(servers, creds)

	if got[0].Username != "" || got[0].Credential != nil {
		t.Fatalf("stun entry modified: %+v", got[0])
	}
	if got[1].Username != creds.Username || got[1].Credential != creds.Credential {
		t.Fatalf("turn entry not decorated: %+v", got[1])
	}
	if got[2].Username != "static" || got[2].Credential != "static-cred" {
		t.Fatalf("static credentials overwritten: %+v", got[2])
	}
	// Input must stay untouched.
	if servers[1].Username != "" {
		t.Fatalf("input mutated: %+v", servers[1])
	}
}
