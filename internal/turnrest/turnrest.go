// Package turnrest issues coturn-compatible ephemeral TURN credentials
// (draft-uberti-behave-turn-rest) so the long-lived shared secret never
// reaches clients.
//
// Algorithm:
//
//	username   = <unix_expiry_timestamp>:<username_prefix>:<participant_id>
//	credential = base64(hmac_sha1(shared_secret, username))
package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

type Generator struct {
	sharedSecret   []byte
	ttlSeconds     int64
	usernamePrefix string
	now            func() time.Time
}

type GeneratorConfig struct {
	SharedSecret   string
	TTLSeconds     int64
	UsernamePrefix string
	Now            func() time.Time
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.SharedSecret == "" {
		return nil, errors.New("shared secret is required")
	}
	if cfg.TTLSeconds <= 0 {
		return nil, errors.New("TTLSeconds must be > 0")
	}
	if cfg.UsernamePrefix == "" {
		return nil, errors.New("UsernamePrefix is required")
	}
	if strings.Contains(cfg.UsernamePrefix, ":") {
		return nil, errors.New("UsernamePrefix must not contain ':'")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{
		sharedSecret:   []byte(cfg.SharedSecret),
		ttlSeconds:     cfg.TTLSeconds,
		usernamePrefix: cfg.UsernamePrefix,
		now:            cfg.Now,
	}, nil
}

type Credentials struct {
	Username   string
	Credential string
	ExpiryUnix int64
}

// Generate derives credentials scoped to one participant. Credentials from
// different participants never collide because the ID is part of the
// signed username.
func (g *Generator) Generate(participantID string) (Credentials, error) {
	if participantID == "" {
		return Credentials{}, errors.New("participantID is required")
	}
	if strings.Contains(participantID, ":") {
		return Credentials{}, errors.New("participantID must not contain ':'")
	}
	expiryUnix := g.now().UTC().Unix() + g.ttlSeconds
	username := fmt.Sprintf("%d:%s:%s", expiryUnix, g.usernamePrefix, participantID)
	mac := hmac.New(sha1.New, g.sharedSecret)
	_, _ = mac.Write([]byte(username))
	return Credentials{
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		ExpiryUnix: expiryUnix,
	}, nil
}

// Decorate returns a copy of servers with creds attached to every TURN
// entry that has no static credentials of its own. STUN entries and TURN
// entries carrying explicit credentials pass through unchanged.
func Decorate(servers []webrtc.ICEServer, creds Credentials) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, len(servers))
	copy(out, servers)
	for i, s := range out {
		if s.Username != "" || s.Credential != nil {
			continue
		}
		if !hasTURNURL(s.URLs) {
			continue
		}
		out[i].Username = creds.Username
		out[i].Credential = creds.Credential
	}
	return out
}

func hasTURNURL(urls []string) bool {
	for _, u := range urls {
		scheme, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(u)), ":")
		if scheme == "turn" || scheme == "turns" {
			return true
		}
	}
	return false
}
