package config

import (
	"encoding/json"
	"strings"

	"github.com/pion/webrtc/v4"
)

// iceServerJSON mirrors the RTCIceServer dictionary. urls may be a single
// string or an array of strings.
type iceServerJSON struct {
	URLs       stringOrStringSlice `json:"urls"`
	Username   string              `json:"username"`
	Credential string              `json:"credential"`
}

type stringOrStringSlice []string

func (s *stringOrStringSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// ParseICEServers resolves the ICE server list handed to clients at join.
// raw may be a JSON array of RTCIceServer objects, a single such object, or
// a comma/space-separated list of bare STUN/TURN URLs. The config is
// advisory, so malformed input yields an empty list rather than an error;
// the caller warns about an empty list at startup.
func ParseICEServers(raw string) []webrtc.ICEServer {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "{") {
		var parsed []iceServerJSON
		if strings.HasPrefix(raw, "{") {
			var one iceServerJSON
			if err := json.Unmarshal([]byte(raw), &one); err != nil {
				return nil
			}
			parsed = []iceServerJSON{one}
		} else if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil
		}

		var servers []webrtc.ICEServer
		for _, s := range parsed {
			urls := trimNonEmpty(s.URLs)
			if len(urls) == 0 {
				continue
			}
			server := webrtc.ICEServer{URLs: urls, Username: s.Username}
			if s.Credential != "" {
				server.Credential = s.Credential
			}
			servers = append(servers, server)
		}
		return servers
	}

	// Bare URL list. Each URL becomes its own entry so TURN REST
	// credentials can later be attached per server.
	var servers []webrtc.ICEServer
	for _, url := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}) {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	return servers
}

// ParseICETransportPolicy maps raw onto a transport policy. Only "relay"
// (case-insensitive) selects relay-only; everything else, including the
// empty string, falls back to "all".
func ParseICETransportPolicy(raw string) webrtc.ICETransportPolicy {
	if strings.EqualFold(strings.TrimSpace(raw), "relay") {
		return webrtc.ICETransportPolicyRelay
	}
	return webrtc.ICETransportPolicyAll
}

func trimNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
