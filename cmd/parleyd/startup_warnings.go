package main

import (
	"log/slog"

	"github.com/parleyhq/parley/internal/config"
)

func logStartupSecurityWarnings(logger *slog.Logger, cfg config.Config) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.AuthMode == config.AuthModeNone {
		logger.Warn("startup security warning: AUTH_MODE=none disables authentication (anyone can join the room)",
			"warning_code", "auth_mode_none",
			"auth_mode", cfg.AuthMode,
			"mode", cfg.Mode,
		)
	}

	if cfg.AllowInsecure {
		logger.Warn("startup security warning: ALLOW_INSECURE_TRANSPORT=true accepts connections without TLS evidence (tokens may transit plaintext)",
			"warning_code", "allow_insecure_transport",
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && !cfg.TrustProxyProtoHeader {
		logger.Warn("startup security warning: TRUST_PROXY_PROTO_HEADER=false while --mode=prod (clients behind a TLS-terminating proxy will be rejected as insecure)",
			"warning_code", "proxy_proto_header_untrusted_in_prod",
			"mode", cfg.Mode,
		)
	}

	if cfg.MediaTransport == config.MediaTransportWebRTC && len(cfg.ICEServers) == 0 {
		logger.Warn("startup warning: MEDIA_TRANSPORT=webrtc with an empty ICE server list (peers behind NAT will likely fail to connect)",
			"warning_code", "webrtc_without_ice_servers",
			"mode", cfg.Mode,
		)
	}

	if cfg.TURNREST.Enabled() && cfg.MediaTransport != config.MediaTransportWebRTC {
		logger.Warn("startup warning: TURN_REST_SHARED_SECRET is set but MEDIA_TRANSPORT is not webrtc (credentials will be issued but unused)",
			"warning_code", "turn_rest_unused",
			"media_transport", cfg.MediaTransport,
			"mode", cfg.Mode,
		)
	}

	if cfg.MaxMessageBytes > 4<<20 {
		logger.Warn("startup warning: MAX_MESSAGE_BYTES is very large (increases per-frame allocation risk during media fan-out)",
			"warning_code", "max_message_bytes_large",
			"max_message_bytes", cfg.MaxMessageBytes,
			"mode", cfg.Mode,
		)
	}
}
