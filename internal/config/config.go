package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

const (
	envVarListenAddr      = "PARLEY_LISTEN_ADDR"
	envVarMode            = "PARLEY_MODE"
	envVarLogFormat       = "PARLEY_LOG_FORMAT"
	envVarLogLevel        = "PARLEY_LOG_LEVEL"
	envVarShutdownTimeout = "PARLEY_SHUTDOWN_TIMEOUT"

	// Connection gate.
	envVarAuthMode              = "AUTH_MODE"
	envVarAuthPublicKeyFiles    = "AUTH_JWT_PUBLIC_KEY_FILES"
	envVarAuthClockSkew         = "AUTH_CLOCK_SKEW"
	envVarAuthCookieName        = "AUTH_COOKIE_NAME"
	envVarAllowInsecure         = "ALLOW_INSECURE_TRANSPORT"
	envVarTrustProxyProtoHeader = "TRUST_PROXY_PROTO_HEADER"

	// Room / signaling.
	envVarMaxParticipants         = "MAX_PARTICIPANTS"
	envVarMediaTransport          = "MEDIA_TRANSPORT"
	envVarMaxMessageBytes         = "MAX_MESSAGE_BYTES"
	envVarWSIdleTimeout           = "SIGNALING_WS_IDLE_TIMEOUT"
	envVarWSPingInterval          = "SIGNALING_WS_PING_INTERVAL"
	envVarMaxMessagesPerSecond    = "MAX_SIGNALING_MESSAGES_PER_SECOND"
	envVarKeepaliveMinDelay       = "KEEPALIVE_MIN_DELAY"
	envVarKeepaliveMaxDelay       = "KEEPALIVE_MAX_DELAY"
	envVarKeepaliveMinBytes       = "KEEPALIVE_MIN_BYTES"
	envVarKeepaliveMaxBytes       = "KEEPALIVE_MAX_BYTES"

	// ICE configuration handoff.
	envVarICEServersJSON     = "ICE_SERVERS_JSON"
	envVarICEURLs            = "ICE_URLS"
	envVarICETransportPolicy = "ICE_TRANSPORT_POLICY"

	// coturn TURN REST (ephemeral) credentials.
	envVarTURNRESTSharedSecret   = "TURN_REST_SHARED_SECRET"
	envVarTURNRESTTTLSeconds     = "TURN_REST_TTL_SECONDS"
	envVarTURNRESTUsernamePrefix = "TURN_REST_USERNAME_PREFIX"
)

const (
	DefaultListenAddr           = "127.0.0.1:8080"
	DefaultShutdown             = 15 * time.Second
	DefaultMode            Mode = ModeDev
	DefaultAuthClockSkew        = 30 * time.Second
	DefaultAuthCookieName       = "parley_token"
	DefaultMaxParticipants      = 16
	// DefaultMaxMessageBytes caps both inbound WS messages and relayed media
	// frames. Oversized media frames are dropped, never fragmented.
	DefaultMaxMessageBytes       = 1 << 20 // 1MiB
	DefaultWSIdleTimeout         = 60 * time.Second
	DefaultWSPingInterval        = 20 * time.Second
	DefaultMaxMessagesPerSecond  = 50
	DefaultKeepaliveMinDelay     = 1500 * time.Millisecond
	DefaultKeepaliveMaxDelay     = 3500 * time.Millisecond
	DefaultKeepaliveMinBytes     = 128
	DefaultKeepaliveMaxBytes     = 1024
	DefaultAuthMode              = AuthModeNone
	DefaultMediaTransport        = MediaTransportWebRTC

	DefaultTURNRESTTTLSeconds     int64 = 3600
	DefaultTURNRESTUsernamePrefix       = "parley"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type AuthMode string

const (
	AuthModeNone AuthMode = "none"
	AuthModeJWT  AuthMode = "jwt"
)

// MediaTransport selects how participants exchange media: peer-to-peer via
// WebRTC (the server only forwards signaling) or through the server's own
// binary relay.
type MediaTransport string

const (
	MediaTransportWebRTC MediaTransport = "webrtc"
	MediaTransportWS     MediaTransport = "ws"
)

type TurnRESTConfig struct {
	SharedSecret   string
	TTLSeconds     int64
	UsernamePrefix string
}

func (c TurnRESTConfig) Enabled() bool {
	return strings.TrimSpace(c.SharedSecret) != ""
}

type Config struct {
	ListenAddr      string
	Mode            Mode
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// Connection gate.
	AuthMode              AuthMode
	AuthPublicKeyFiles    []string
	AuthClockSkew         time.Duration
	AuthCookieName        string
	AllowInsecure         bool
	TrustProxyProtoHeader bool

	// Room / signaling.
	MaxParticipants      int
	MediaTransport       MediaTransport
	MaxMessageBytes      int64
	WSIdleTimeout        time.Duration
	WSPingInterval       time.Duration
	MaxMessagesPerSecond int

	KeepaliveMinDelay time.Duration
	KeepaliveMaxDelay time.Duration
	KeepaliveMinBytes int
	KeepaliveMaxBytes int

	// ICE configuration, resolved once at startup and attached to every
	// welcome message. A client must reconnect to observe changes.
	ICEServers         []webrtc.ICEServer
	ICETransportPolicy webrtc.ICETransportPolicy

	TURNREST TurnRESTConfig
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	envMode, _ := lookup(envVarMode)
	modeDefault := string(DefaultMode)
	if envMode != "" {
		modeDefault = envMode
	}

	envLogFormat, envLogFormatOK := lookup(envVarLogFormat)
	envLogFormatSet := envLogFormatOK && envLogFormat != ""
	logFormatDefault := envLogFormat
	if !envLogFormatSet {
		logFormatDefault = defaultLogFormatForMode(modeDefault)
	}

	envLogLevel, envLogLevelOK := lookup(envVarLogLevel)
	envLogLevelSet := envLogLevelOK && envLogLevel != ""
	logLevelDefault := envLogLevel
	if !envLogLevelSet {
		logLevelDefault = defaultLogLevelForMode(modeDefault)
	}

	listenAddr := envOrDefault(lookup, envVarListenAddr, DefaultListenAddr)
	authModeDefault := string(DefaultAuthMode)
	if raw, ok := lookup(envVarAuthMode); ok && strings.TrimSpace(raw) != "" {
		authModeDefault = strings.TrimSpace(raw)
	}
	keyFilesStr := envOrDefault(lookup, envVarAuthPublicKeyFiles, "")
	cookieName := envOrDefault(lookup, envVarAuthCookieName, DefaultAuthCookieName)
	mediaTransportDefault := string(DefaultMediaTransport)
	if raw, ok := lookup(envVarMediaTransport); ok && strings.TrimSpace(raw) != "" {
		mediaTransportDefault = strings.TrimSpace(raw)
	}

	shutdownTimeout, err := envDurationOrDefault(lookup, envVarShutdownTimeout, DefaultShutdown)
	if err != nil {
		return Config{}, err
	}
	authClockSkew, err := envDurationOrDefault(lookup, envVarAuthClockSkew, DefaultAuthClockSkew)
	if err != nil {
		return Config{}, err
	}
	wsIdleTimeout, err := envDurationOrDefault(lookup, envVarWSIdleTimeout, DefaultWSIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	wsPingInterval, err := envDurationOrDefault(lookup, envVarWSPingInterval, DefaultWSPingInterval)
	if err != nil {
		return Config{}, err
	}
	keepaliveMinDelay, err := envDurationOrDefault(lookup, envVarKeepaliveMinDelay, DefaultKeepaliveMinDelay)
	if err != nil {
		return Config{}, err
	}
	keepaliveMaxDelay, err := envDurationOrDefault(lookup, envVarKeepaliveMaxDelay, DefaultKeepaliveMaxDelay)
	if err != nil {
		return Config{}, err
	}

	allowInsecure, err := envBoolOrDefault(lookup, envVarAllowInsecure, false)
	if err != nil {
		return Config{}, err
	}
	trustProxyProto, err := envBoolOrDefault(lookup, envVarTrustProxyProtoHeader, true)
	if err != nil {
		return Config{}, err
	}

	maxParticipants, err := envIntOrDefault(lookup, envVarMaxParticipants, DefaultMaxParticipants)
	if err != nil {
		return Config{}, err
	}
	maxMessagesPerSecond, err := envIntOrDefault(lookup, envVarMaxMessagesPerSecond, DefaultMaxMessagesPerSecond)
	if err != nil {
		return Config{}, err
	}
	keepaliveMinBytes, err := envIntOrDefault(lookup, envVarKeepaliveMinBytes, DefaultKeepaliveMinBytes)
	if err != nil {
		return Config{}, err
	}
	keepaliveMaxBytes, err := envIntOrDefault(lookup, envVarKeepaliveMaxBytes, DefaultKeepaliveMaxBytes)
	if err != nil {
		return Config{}, err
	}

	maxMessageBytes := int64(DefaultMaxMessageBytes)
	if raw, ok := lookup(envVarMaxMessageBytes); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", envVarMaxMessageBytes, raw, err)
		}
		maxMessageBytes = n
	}

	iceServersJSON := envOrDefault(lookup, envVarICEServersJSON, "")
	iceURLs := envOrDefault(lookup, envVarICEURLs, "")
	icePolicyStr := envOrDefault(lookup, envVarICETransportPolicy, "")

	turnRESTSharedSecret := envOrDefault(lookup, envVarTURNRESTSharedSecret, "")
	turnRESTTTLSeconds := DefaultTURNRESTTTLSeconds
	if raw, ok := lookup(envVarTURNRESTTTLSeconds); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", envVarTURNRESTTTLSeconds, raw, err)
		}
		turnRESTTTLSeconds = n
	}
	turnRESTUsernamePrefix := envOrDefault(lookup, envVarTURNRESTUsernamePrefix, DefaultTURNRESTUsernamePrefix)

	fs := flag.NewFlagSet("parleyd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		modeStr           string
		logFormatStr      string
		logLevelStr       string
		authModeStr       string
		mediaTransportStr string
	)

	fs.StringVar(&listenAddr, "listen-addr", listenAddr, "HTTP listen address (host:port; env "+envVarListenAddr+")")
	fs.StringVar(&modeStr, "mode", modeDefault, "Run mode: dev or prod (env "+envVarMode+")")
	fs.StringVar(&logFormatStr, "log-format", logFormatDefault, "Log format: text or json (env "+envVarLogFormat+")")
	fs.StringVar(&logLevelStr, "log-level", logLevelDefault, "Log level: debug, info, warn, error (env "+envVarLogLevel+")")
	fs.DurationVar(&shutdownTimeout, "shutdown-timeout", shutdownTimeout, "Graceful shutdown timeout (env "+envVarShutdownTimeout+")")

	fs.StringVar(&authModeStr, "auth-mode", authModeDefault, "Connection auth mode: none or jwt (env "+envVarAuthMode+")")
	fs.StringVar(&keyFilesStr, "auth-jwt-public-key-files", keyFilesStr, "Comma-separated PEM files with RS256 public keys (env "+envVarAuthPublicKeyFiles+")")
	fs.DurationVar(&authClockSkew, "auth-clock-skew", authClockSkew, "Clock skew tolerance for token exp/nbf/iat checks (env "+envVarAuthClockSkew+")")
	fs.StringVar(&cookieName, "auth-cookie-name", cookieName, "Name of the session token cookie (env "+envVarAuthCookieName+")")
	fs.BoolVar(&allowInsecure, "allow-insecure-transport", allowInsecure, "Accept connections without TLS/proxy-https evidence (env "+envVarAllowInsecure+")")
	fs.BoolVar(&trustProxyProto, "trust-proxy-proto-header", trustProxyProto, "Trust X-Forwarded-Proto from the reverse proxy for secure-transport detection (env "+envVarTrustProxyProtoHeader+")")

	fs.IntVar(&maxParticipants, "max-participants", maxParticipants, "Maximum joined participants in the room (env "+envVarMaxParticipants+")")
	fs.StringVar(&mediaTransportStr, "media-transport", mediaTransportDefault, "Media transport mode: webrtc or ws (env "+envVarMediaTransport+")")
	fs.Int64Var(&maxMessageBytes, "max-message-bytes", maxMessageBytes, "Max inbound WS message and relayed media frame size in bytes (env "+envVarMaxMessageBytes+")")
	fs.DurationVar(&wsIdleTimeout, "ws-idle-timeout", wsIdleTimeout, "Close idle WebSocket connections after this duration (env "+envVarWSIdleTimeout+")")
	fs.DurationVar(&wsPingInterval, "ws-ping-interval", wsPingInterval, "Ping interval on WebSocket connections (must be < --ws-idle-timeout; env "+envVarWSPingInterval+")")
	fs.IntVar(&maxMessagesPerSecond, "max-messages-per-second", maxMessagesPerSecond, "Max inbound signaling messages per second per connection (env "+envVarMaxMessagesPerSecond+")")

	fs.DurationVar(&keepaliveMinDelay, "keepalive-min-delay", keepaliveMinDelay, "Lower bound of the randomized keepalive delay (env "+envVarKeepaliveMinDelay+")")
	fs.DurationVar(&keepaliveMaxDelay, "keepalive-max-delay", keepaliveMaxDelay, "Upper bound of the randomized keepalive delay (env "+envVarKeepaliveMaxDelay+")")
	fs.IntVar(&keepaliveMinBytes, "keepalive-min-bytes", keepaliveMinBytes, "Lower bound of the keepalive padding size (env "+envVarKeepaliveMinBytes+")")
	fs.IntVar(&keepaliveMaxBytes, "keepalive-max-bytes", keepaliveMaxBytes, "Upper bound of the keepalive padding size (env "+envVarKeepaliveMaxBytes+")")

	fs.StringVar(&iceServersJSON, "ice-servers-json", iceServersJSON, "ICE server JSON config (env "+envVarICEServersJSON+")")
	fs.StringVar(&iceURLs, "ice-urls", iceURLs, "Comma/space-separated bare STUN/TURN URLs (env "+envVarICEURLs+")")
	fs.StringVar(&icePolicyStr, "ice-transport-policy", icePolicyStr, "ICE transport policy: all or relay (env "+envVarICETransportPolicy+")")

	fs.StringVar(&turnRESTSharedSecret, "turn-rest-shared-secret", turnRESTSharedSecret, "TURN REST shared secret (env "+envVarTURNRESTSharedSecret+")")
	fs.Int64Var(&turnRESTTTLSeconds, "turn-rest-ttl-seconds", turnRESTTTLSeconds, "TURN REST credential TTL seconds (env "+envVarTURNRESTTTLSeconds+")")
	fs.StringVar(&turnRESTUsernamePrefix, "turn-rest-username-prefix", turnRESTUsernamePrefix, "TURN REST username prefix (env "+envVarTURNRESTUsernamePrefix+")")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	mode, err := parseMode(modeStr)
	if err != nil {
		return Config{}, err
	}

	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	if !envLogFormatSet && !setFlags["log-format"] {
		logFormatStr = defaultLogFormatForMode(string(mode))
	}
	if !envLogLevelSet && !setFlags["log-level"] {
		logLevelStr = defaultLogLevelForMode(string(mode))
	}

	logFormat, err := parseLogFormat(logFormatStr)
	if err != nil {
		return Config{}, err
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}
	authMode, err := parseAuthMode(authModeStr)
	if err != nil {
		return Config{}, err
	}
	mediaTransport, err := parseMediaTransport(mediaTransportStr)
	if err != nil {
		return Config{}, err
	}

	keyFiles := splitList(keyFilesStr)

	if listenAddr == "" {
		return Config{}, fmt.Errorf("listen address must not be empty")
	}
	if shutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("%s/--shutdown-timeout must be > 0", envVarShutdownTimeout)
	}
	if authMode == AuthModeJWT && len(keyFiles) == 0 {
		return Config{}, fmt.Errorf("%s must be set when %s=%s", envVarAuthPublicKeyFiles, envVarAuthMode, AuthModeJWT)
	}
	if authClockSkew < 0 {
		return Config{}, fmt.Errorf("%s/--auth-clock-skew must be >= 0", envVarAuthClockSkew)
	}
	if strings.TrimSpace(cookieName) == "" {
		return Config{}, fmt.Errorf("%s/--auth-cookie-name must not be empty", envVarAuthCookieName)
	}
	if maxParticipants <= 0 {
		return Config{}, fmt.Errorf("%s/--max-participants must be > 0", envVarMaxParticipants)
	}
	if maxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("%s/--max-message-bytes must be > 0", envVarMaxMessageBytes)
	}
	if wsIdleTimeout <= 0 {
		return Config{}, fmt.Errorf("%s/--ws-idle-timeout must be > 0", envVarWSIdleTimeout)
	}
	if wsPingInterval <= 0 {
		return Config{}, fmt.Errorf("%s/--ws-ping-interval must be > 0", envVarWSPingInterval)
	}
	if wsPingInterval >= wsIdleTimeout {
		return Config{}, fmt.Errorf("%s/--ws-ping-interval must be < %s/--ws-idle-timeout", envVarWSPingInterval, envVarWSIdleTimeout)
	}
	if maxMessagesPerSecond <= 0 {
		return Config{}, fmt.Errorf("%s/--max-messages-per-second must be > 0", envVarMaxMessagesPerSecond)
	}
	if keepaliveMinDelay <= 0 || keepaliveMaxDelay < keepaliveMinDelay {
		return Config{}, fmt.Errorf("keepalive delay bounds invalid: min %v max %v", keepaliveMinDelay, keepaliveMaxDelay)
	}
	if keepaliveMinBytes < 1 || keepaliveMaxBytes < keepaliveMinBytes {
		return Config{}, fmt.Errorf("keepalive byte bounds invalid: min %d max %d", keepaliveMinBytes, keepaliveMaxBytes)
	}

	if strings.TrimSpace(turnRESTSharedSecret) != "" {
		if turnRESTTTLSeconds <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0 when %s is set", envVarTURNRESTTTLSeconds, envVarTURNRESTSharedSecret)
		}
		if strings.TrimSpace(turnRESTUsernamePrefix) == "" {
			return Config{}, fmt.Errorf("%s must be non-empty when %s is set", envVarTURNRESTUsernamePrefix, envVarTURNRESTSharedSecret)
		}
		if strings.Contains(turnRESTUsernamePrefix, ":") {
			return Config{}, fmt.Errorf("%s must not contain ':'", envVarTURNRESTUsernamePrefix)
		}
	}

	return Config{
		ListenAddr:      listenAddr,
		Mode:            mode,
		LogFormat:       logFormat,
		LogLevel:        level,
		ShutdownTimeout: shutdownTimeout,

		AuthMode:              authMode,
		AuthPublicKeyFiles:    keyFiles,
		AuthClockSkew:         authClockSkew,
		AuthCookieName:        cookieName,
		AllowInsecure:         allowInsecure,
		TrustProxyProtoHeader: trustProxyProto,

		MaxParticipants:      maxParticipants,
		MediaTransport:       mediaTransport,
		MaxMessageBytes:      maxMessageBytes,
		WSIdleTimeout:        wsIdleTimeout,
		WSPingInterval:       wsPingInterval,
		MaxMessagesPerSecond: maxMessagesPerSecond,

		KeepaliveMinDelay: keepaliveMinDelay,
		KeepaliveMaxDelay: keepaliveMaxDelay,
		KeepaliveMinBytes: keepaliveMinBytes,
		KeepaliveMaxBytes: keepaliveMaxBytes,

		ICEServers:         ParseICEServers(firstNonEmpty(iceServersJSON, iceURLs)),
		ICETransportPolicy: ParseICETransportPolicy(icePolicyStr),

		TURNREST: TurnRESTConfig{
			SharedSecret:   turnRESTSharedSecret,
			TTLSeconds:     turnRESTTTLSeconds,
			UsernamePrefix: turnRESTUsernamePrefix,
		},
	}, nil
}

func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envBoolOrDefault(lookup func(string) (string, bool), key string, fallback bool) (bool, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func defaultLogFormatForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return string(LogFormatJSON)
	default:
		return string(LogFormatText)
	}
}

func defaultLogLevelForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return "info"
	default:
		return "debug"
	}
}

func parseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeDev), "development":
		return ModeDev, nil
	case string(ModeProd), "production":
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected dev or prod)", raw)
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected text or json)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
	}
}

func parseAuthMode(raw string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(AuthModeNone):
		return AuthModeNone, nil
	case string(AuthModeJWT):
		return AuthModeJWT, nil
	default:
		return "", fmt.Errorf("invalid %s %q (expected %s or %s)", envVarAuthMode, raw, AuthModeNone, AuthModeJWT)
	}
}

func parseMediaTransport(raw string) (MediaTransport, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(MediaTransportWebRTC):
		return MediaTransportWebRTC, nil
	case string(MediaTransportWS):
		return MediaTransportWS, nil
	default:
		return "", fmt.Errorf("invalid %s %q (expected %s or %s)", envVarMediaTransport, raw, MediaTransportWebRTC, MediaTransportWS)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
