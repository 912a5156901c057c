package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/gate"
	"github.com/parleyhq/parley/internal/httpserver"
	"github.com/parleyhq/parley/internal/metrics"
	"github.com/parleyhq/parley/internal/relay"
	"github.com/parleyhq/parley/internal/room"
	"github.com/parleyhq/parley/internal/signaling"
	"github.com/parleyhq/parley/internal/turnrest"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	// Key material is loaded once; a broken key set aborts startup instead
	// of silently rejecting every client at runtime.
	var verifier *auth.Verifier
	if cfg.AuthMode == config.AuthModeJWT {
		keys, err := auth.LoadKeySet(cfg.AuthPublicKeyFiles)
		if err != nil {
			logger.Error("failed to load auth key set", "err", err)
			os.Exit(2)
		}
		verifier, err = auth.NewVerifier(keys, cfg.AuthClockSkew)
		if err != nil {
			logger.Error("failed to configure auth verifier", "err", err)
			os.Exit(2)
		}
	}

	var turnGen *turnrest.Generator
	if cfg.TURNREST.Enabled() {
		turnGen, err = turnrest.NewGenerator(turnrest.GeneratorConfig{
			SharedSecret:   cfg.TURNREST.SharedSecret,
			TTLSeconds:     cfg.TURNREST.TTLSeconds,
			UsernamePrefix: cfg.TURNREST.UsernamePrefix,
		})
		if err != nil {
			logger.Error("failed to configure TURN REST credentials", "err", err)
			os.Exit(2)
		}
	}

	logger.Info("starting parleyd",
		"listen_addr", cfg.ListenAddr,
		"mode", cfg.Mode,
		"auth_mode", cfg.AuthMode,
		"media_transport", cfg.MediaTransport,
		"max_participants", cfg.MaxParticipants,
		"max_message_bytes", cfg.MaxMessageBytes,
		"ice_server_count", len(cfg.ICEServers),
		"ice_transport_policy", cfg.ICETransportPolicy.String(),
		"turn_rest_enabled", turnGen != nil,
	)

	logStartupSecurityWarnings(logger, cfg)

	m := metrics.New()
	g, err := gate.New(cfg, verifier, logger, m)
	if err != nil {
		logger.Error("failed to configure connection gate", "err", err)
		os.Exit(2)
	}

	registry := room.NewRegistry()
	hub := signaling.NewHub(cfg.MaxParticipants, registry, logger, m)
	mediaRelay := relay.New(cfg.MaxMessageBytes, logger, m)
	sig := signaling.NewServer(cfg, logger, m, g, hub, mediaRelay, turnGen)

	srv := httpserver.New(cfg, logger, m, g, registry, sig)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}
