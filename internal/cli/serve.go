// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Gateway process handler for the tinylollms CLI.
//
// Handles the "tinylollms serve" command: opens the application
// registry, builds the admin authenticator from the config file, and
// runs the gateway until interrupted.
//
// Command: serve
// Aliases: server, gateway
//
// Examples:
//   tinylollms serve                     Run with config defaults
//   tinylollms serve --listen :9000      Override the listen address
//   tinylollms serve --db ./apps.db      Override the registry path
//   tinylollms serve --debug             Debug logging
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ParisNeo/tinyLollms/internal/auth"
	"github.com/ParisNeo/tinyLollms/internal/config"
	"github.com/ParisNeo/tinyLollms/internal/logging"
	"github.com/ParisNeo/tinyLollms/internal/server"
	"github.com/ParisNeo/tinyLollms/internal/store"
)

// shutdownGrace is how long in-flight requests get to finish after a
// termination signal.
const shutdownGrace = 10 * time.Second

// HandleServe runs the gateway process.
func HandleServe(args Args) error {
	cfg := config.Global()
	cfg.ApplyEnvOverrides()

	parser := NewArgParser(args.Raw)
	listen := parser.FlagOrDefault("listen", cfg.Server.ListenAddress)
	dbPath := parser.FlagOrDefault("db", cfg.Server.DatabasePath)
	debug := parser.BoolFlag("debug") || cfg.Server.Debug || args.Verbose

	logger := logging.New(debug)
	defer logger.Sync()

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open application registry: %w", err)
	}
	defer st.Close()

	authenticator, err := auth.New(auth.Config{
		Username:     cfg.Admin.Username,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
		TOTPSecret:   cfg.Admin.TOTPSecret,
		JWTSecret:    cfg.Admin.JWTSecret,
	})
	if err != nil {
		return fmt.Errorf("admin authentication is misconfigured: %w", err)
	}

	srv := server.NewServer(listen).
		WithStore(st).
		WithAuthenticator(authenticator).
		WithLogger(logger).
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if !args.Quiet {
		fmt.Printf("gateway listening on %s (registry: %s)\n", listen, st.Path())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway failed: %w", err)
		}
		return nil

	case sig := <-sigCh:
		logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		// Drain the listener goroutine; it returns ErrServerClosed.
		<-errCh
		return nil
	}
}
