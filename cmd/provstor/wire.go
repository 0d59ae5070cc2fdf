// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/provstor-dev/provstor/internal/catalog"
	"github.com/provstor-dev/provstor/internal/config"
	"github.com/provstor-dev/provstor/internal/graphstore"
	_ "github.com/provstor-dev/provstor/internal/graphstore/fuseki" // register fuseki backend
	_ "github.com/provstor-dev/provstor/internal/graphstore/sqlite" // register sqlite backend
	"github.com/provstor-dev/provstor/internal/objectstore"
	"github.com/provstor-dev/provstor/internal/pathops"
	"github.com/provstor-dev/provstor/internal/provenance"
	"github.com/provstor-dev/provstor/internal/server"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/provstor-dev/provstor/pkg/health"
)

// healthTimeout bounds each dependency probe behind /health.
const healthTimeout = 5 * time.Second

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Server  *server.Server
	Graphs  graphstore.Store
	Archive *objectstore.Archive
	Health  *health.Checker
}

// WireApp creates all subsystems and wires them together. Connections to
// the triplestore and object store are made lazily, so a backend that is
// still starting up does not prevent the server from coming up.
func WireApp(cfg *config.Config) (*App, error) {
	// 1. Graph store.
	graphs, err := graphstore.New(cfg.Triplestore)
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "opening %s triplestore", cfg.Triplestore.Backend)
	}

	// 2. Object store.
	archive, err := objectstore.New(cfg.Objectstore)
	if err != nil {
		_ = graphs.Close()
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "opening %s object store", cfg.Objectstore.Backend)
	}

	// 3. Domain services.
	cat, err := catalog.New(graphs, archive)
	if err != nil {
		_ = graphs.Close()
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "creating catalog")
	}
	engine := provenance.NewEngine(graphs)
	ops := pathops.NewService(cat)

	checker := health.NewChecker(healthTimeout)
	checker.Register("triplestore", graphs.Ping)
	checker.Register("objectstore", archive.Ping)

	services, err := server.NewServices(cat, engine, ops, checker)
	if err != nil {
		_ = graphs.Close()
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "creating services")
	}

	// 4. HTTP server.
	srv, err := server.New(server.Config{
		ListenAddr:     cfg.Server.Listen,
		CORSOrigins:    cfg.Server.CORSOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		_ = graphs.Close()
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "creating server")
	}
	srv.RegisterServices(services)

	return &App{
		Server:  srv,
		Graphs:  graphs,
		Archive: archive,
		Health:  checker,
	}, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	return a.Graphs.Close()
}

// newLogger builds the process logger from the log section. verbose
// forces debug level.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
