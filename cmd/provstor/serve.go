// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provstor-dev/provstor/internal/config"
	"github.com/provstor-dev/provstor/internal/secrets"
	"github.com/provstor-dev/provstor/internal/server"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ProvStor API server",
		Long:  "Load configuration, connect the triplestore and object store, and serve the HTTP API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	cmd.Flags().String("env-file", "", "load environment variables from this file before reading config")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return provstorerr.Wrapf(err, provstorerr.CodeConfigLoadReadFailure, "loading env file %s", envFile)
		}
		// Variables set after initViper ran are still seen: AutomaticEnv
		// reads the environment on every lookup.
	}

	v := viper.GetViper()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		v.Set("server.listen", listen)
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log, v.GetBool("verbose"))
	slog.SetDefault(logger)

	config.WarnInsecurePermissions(v.ConfigFileUsed(), cfg.Objectstore.Minio)
	if err := secrets.ResolveConfig(cfg, secretStoreFactory()); err != nil {
		return err
	}

	server.Version = version
	app, err := WireApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("closing triplestore", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting provstor",
		"version", version,
		"listen", cfg.Server.Listen,
		"triplestore", cfg.Triplestore.Backend,
		"objectstore", cfg.Objectstore.Backend,
	)
	return app.Start(ctx)
}
