// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

//go:embed provstor.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/provstor/provstor.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", provstorerr.Errorf(provstorerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "provstor", "provstor.yaml"), nil
}

// BootstrapConfig writes the default commented config if none exists yet.
// Returns the path written, or empty string if the file already existed or
// could not be written. Failures are logged at debug level and skipped.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
