// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file at path is
// group- or world-readable and still carries an inline object store secret.
// Keyring references are safe to leave readable, so they are not reported.
func WarnInsecurePermissions(path string, minio MinioConfig) {
	if path == "" || minio.SecretKey == "" || IsKeyringRef(minio.SecretKey) {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}

	const groupRead fs.FileMode = 0o040
	const otherRead fs.FileMode = 0o004

	if info.Mode().Perm()&(groupRead|otherRead) != 0 {
		slog.Warn("config file has insecure permissions and holds an inline minio secret",
			"path", path,
			"mode", info.Mode(),
			"recommended", "0600",
			"hint", "store the secret with 'provstor secret set' and reference it as keyring://provstor/<key>",
		)
	}
}
