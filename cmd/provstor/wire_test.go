// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/config"
	"github.com/provstor-dev/provstor/pkg/health"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Listen: "127.0.0.1:0"},
		Triplestore: config.TriplestoreConfig{
			Backend: "sqlite",
			SQLite:  config.SQLiteConfig{Path: filepath.Join(dir, "quads.db")},
		},
		Objectstore: config.ObjectstoreConfig{
			Backend:    "filesystem",
			Bucket:     "crates",
			Filesystem: config.FilesystemConfig{Root: filepath.Join(dir, "crates")},
		},
	}
}

func TestWireApp_LocalBackends(t *testing.T) {
	app, err := WireApp(localConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.Server)
	assert.Equal(t, "localhost", app.Archive.Host())

	report := app.Health.Run(context.Background())
	assert.Equal(t, health.StatusOK, report.Status)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "triplestore", report.Checks[0].Name)
	assert.Equal(t, "objectstore", report.Checks[1].Name)

	w := httptest.NewRecorder()
	app.Server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/query/list-graphs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":[]}`, w.Body.String())
}

func TestWireApp_UnsupportedBackends(t *testing.T) {
	cfg := localConfig(t)
	cfg.Triplestore.Backend = "oracle"
	_, err := WireApp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported triplestore backend")

	cfg = localConfig(t)
	cfg.Objectstore.Backend = "tape"
	_, err = WireApp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported objectstore backend")
}

func TestWireApp_EmptyListenAddress(t *testing.T) {
	cfg := localConfig(t)
	cfg.Server.Listen = ""
	_, err := WireApp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen address is required")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		verbose bool
		debug   bool
		json    bool
	}{
		{"info text", config.LogConfig{Level: "info", Format: "text"}, false, false, false},
		{"debug json", config.LogConfig{Level: "debug", Format: "json"}, false, true, true},
		{"verbose forces debug", config.LogConfig{Level: "error"}, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.cfg, tt.verbose)
			logger.Debug("probe", "k", "v")
			if !tt.debug {
				assert.Empty(t, buf.String())
				return
			}
			if tt.json {
				assert.Contains(t, buf.String(), `"msg":"probe"`)
			} else {
				assert.Contains(t, buf.String(), "msg=probe")
			}
		})
	}
}
