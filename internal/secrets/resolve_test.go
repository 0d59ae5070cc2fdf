// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package secrets_test

import (
	"testing"

	"github.com/provstor-dev/provstor/internal/config"
	"github.com/provstor-dev/provstor/internal/secrets"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name        string
		ref         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://provstor/minio-secret", "provstor", "minio-secret", false},
		{"slashes in key", "keyring://provstor/minio/prod", "provstor", "minio/prod", false},
		{"other scheme", "vault://secret/key", "", "", true},
		{"missing key", "keyring://provstor", "", "", true},
		{"empty service", "keyring:///key", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseRef(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, provstorerr.HasCode(err, provstorerr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestResolve_PassesLiteralThrough(t *testing.T) {
	val, err := secrets.Resolve(secrets.NewKeyringStore(), "miniosecret")
	require.NoError(t, err)
	assert.Equal(t, "miniosecret", val)
}

func TestResolveConfig(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("provstor-resolve", "minio-secret", "from-keyring"))

	cfg := &config.Config{}
	cfg.Objectstore.Minio.AccessKey = "minio"
	cfg.Objectstore.Minio.SecretKey = "keyring://provstor-resolve/minio-secret"

	require.NoError(t, secrets.ResolveConfig(cfg, ks))
	assert.Equal(t, "minio", cfg.Objectstore.Minio.AccessKey)
	assert.Equal(t, "from-keyring", cfg.Objectstore.Minio.SecretKey)
}

func TestResolveConfig_MissingSecretFails(t *testing.T) {
	cfg := &config.Config{}
	cfg.Objectstore.Minio.SecretKey = "keyring://provstor-resolve/absent"

	err := secrets.ResolveConfig(cfg, secrets.NewKeyringStore())
	require.Error(t, err)
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeSecretNotFound))
}
