// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package secrets

import (
	"strings"

	"github.com/provstor-dev/provstor/internal/config"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

const keyringScheme = "keyring://"

// ParseRef splits a keyring://service/key reference.
func ParseRef(ref string) (service, key string, err error) {
	if !config.IsKeyringRef(ref) {
		return "", "", provstorerr.Errorf(provstorerr.CodeSecretInvalidInput, "not a keyring reference: %q", ref)
	}

	service, key, ok := strings.Cut(strings.TrimPrefix(ref, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", provstorerr.Errorf(provstorerr.CodeSecretInvalidInput,
			"invalid keyring reference %q: expected keyring://service/key", ref)
	}
	return service, key, nil
}

// Resolve returns value unchanged unless it is a keyring reference, in
// which case the referenced secret is returned.
func Resolve(store Store, value string) (string, error) {
	if !config.IsKeyringRef(value) {
		return value, nil
	}

	service, key, err := ParseRef(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Get(service, key)
	if err != nil {
		return "", provstorerr.Wrapf(err, provstorerr.CodeSecretResolveFailure, "resolving %q", value)
	}
	return secret, nil
}

// ResolveConfig replaces keyring references in the credential fields of
// cfg. A resolution failure is fatal: the object store cannot be reached
// with a literal "keyring://" secret.
func ResolveConfig(cfg *config.Config, store Store) error {
	for _, field := range []*string{&cfg.Objectstore.Minio.AccessKey, &cfg.Objectstore.Minio.SecretKey} {
		resolved, err := Resolve(store, *field)
		if err != nil {
			return err
		}
		*field = resolved
	}
	return nil
}
