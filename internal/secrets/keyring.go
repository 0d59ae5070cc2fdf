// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/zalando/go-keyring"
)

// indexKey holds a JSON array of key names so List works on keyrings
// that cannot enumerate entries.
const indexKey = "::index"

// KeyringStore implements Store on top of the OS keyring.
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkArgs("set", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	keys, err := s.List(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkArgs("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", provstorerr.Errorf(provstorerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", provstorerr.Wrapf(err, provstorerr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkArgs("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return provstorerr.Errorf(provstorerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	keys, err := s.List(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

func (s *KeyringStore) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeSecretListFailure, "loading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) saveIndex(service string, keys []string) error {
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to remove empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeSecretListFailure, "saving key index for %s", service)
	}
	return nil
}

func checkArgs(op, service, key string) error {
	if service == "" || key == "" {
		return provstorerr.Errorf(provstorerr.CodeSecretInvalidInput, "secret %s: service and key must not be empty", op)
	}
	if key == indexKey {
		return provstorerr.Errorf(provstorerr.CodeSecretInvalidInput, "secret %s: %q is reserved", op, key)
	}
	return nil
}
