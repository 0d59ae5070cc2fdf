// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package secrets keeps object store credentials out of config files.
package secrets

// Service is the keyring service name under which ProvStor keeps secrets.
const Service = "provstor"

// Store provides secret storage keyed by service and key.
type Store interface {
	Set(service, key, value string) error

	// Get returns an error with CodeSecretNotFound if the key does not exist.
	Get(service, key string) (string, error)

	// Delete returns an error with CodeSecretNotFound if the key does not exist.
	Delete(service, key string) error

	// List returns the key names stored under service, in insertion order.
	List(service string) ([]string, error)
}
