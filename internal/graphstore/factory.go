// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package graphstore

import (
	"sort"
	"sync"

	"github.com/provstor-dev/provstor/internal/config"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Factory opens a Store from the triplestore configuration.
type Factory func(cfg config.TriplestoreConfig) (Store, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a named backend. Backend packages call this
// from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "fuseki".
func resolveBackend(cfg config.TriplestoreConfig) string {
	if cfg.Backend == "" {
		return "fuseki"
	}
	return cfg.Backend
}

// New opens the configured backend.
func New(cfg config.TriplestoreConfig) (Store, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, provstorerr.Errorf(provstorerr.CodeStoreBackendUnsupported, "unsupported triplestore backend: %q", backend)
	}
	return factory(cfg)
}
