// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package server

import (
	"github.com/provstor-dev/provstor/internal/catalog"
	"github.com/provstor-dev/provstor/internal/pathops"
	"github.com/provstor-dev/provstor/internal/provenance"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/provstor-dev/provstor/pkg/health"
)

// Services holds dependencies injected into route handlers.
// Use NewServices constructor to ensure all required services are provided.
type Services struct {
	catalog *catalog.Catalog
	engine  *provenance.Engine
	pathops *pathops.Service
	health  *health.Checker // optional; nil = /health reports ok without probing
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
func NewServices(c *catalog.Catalog, engine *provenance.Engine, ops *pathops.Service, checker *health.Checker) (*Services, error) {
	if c == nil {
		return nil, provstorerr.New(provstorerr.CodeServerConfigInvalid, "catalog is required")
	}
	if engine == nil {
		return nil, provstorerr.New(provstorerr.CodeServerConfigInvalid, "provenance engine is required")
	}
	if ops == nil {
		return nil, provstorerr.New(provstorerr.CodeServerConfigInvalid, "path operation service is required")
	}
	return &Services{catalog: c, engine: engine, pathops: ops, health: checker}, nil
}

// Catalog returns the crate catalog.
func (s *Services) Catalog() *catalog.Catalog {
	return s.catalog
}

// Engine returns the provenance engine.
func (s *Services) Engine() *provenance.Engine {
	return s.engine
}

// PathOps returns the path operation service.
func (s *Services) PathOps() *pathops.Service {
	return s.pathops
}

// Health returns the dependency checker, which may be nil.
func (s *Services) Health() *health.Checker {
	return s.health
}
