// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/provstor-dev/provstor/internal/catalog"
	"github.com/provstor-dev/provstor/internal/graphstore/sqlite"
	"github.com/provstor-dev/provstor/internal/objectstore"
	"github.com/provstor-dev/provstor/internal/pathops"
	"github.com/provstor-dev/provstor/internal/provenance"
	"github.com/provstor-dev/provstor/internal/server"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations. The
// backing stores are throwaway: handlers are never invoked.
func generateSpec() ([]byte, error) {
	dir, err := os.MkdirTemp("", "provstor-openapi-")
	if err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeCLISetupFailure, "creating scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	graphs, err := sqlite.New(filepath.Join(dir, "quads.db"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = graphs.Close() }()

	archive := objectstore.NewArchive(objectstore.NewFilesystemFs(afero.NewMemMapFs()), "localhost", "crates")
	c, err := catalog.New(graphs, archive)
	if err != nil {
		return nil, err
	}
	svc, err := server.NewServices(c, provenance.NewEngine(graphs), pathops.NewService(c), nil)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	srv.RegisterServices(svc)

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
