// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package graphstore is the named-graph store that crate metadata lives in.
// Each crate is one named graph identified by its archive URL; lookups see
// the union of all graphs unless they take a graph argument.
package graphstore

import (
	"context"

	"github.com/knakk/rdf"
)

// Store is the read/write contract the catalog and provenance engine use.
// Lookups return an empty slice, not an error, when nothing matches.
type Store interface {
	// InsertGraph adds triples as a new named graph.
	InsertGraph(ctx context.Context, graph string, triples []rdf.Triple) error
	// Query runs a raw SPARQL query against graph, or the union graph when
	// graph is "". Rows are ordered like the query's projection.
	Query(ctx context.Context, query, graph string) ([][]any, error)

	// Graphs lists every named graph.
	Graphs(ctx context.Context) ([]string, error)
	// RDEGraphs lists each graph with the root data entity it holds.
	RDEGraphs(ctx context.Context) ([]RDEGraph, error)
	// CrateURL returns the archive URL stamped on rde, or "".
	CrateURL(ctx context.Context, rde string) (string, error)

	GraphsForFile(ctx context.Context, fileID string) ([]string, error)
	GraphsForResult(ctx context.Context, resultID string) ([]string, error)

	// Workflow and the Run* lookups are scoped to one crate graph.
	Workflow(ctx context.Context, graph string) ([]string, error)
	RunResults(ctx context.Context, graph string) ([]string, error)
	RunObjects(ctx context.Context, graph string) ([]string, error)
	RunParams(ctx context.Context, graph string) ([]Param, error)

	ObjectsForResult(ctx context.Context, resultID string) ([]string, error)
	ActionsForResult(ctx context.Context, resultID string) ([]string, error)
	ObjectsForAction(ctx context.Context, actionID string) ([]string, error)
	ResultsForAction(ctx context.Context, actionID string) ([]string, error)

	// ExistingResults returns those ids that some CreateAction already
	// lists as a result.
	ExistingResults(ctx context.Context, ids []string) ([]string, error)
	// IsFile reports whether id is typed MediaObject or Dataset anywhere.
	IsFile(ctx context.Context, id string) (bool, error)
	// FileInfo returns the checksum and size recorded for id, if any.
	FileInfo(ctx context.Context, id string) (FileInfo, error)
	// NextMove returns the file: destination of a recorded move of path,
	// or "".
	NextMove(ctx context.Context, path string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}

// RDEGraph pairs a crate graph with its root data entity.
type RDEGraph struct {
	Graph string `json:"graph" yaml:"graph"`
	RDE   string `json:"rde" yaml:"rde"`
}

// Param is one workflow-run parameter.
type Param struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// FileInfo is the integrity metadata recorded for a file entity.
type FileInfo struct {
	SHA256      string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	ContentSize string `json:"content_size,omitempty" yaml:"content_size,omitempty"`
}

// MoveToolID is the instrument that marks a CreateAction as a move.
const MoveToolID = "https://w3id.org/ro/terms/provstor#MoveTool"
