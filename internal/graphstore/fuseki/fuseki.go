// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package fuseki implements graphstore.Store over a SPARQL 1.1 endpoint,
// using Jena Fuseki's union-graph IRI to query across crates.
package fuseki

import (
	"context"
	"fmt"
	"strings"

	"github.com/knakk/rdf"

	"github.com/provstor-dev/provstor/internal/config"
	"github.com/provstor-dev/provstor/internal/graphstore"
	"github.com/provstor-dev/provstor/internal/sparql"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Compile-time interface check.
var _ graphstore.Store = (*Store)(nil)

func init() {
	graphstore.RegisterBackend("fuseki", func(cfg config.TriplestoreConfig) (graphstore.Store, error) {
		return New(cfg.Fuseki)
	})
}

// Store is a graphstore.Store backed by a Fuseki dataset.
type Store struct {
	client *sparql.Client
}

// New creates a Store for the dataset in cfg.
func New(cfg config.FusekiConfig) (*Store, error) {
	client, err := sparql.New(sparql.Config{
		BaseURL:    cfg.BaseURL,
		Dataset:    cfg.Dataset,
		UnionGraph: cfg.UnionGraph,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing SPARQL client.
func NewWithClient(client *sparql.Client) *Store {
	return &Store{client: client}
}

func (s *Store) InsertGraph(ctx context.Context, graph string, triples []rdf.Triple) error {
	return s.client.InsertGraph(ctx, graph, triples)
}

func (s *Store) Query(ctx context.Context, query, graph string) ([][]any, error) {
	sel := sparql.Union
	if graph != "" {
		if err := sparql.ValidateIRI(graph); err != nil {
			return nil, err
		}
		sel = sparql.Named(graph)
	}
	res, err := s.client.Select(ctx, query, sel)
	if err != nil {
		return nil, err
	}
	return res.Tuples(), nil
}

func (s *Store) Graphs(ctx context.Context) ([]string, error) {
	res, err := s.client.Select(ctx, graphsQuery, sparql.Dataset)
	if err != nil {
		return nil, err
	}
	return res.Column("g"), nil
}

func (s *Store) RDEGraphs(ctx context.Context) ([]graphstore.RDEGraph, error) {
	res, err := s.client.Select(ctx, rdeGraphsQuery, sparql.Dataset)
	if err != nil {
		return nil, err
	}
	out := make([]graphstore.RDEGraph, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, graphstore.RDEGraph{Graph: row.String("g"), RDE: row.String("rde")})
	}
	return out, nil
}

func (s *Store) CrateURL(ctx context.Context, rde string) (string, error) {
	urls, err := s.column(ctx, crateURLQuery, "crate_url", sparql.Union, map[string]string{"rde": rde})
	if err != nil || len(urls) == 0 {
		return "", err
	}
	return urls[0], nil
}

func (s *Store) GraphsForFile(ctx context.Context, fileID string) ([]string, error) {
	return s.column(ctx, graphsForFileQuery, "url", sparql.Union, map[string]string{"file": fileID})
}

func (s *Store) GraphsForResult(ctx context.Context, resultID string) ([]string, error) {
	return s.column(ctx, graphsForResultQuery, "url", sparql.Union, map[string]string{"result": resultID})
}

func (s *Store) Workflow(ctx context.Context, graph string) ([]string, error) {
	return s.inGraph(ctx, workflowQuery, "workflow", graph)
}

func (s *Store) RunResults(ctx context.Context, graph string) ([]string, error) {
	return s.inGraph(ctx, runResultsQuery, "result", graph)
}

func (s *Store) RunObjects(ctx context.Context, graph string) ([]string, error) {
	return s.inGraph(ctx, runObjectsQuery, "object", graph)
}

func (s *Store) RunParams(ctx context.Context, graph string) ([]graphstore.Param, error) {
	if err := sparql.ValidateIRI(graph); err != nil {
		return nil, err
	}
	res, err := s.client.Select(ctx, runParamsQuery, sparql.Named(graph))
	if err != nil {
		return nil, err
	}
	out := make([]graphstore.Param, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, graphstore.Param{Name: row.String("name"), Value: row.String("value")})
	}
	return out, nil
}

func (s *Store) ObjectsForResult(ctx context.Context, resultID string) ([]string, error) {
	return s.column(ctx, objectsForResultQuery, "object", sparql.Union, map[string]string{"result": resultID})
}

func (s *Store) ActionsForResult(ctx context.Context, resultID string) ([]string, error) {
	return s.column(ctx, actionsForResultQuery, "action", sparql.Union, map[string]string{"result": resultID})
}

func (s *Store) ObjectsForAction(ctx context.Context, actionID string) ([]string, error) {
	return s.column(ctx, objectsForActionQuery, "object", sparql.Union, map[string]string{"action": actionID})
}

func (s *Store) ResultsForAction(ctx context.Context, actionID string) ([]string, error) {
	return s.column(ctx, resultsForActionQuery, "result", sparql.Union, map[string]string{"action": actionID})
}

func (s *Store) ExistingResults(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		iri, err := sparql.IRI(id)
		if err != nil {
			return nil, err
		}
		values = append(values, iri)
	}
	q := fmt.Sprintf(existingResultsQuery, strings.Join(values, " "))
	res, err := s.client.Select(ctx, q, sparql.Union)
	if err != nil {
		return nil, err
	}
	return res.Column("result"), nil
}

func (s *Store) IsFile(ctx context.Context, id string) (bool, error) {
	types, err := s.column(ctx, isFileQuery, "type", sparql.Union, map[string]string{"id": id})
	return len(types) > 0, err
}

func (s *Store) FileInfo(ctx context.Context, id string) (graphstore.FileInfo, error) {
	q, err := sparql.Build(fileInfoQuery, map[string]string{"id": id})
	if err != nil {
		return graphstore.FileInfo{}, err
	}
	res, err := s.client.Select(ctx, q, sparql.Union)
	if err != nil || len(res.Rows) == 0 {
		return graphstore.FileInfo{}, err
	}
	return graphstore.FileInfo{SHA256: res.Rows[0].String("sha256"), ContentSize: res.Rows[0].String("size")}, nil
}

func (s *Store) NextMove(ctx context.Context, path string) (string, error) {
	dests, err := s.column(ctx, nextMoveQuery, "dest", sparql.Union,
		map[string]string{"tool": graphstore.MoveToolID, "path": path})
	if err != nil || len(dests) == 0 {
		return "", err
	}
	return dests[0], nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() error { return nil }

func (s *Store) column(ctx context.Context, tmpl, name string, g sparql.Graph, args map[string]string) ([]string, error) {
	q, err := sparql.Build(tmpl, args)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Select(ctx, q, g)
	if err != nil {
		return nil, err
	}
	return res.Column(name), nil
}

func (s *Store) inGraph(ctx context.Context, tmpl, name, graph string) ([]string, error) {
	if graph == "" {
		return nil, provstorerr.New(provstorerr.CodeLookupInputInvalid, "graph id is required")
	}
	if err := sparql.ValidateIRI(graph); err != nil {
		return nil, err
	}
	return s.column(ctx, tmpl, name, sparql.Named(graph), nil)
}
