// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package provenance walks the action graph recorded across all crates to
// explain how a result was produced and where a path was moved to.
package provenance

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/provstor-dev/provstor/internal/graphstore"
	"github.com/provstor-dev/provstor/internal/metrics"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Step is one action in a provenance trace.
type Step struct {
	Action  string   `json:"action" yaml:"action"`
	Objects []string `json:"objects" yaml:"objects"`
	Results []string `json:"results" yaml:"results"`
}

// Engine answers provenance questions against a graph store.
type Engine struct {
	graphs graphstore.Store
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(graphs graphstore.Store) *Engine {
	return &Engine{graphs: graphs, logger: slog.Default()}
}

// work is a pending traversal item: an entity whose producing actions
// still have to be looked up, or an action that still has to be emitted.
type work struct {
	id     string
	action bool
}

// Backtrack returns every action that contributed to resultID, depth
// first: each action is followed by the traces of its objects before the
// next action producing the same entity. Each entity is expanded at most
// once, so cycles terminate. An id that no action produced yields an empty
// trace, not an error.
func (e *Engine) Backtrack(ctx context.Context, resultID string) (trace []Step, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBacktrack(start, len(trace), err) }()

	resultID = strings.TrimSpace(resultID)
	if resultID == "" {
		return nil, provstorerr.New(provstorerr.CodeLookupInputInvalid, "either file_uri or result_id must be provided")
	}

	trace = []Step{}
	visited := make(map[string]struct{})
	stack := []work{{id: resultID}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, provstorerr.Wrap(err, provstorerr.CodeServerInternalFailure, "backtrack cancelled")
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.action {
			step, err := e.step(ctx, item.id)
			if err != nil {
				return nil, err
			}
			trace = append(trace, step)
			for _, obj := range slices.Backward(step.Objects) {
				stack = append(stack, work{id: obj})
			}
			continue
		}

		if _, seen := visited[item.id]; seen {
			continue
		}
		visited[item.id] = struct{}{}

		actions, err := e.graphs.ActionsForResult(ctx, item.id)
		if err != nil {
			return nil, err
		}
		for _, a := range slices.Backward(actions) {
			stack = append(stack, work{id: a, action: true})
		}
	}

	e.logger.Debug("backtrack complete", "result_id", resultID, "steps", len(trace), "entities", len(visited))
	return trace, nil
}

func (e *Engine) step(ctx context.Context, action string) (Step, error) {
	objects, err := e.graphs.ObjectsForAction(ctx, action)
	if err != nil {
		return Step{}, err
	}
	results, err := e.graphs.ResultsForAction(ctx, action)
	if err != nil {
		return Step{}, err
	}
	return Step{Action: action, Objects: objects, Results: results}, nil
}

// BacktrackFile backtracks from the main workflow result of the crate that
// contains fileURI, an arcp:// locator.
func (e *Engine) BacktrackFile(ctx context.Context, fileURI string) ([]Step, error) {
	fileURI = strings.TrimSpace(fileURI)
	if fileURI == "" {
		return nil, provstorerr.New(provstorerr.CodeLookupInputInvalid, "either file_uri or result_id must be provided")
	}
	if u, err := url.Parse(fileURI); err != nil || !strings.EqualFold(u.Scheme, "arcp") {
		return nil, provstorerr.Errorf(provstorerr.CodeLookupLocatorUnsupported,
			"unsupported file locator %q: expected an arcp:// crate locator", fileURI)
	}

	graphs, err := e.graphs.GraphsForFile(ctx, fileURI)
	if err != nil {
		return nil, err
	}
	if len(graphs) == 0 {
		return nil, provstorerr.Errorf(provstorerr.CodeLookupEntityNotFound, "no graphs found for file %q", fileURI)
	}
	results, err := e.graphs.RunResults(ctx, graphs[0])
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, provstorerr.Errorf(provstorerr.CodeLookupEntityNotFound, "no results found for file %q", fileURI)
	}
	return e.Backtrack(ctx, results[0])
}

// MoveChain follows recorded moves from pathID and returns each successive
// destination. A path already in the chain ends it.
func (e *Engine) MoveChain(ctx context.Context, pathID string) ([]string, error) {
	pathID = strings.TrimSpace(pathID)
	if pathID == "" {
		return nil, provstorerr.New(provstorerr.CodeLookupInputInvalid, "path_id is required")
	}

	chain := []string{}
	visited := map[string]struct{}{pathID: {}}
	for cur := pathID; ; {
		next, err := e.graphs.NextMove(ctx, cur)
		if err != nil {
			return nil, err
		}
		if next == "" {
			return chain, nil
		}
		if _, seen := visited[next]; seen {
			e.logger.Warn("move chain loops back", "path_id", pathID, "at", next)
			return chain, nil
		}
		visited[next] = struct{}{}
		chain = append(chain, next)
		cur = next
	}
}
