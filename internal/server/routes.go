// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package server

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/provstor-dev/provstor/internal/graphstore"
	"github.com/provstor-dev/provstor/internal/pathops"
	"github.com/provstor-dev/provstor/internal/provenance"
	"github.com/provstor-dev/provstor/internal/rocrate"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/provstor-dev/provstor/pkg/health"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Dependency health",
		Tags:        []string{"system"},
	}, s.handleHealth)

	// Upload
	huma.Register(s.api, huma.Operation{
		OperationID:  "upload-crate",
		Method:       http.MethodPost,
		Path:         "/upload/crate",
		Summary:      "Upload an RO-Crate zip archive",
		Tags:         []string{"upload"},
		MaxBodyBytes: s.cfg.MaxUploadBytes,
	}, s.handleUploadCrate)

	// Query
	huma.Register(s.api, huma.Operation{
		OperationID: "list-graphs",
		Method:      http.MethodGet,
		Path:        "/query/list-graphs",
		Summary:     "List crate graphs",
		Tags:        []string{"query"},
	}, s.handleListGraphs)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-rde-graphs",
		Method:      http.MethodGet,
		Path:        "/query/list-rde-graphs",
		Summary:     "List crate graphs with their root data entities",
		Tags:        []string{"query"},
	}, s.handleListRDEGraphs)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-rde-graphs-legacy",
		Method:      http.MethodGet,
		Path:        "/query/list-RDE-graphs",
		Summary:     "List crate graphs with their root data entities",
		Tags:        []string{"query"},
		Hidden:      true,
	}, s.handleListRDEGraphs)

	huma.Register(s.api, huma.Operation{
		OperationID:  "run-query",
		Method:       http.MethodPost,
		Path:         "/query/run-query",
		Summary:      "Run a SPARQL query",
		Tags:         []string{"query"},
		MaxBodyBytes: 1 << 20,
	}, s.handleRunQuery)

	// Get
	huma.Register(s.api, huma.Operation{
		OperationID: "get-crate",
		Method:      http.MethodGet,
		Path:        "/get/crate",
		Summary:     "Download the crate with a root data entity",
		Tags:        []string{"get"},
	}, s.handleGetCrate)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-file",
		Method:      http.MethodGet,
		Path:        "/get/file",
		Summary:     "Download a file inside a stored crate",
		Tags:        []string{"get"},
	}, s.handleGetFile)

	s.registerLookups()

	// Provenance
	huma.Register(s.api, huma.Operation{
		OperationID: "backtrack",
		Method:      http.MethodGet,
		Path:        "/backtrack",
		Summary:     "Trace the actions that produced a result",
		Tags:        []string{"provenance"},
	}, s.handleBacktrack)

	huma.Register(s.api, huma.Operation{
		OperationID: "pathops-copy",
		Method:      http.MethodPost,
		Path:        "/pathops/copy",
		Summary:     "Record a file copy",
		Tags:        []string{"pathops"},
	}, s.handleCopy)

	huma.Register(s.api, huma.Operation{
		OperationID: "pathops-move",
		Method:      http.MethodPost,
		Path:        "/pathops/move",
		Summary:     "Record a file move",
		Tags:        []string{"pathops"},
	}, s.handleMove)

	huma.Register(s.api, huma.Operation{
		OperationID: "pathops-movechain",
		Method:      http.MethodGet,
		Path:        "/pathops/movechain",
		Summary:     "Follow the recorded moves of a path",
		Tags:        []string{"pathops"},
	}, s.handleMoveChain)
}

func (s *Server) registerLookups() {
	byResult := []struct {
		id, path, summary string
		fn                func(context.Context, string) ([]string, error)
	}{
		{"get-graphs-for-result", "/get/graphs-for-result", "Crate graphs whose actions produce a result", s.graphs().GraphsForResult},
		{"get-objects-for-result", "/get/objects-for-result", "Inputs of the actions that produce a result", s.graphs().ObjectsForResult},
		{"get-actions-for-result", "/get/actions-for-result", "Actions that produce a result", s.graphs().ActionsForResult},
	}
	for _, l := range byResult {
		huma.Register(s.api, huma.Operation{
			OperationID: l.id, Method: http.MethodGet, Path: l.path, Summary: l.summary, Tags: []string{"get"},
		}, func(ctx context.Context, in *resultIDInput) (*listOutput, error) {
			return list(ctx, in.ResultID, l.fn)
		})
	}

	byAction := []struct {
		id, path, summary string
		fn                func(context.Context, string) ([]string, error)
	}{
		{"get-objects-for-action", "/get/objects-for-action", "Inputs of an action", s.graphs().ObjectsForAction},
		{"get-results-for-action", "/get/results-for-action", "Outputs of an action", s.graphs().ResultsForAction},
	}
	for _, l := range byAction {
		huma.Register(s.api, huma.Operation{
			OperationID: l.id, Method: http.MethodGet, Path: l.path, Summary: l.summary, Tags: []string{"get"},
		}, func(ctx context.Context, in *actionIDInput) (*listOutput, error) {
			return list(ctx, in.ActionID, l.fn)
		})
	}

	byGraph := []struct {
		id, path, summary string
		fn                func(context.Context, string) ([]string, error)
	}{
		{"get-workflow", "/get/workflow", "Main workflow of a crate", s.graphs().Workflow},
		{"get-run-results", "/get/run-results", "Results of a crate's workflow run", s.graphs().RunResults},
		{"get-run-objects", "/get/run-objects", "Inputs of a crate's workflow run", s.graphs().RunObjects},
	}
	for _, l := range byGraph {
		huma.Register(s.api, huma.Operation{
			OperationID: l.id, Method: http.MethodGet, Path: l.path, Summary: l.summary, Tags: []string{"get"},
		}, func(ctx context.Context, in *graphIDInput) (*listOutput, error) {
			return list(ctx, s.services.catalog.ResolveGraph(in.GraphID), l.fn)
		})
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-graphs-for-file",
		Method:      http.MethodGet,
		Path:        "/get/graphs-for-file",
		Summary:     "Crate graphs that contain a file",
		Tags:        []string{"get"},
	}, func(ctx context.Context, in *fileIDInput) (*listOutput, error) {
		return list(ctx, in.FileID, s.graphs().GraphsForFile)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-run-params",
		Method:      http.MethodGet,
		Path:        "/get/run-params",
		Summary:     "Parameters of a crate's workflow run",
		Tags:        []string{"get"},
	}, s.handleRunParams)
}

func (s *Server) graphs() graphstore.Store {
	return s.services.catalog.Graphs()
}

// --- Request/Response types for huma ---

type resultIDInput struct {
	ResultID string `query:"result_id" required:"true" doc:"Result entity id"`
}

type actionIDInput struct {
	ActionID string `query:"action_id" required:"true" doc:"Action entity id"`
}

type graphIDInput struct {
	GraphID string `query:"graph_id" required:"true" doc:"Crate graph URL or bare crate name"`
}

type fileIDInput struct {
	FileID string `query:"file_id" required:"true" doc:"File entity id"`
}

type listOutput struct {
	Body struct {
		Result []string `json:"result"`
	}
}

type tupleOutput struct {
	Body struct {
		Result [][]string `json:"result"`
	}
}

type healthOutput struct {
	Status int
	Body   health.Report
}

type uploadInput struct {
	RawBody multipart.Form
}

type crateOutput struct {
	Body struct {
		Result   string `json:"result" example:"success"`
		CrateURL string `json:"crate_url" doc:"URL the archive is stored at"`
	}
}

type runQueryInput struct {
	Graph   string `query:"graph" doc:"Crate graph URL or bare crate name; all crates when empty"`
	RawBody multipart.Form
}

type runQueryOutput struct {
	Body struct {
		Result [][]any `json:"result"`
	}
}

type getCrateInput struct {
	RDEID string `query:"rde_id" required:"true" doc:"Root data entity of the crate"`
}

type getFileInput struct {
	FileURI string `query:"file_uri" required:"true" doc:"arcp:// locator of a file inside a crate"`
}

type downloadOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

type backtrackInput struct {
	ResultID string `query:"result_id" doc:"Result entity to trace"`
	FileURI  string `query:"file_uri" doc:"File whose crate's workflow results are traced"`
}

type backtrackOutput struct {
	Body struct {
		Result []provenance.Step `json:"result"`
	}
}

type pathopInput struct {
	Src  string `query:"src" required:"true" doc:"file: URI of the source path"`
	Dest string `query:"dest" required:"true" doc:"file: URI of the destination path"`
	When string `query:"when" doc:"Operation time (RFC 3339); now when empty"`
}

type moveChainInput struct {
	PathID string `query:"path_id" required:"true" doc:"file: URI to follow"`
}

// --- Handlers ---

func list(ctx context.Context, id string, fn func(context.Context, string) ([]string, error)) (*listOutput, error) {
	res, err := fn(ctx, id)
	if err != nil {
		return nil, apiError(err)
	}
	out := &listOutput{}
	out.Body.Result = orEmpty(res)
	return out, nil
}

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{Status: http.StatusOK, Body: health.Report{Status: health.StatusOK}}
	if checker := s.services.health; checker != nil {
		out.Body = checker.Run(ctx)
	}
	if out.Body.Status != health.StatusOK {
		out.Status = http.StatusServiceUnavailable
	}
	return out, nil
}

func (s *Server) handleUploadCrate(ctx context.Context, in *uploadInput) (*crateOutput, error) {
	data, filename, err := formFile(&in.RawBody, "crate_path")
	if err != nil {
		return nil, apiError(err)
	}
	crateURL, err := s.services.catalog.Ingest(ctx, filename, data)
	if err != nil {
		return nil, apiError(err)
	}
	out := &crateOutput{}
	out.Body.Result = "success"
	out.Body.CrateURL = crateURL
	return out, nil
}

func (s *Server) handleListGraphs(ctx context.Context, _ *struct{}) (*listOutput, error) {
	return list(ctx, "", func(ctx context.Context, _ string) ([]string, error) {
		return s.graphs().Graphs(ctx)
	})
}

func (s *Server) handleListRDEGraphs(ctx context.Context, _ *struct{}) (*tupleOutput, error) {
	pairs, err := s.graphs().RDEGraphs(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	out := &tupleOutput{}
	out.Body.Result = make([][]string, 0, len(pairs))
	for _, p := range pairs {
		out.Body.Result = append(out.Body.Result, []string{p.Graph, p.RDE})
	}
	return out, nil
}

func (s *Server) handleRunParams(ctx context.Context, in *graphIDInput) (*tupleOutput, error) {
	params, err := s.graphs().RunParams(ctx, s.services.catalog.ResolveGraph(in.GraphID))
	if err != nil {
		return nil, apiError(err)
	}
	out := &tupleOutput{}
	out.Body.Result = make([][]string, 0, len(params))
	for _, p := range params {
		out.Body.Result = append(out.Body.Result, []string{p.Name, p.Value})
	}
	return out, nil
}

func (s *Server) handleRunQuery(ctx context.Context, in *runQueryInput) (*runQueryOutput, error) {
	query, err := formText(&in.RawBody, "query_file")
	if err != nil {
		return nil, apiError(err)
	}
	rows, err := s.services.catalog.Query(ctx, query, in.Graph)
	if err != nil {
		return nil, apiError(err)
	}
	out := &runQueryOutput{}
	out.Body.Result = rows
	if out.Body.Result == nil {
		out.Body.Result = [][]any{}
	}
	return out, nil
}

func (s *Server) handleGetCrate(ctx context.Context, in *getCrateInput) (*downloadOutput, error) {
	data, name, err := s.services.catalog.Crate(ctx, in.RDEID)
	if err != nil {
		return nil, apiError(err)
	}
	return download(data, name, "application/zip"), nil
}

func (s *Server) handleGetFile(ctx context.Context, in *getFileInput) (*downloadOutput, error) {
	data, name, err := s.services.catalog.File(ctx, in.FileURI)
	if err != nil {
		return nil, apiError(err)
	}
	return download(data, name, rocrate.ContentType(name)), nil
}

func (s *Server) handleBacktrack(ctx context.Context, in *backtrackInput) (*backtrackOutput, error) {
	var (
		trace []provenance.Step
		from  string
		err   error
	)
	switch {
	case strings.TrimSpace(in.ResultID) != "":
		from = in.ResultID
		trace, err = s.services.engine.Backtrack(ctx, in.ResultID)
	case strings.TrimSpace(in.FileURI) != "":
		from = in.FileURI
		trace, err = s.services.engine.BacktrackFile(ctx, in.FileURI)
	default:
		err = provstorerr.New(provstorerr.CodeLookupInputInvalid, "either file_uri or result_id must be provided")
	}
	if err == nil && len(trace) == 0 {
		err = provstorerr.Errorf(provstorerr.CodeLookupEntityNotFound, "no backtrack results found for %q", from)
	}
	if err != nil {
		return nil, apiError(err)
	}
	out := &backtrackOutput{}
	out.Body.Result = trace
	return out, nil
}

func (s *Server) handleCopy(ctx context.Context, in *pathopInput) (*crateOutput, error) {
	return s.pathop(ctx, in, s.services.pathops.Copy)
}

func (s *Server) handleMove(ctx context.Context, in *pathopInput) (*crateOutput, error) {
	return s.pathop(ctx, in, s.services.pathops.Move)
}

func (s *Server) pathop(ctx context.Context, in *pathopInput, op func(context.Context, string, string, time.Time) (*pathops.Result, error)) (*crateOutput, error) {
	when, err := pathops.ParseWhen(in.When)
	if err != nil {
		return nil, apiError(err)
	}
	res, err := op(ctx, in.Src, in.Dest, when)
	if err != nil {
		return nil, apiError(err)
	}
	out := &crateOutput{}
	out.Body.Result = res.Result
	out.Body.CrateURL = res.CrateURL
	return out, nil
}

func (s *Server) handleMoveChain(ctx context.Context, in *moveChainInput) (*listOutput, error) {
	return list(ctx, in.PathID, s.services.engine.MoveChain)
}

// --- helpers ---

// zipTypes are the part content types accepted for crate uploads.
var zipTypes = []string{"application/zip", "application/x-zip-compressed"}

func formFile(form *multipart.Form, field string) ([]byte, string, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, "", provstorerr.Errorf(provstorerr.CodeServerRequestInvalid, "%s is required", field)
	}
	fh := headers[0]
	ct, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if !slices.Contains(zipTypes, ct) {
		return nil, "", provstorerr.Errorf(provstorerr.CodeCrateUploadUnsupportedType, "%s must be a zip file", field)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", provstorerr.Wrapf(err, provstorerr.CodeServerRequestInvalid, "opening %s", field)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", provstorerr.Wrapf(err, provstorerr.CodeServerRequestInvalid, "reading %s", field)
	}
	return data, fh.Filename, nil
}

// formText returns a form field sent either as a file part or a value.
func formText(form *multipart.Form, field string) (string, error) {
	if headers := form.File[field]; len(headers) > 0 {
		f, err := headers[0].Open()
		if err != nil {
			return "", provstorerr.Wrapf(err, provstorerr.CodeServerRequestInvalid, "opening %s", field)
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", provstorerr.Wrapf(err, provstorerr.CodeServerRequestInvalid, "reading %s", field)
		}
		return string(data), nil
	}
	if vals := form.Value[field]; len(vals) > 0 {
		return vals[0], nil
	}
	return "", provstorerr.Errorf(provstorerr.CodeServerRequestInvalid, "%s is required", field)
}

func download(data []byte, name, contentType string) *downloadOutput {
	return &downloadOutput{
		ContentType:        contentType,
		ContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": name}),
		Body:               data,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
