// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package sparql speaks the SPARQL 1.1 protocol to a dataset endpoint
// (Fuseki layout: {base}/{dataset}/sparql and {base}/{dataset}/update).
package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/knakk/rdf"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// DefaultUnionGraph is Jena's name for the union of all named graphs.
const DefaultUnionGraph = "urn:x-arq:UnionGraph"

const (
	resultsMediaType = "application/sparql-results+json"
	maxErrorBody     = 4096
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Dataset    string
	UnionGraph string
	Timeout    time.Duration

	// HTTPClient overrides the transport; tests inject httptest clients here.
	HTTPClient *http.Client
}

// Client issues queries and updates against one dataset.
type Client struct {
	queryURL   string
	updateURL  string
	pingURL    string
	unionGraph string
	http       *http.Client
}

// New creates a Client. BaseURL and Dataset are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Dataset == "" {
		return nil, provstorerr.New(provstorerr.CodeServerConfigInvalid, "sparql: base URL and dataset are required")
	}
	if cfg.UnionGraph == "" {
		cfg.UnionGraph = DefaultUnionGraph
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	ds := base + "/" + url.PathEscape(cfg.Dataset)
	return &Client{
		queryURL:   ds + "/sparql",
		updateURL:  ds + "/update",
		pingURL:    base + "/$/ping",
		unionGraph: cfg.UnionGraph,
		http:       hc,
	}, nil
}

// Select runs a SELECT or ASK query against the given graph selection.
func (c *Client) Select(ctx context.Context, query string, g Graph) (*Results, error) {
	form := url.Values{"query": {query}}
	switch g.kind {
	case graphUnion:
		form.Set("default-graph-uri", c.unionGraph)
	case graphNamed:
		form.Set("default-graph-uri", g.iri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "building sparql request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMediaType)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeResults(resp.Body)
}

// Update runs a SPARQL update.
func (c *Client) Update(ctx context.Context, update string) error {
	form := url.Values{"update": {update}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateURL, strings.NewReader(form.Encode()))
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "building sparql update")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// InsertGraph appends triples to the named graph in a single INSERT DATA
// request, so the whole graph becomes visible at once.
func (c *Client) InsertGraph(ctx context.Context, graph string, triples []rdf.Triple) error {
	g, err := IRI(graph)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("INSERT DATA {\n  GRAPH ")
	b.WriteString(g)
	b.WriteString(" {\n")
	for _, t := range triples {
		b.WriteString("    ")
		b.WriteString(Statement(t))
		b.WriteString("\n")
	}
	b.WriteString("  }\n}\n")

	slog.Debug("inserting named graph", "graph", graph, "triples", len(triples))
	return c.Update(ctx, b.String())
}

// Ping checks that the server answers on its admin ping endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pingURL, nil)
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "building ping request")
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// do sends req and maps transport and status failures onto the error
// taxonomy. The server's error text is passed through uninterpreted.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return nil, provstorerr.Wrapf(err, provstorerr.CodeUpstreamTriplestoreDown, "triple store unreachable at %s", req.URL.Host)
		}
		return nil, provstorerr.Wrapf(err, provstorerr.CodeUpstreamTriplestoreFailed, "triple store request failed")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	msg := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, provstorerr.Errorf(provstorerr.CodeQueryInputInvalid, "triple store rejected request: %s", msg)
	case resp.StatusCode == http.StatusNotFound:
		return nil, provstorerr.Errorf(provstorerr.CodeUpstreamTriplestoreDown, "dataset not found at %s: %s", req.URL.Path, msg)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, provstorerr.Errorf(provstorerr.CodeUpstreamTriplestoreDown, "triple store unavailable: %s", msg)
	default:
		return nil, provstorerr.Errorf(provstorerr.CodeUpstreamTriplestoreFailed, "triple store returned status %d: %s", resp.StatusCode, msg)
	}
}

// isUnreachable reports dial failures and timeouts.
func isUnreachable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type resultsDoc struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean"`
}

type binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang"`
	Datatype string `json:"datatype"`
}

func decodeResults(r io.Reader) (*Results, error) {
	var doc resultsDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeUpstreamTriplestoreFailed, "decoding sparql results")
	}

	res := &Results{Vars: doc.Head.Vars, Boolean: doc.Boolean}
	if doc.Results == nil {
		return res, nil
	}
	res.Rows = make([]Row, 0, len(doc.Results.Bindings))
	for _, b := range doc.Results.Bindings {
		row := make(Row, len(b))
		for name, v := range b {
			term, err := v.term()
			if err != nil {
				return nil, provstorerr.Wrapf(err, provstorerr.CodeUpstreamTriplestoreFailed, "decoding binding %q", name)
			}
			row[name] = term
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func (b binding) term() (rdf.Term, error) {
	switch b.Type {
	case "uri":
		return rdf.NewIRI(b.Value)
	case "bnode":
		return rdf.NewBlank(b.Value)
	case "literal", "typed-literal":
		if b.Lang != "" {
			return rdf.NewLangLiteral(b.Value, b.Lang)
		}
		if b.Datatype != "" {
			dt, err := rdf.NewIRI(b.Datatype)
			if err != nil {
				return nil, err
			}
			return rdf.NewTypedLiteral(b.Value, dt), nil
		}
		return rdf.NewLiteral(b.Value)
	default:
		return nil, fmt.Errorf("unknown binding type %q", b.Type)
	}
}
