// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package sparql_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/knakk/rdf"
	"github.com/provstor-dev/provstor/internal/sparql"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectResponse = `{
  "head": {"vars": ["action", "label"]},
  "results": {"bindings": [
    {"action": {"type": "uri", "value": "arcp://uuid,1/#annotation-1"},
     "label": {"type": "literal", "value": "annotate", "xml:lang": "en"}},
    {"action": {"type": "uri", "value": "arcp://uuid,2/#run"}}
  ]}
}`

type recorded struct {
	path   string
	form   url.Values
	accept string
}

func newFakeFuseki(t *testing.T, status int, body string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		rec.path = r.URL.Path
		rec.form = r.PostForm
		rec.accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newClient(t *testing.T, baseURL string) *sparql.Client {
	t.Helper()
	c, err := sparql.New(sparql.Config{BaseURL: baseURL, Dataset: "ds"})
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// Select
// ---------------------------------------------------------------------------

func TestSelect_UnionGraphByDefault(t *testing.T) {
	srv, rec := newFakeFuseki(t, http.StatusOK, selectResponse)
	c := newClient(t, srv.URL)

	res, err := c.Select(context.Background(), "SELECT ?action WHERE { ?action ?p ?o }", sparql.Union)
	require.NoError(t, err)

	assert.Equal(t, "/ds/sparql", rec.path)
	assert.Equal(t, "urn:x-arq:UnionGraph", rec.form.Get("default-graph-uri"))
	assert.Equal(t, "application/sparql-results+json", rec.accept)

	assert.Equal(t, []string{"action", "label"}, res.Vars)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "arcp://uuid,1/#annotation-1", res.Rows[0].String("action"))
	assert.Equal(t, "annotate", res.Rows[0].String("label"))
	assert.Equal(t, "", res.Rows[1].String("label"))
	assert.Equal(t, []string{"arcp://uuid,1/#annotation-1", "arcp://uuid,2/#run"}, res.Column("action"))
}

func TestSelect_PlainLiteralIsXSDString(t *testing.T) {
	srv, _ := newFakeFuseki(t, http.StatusOK, `{
  "head": {"vars": ["url"]},
  "results": {"bindings": [{"url": {"type": "literal", "value": "http://minio:9000/crates/a.zip"}}]}
}`)
	c := newClient(t, srv.URL)

	res, err := c.Select(context.Background(), "SELECT ?url {}", sparql.Union)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	lit, ok := res.Rows[0]["url"].(rdf.Literal)
	require.True(t, ok, "expected a literal, got %T", res.Rows[0]["url"])
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#string", lit.DataType.String())
	assert.Equal(t, "http://minio:9000/crates/a.zip", lit.String())
}

func TestSelect_NamedGraph(t *testing.T) {
	srv, rec := newFakeFuseki(t, http.StatusOK, selectResponse)
	c := newClient(t, srv.URL)

	_, err := c.Select(context.Background(), "SELECT * {}", sparql.Named("http://minio:9000/crates/a.zip"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/crates/a.zip", rec.form.Get("default-graph-uri"))
}

func TestSelect_DatasetSendsNoGraphParams(t *testing.T) {
	srv, rec := newFakeFuseki(t, http.StatusOK, selectResponse)
	c := newClient(t, srv.URL)

	_, err := c.Select(context.Background(), "SELECT ?g { GRAPH ?g {} }", sparql.Dataset)
	require.NoError(t, err)
	_, has := rec.form["default-graph-uri"]
	assert.False(t, has)
}

func TestSelect_TuplesKeepVarOrderAndNulls(t *testing.T) {
	srv, _ := newFakeFuseki(t, http.StatusOK, selectResponse)
	c := newClient(t, srv.URL)

	res, err := c.Select(context.Background(), "SELECT * {}", sparql.Union)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"arcp://uuid,1/#annotation-1", "annotate"},
		{"arcp://uuid,2/#run", nil},
	}, res.Tuples())
}

func TestSelect_AskResult(t *testing.T) {
	srv, _ := newFakeFuseki(t, http.StatusOK, `{"head": {}, "boolean": true}`)
	c := newClient(t, srv.URL)

	res, err := c.Select(context.Background(), "ASK {}", sparql.Union)
	require.NoError(t, err)
	require.NotNil(t, res.Boolean)
	assert.True(t, *res.Boolean)
	assert.Equal(t, [][]any{{true}}, res.Tuples())
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestSelect_SyntaxErrorPassesThroughText(t *testing.T) {
	srv, _ := newFakeFuseki(t, http.StatusBadRequest, "Lexical error at line 1")
	c := newClient(t, srv.URL)

	_, err := c.Select(context.Background(), "SELEC", sparql.Union)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, provstorerr.HTTPStatus(err))
	assert.Contains(t, err.Error(), "Lexical error at line 1")
}

func TestSelect_ServerErrorIsUpstreamFailure(t *testing.T) {
	srv, _ := newFakeFuseki(t, http.StatusInternalServerError, "boom")
	c := newClient(t, srv.URL)

	_, err := c.Select(context.Background(), "SELECT * {}", sparql.Union)
	require.Error(t, err)
	assert.True(t, provstorerr.IsUpstreamFailure(err))
}

func TestSelect_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := newClient(t, addr)
	_, err := c.Select(context.Background(), "SELECT * {}", sparql.Union)
	require.Error(t, err)
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeUpstreamTriplestoreDown))
	assert.Equal(t, http.StatusServiceUnavailable, provstorerr.HTTPStatus(err))
}

func TestNew_RequiresBaseAndDataset(t *testing.T) {
	_, err := sparql.New(sparql.Config{Dataset: "ds"})
	require.Error(t, err)
	_, err = sparql.New(sparql.Config{BaseURL: "http://fuseki:3030"})
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Update / InsertGraph
// ---------------------------------------------------------------------------

func TestInsertGraph_WritesOneInsertData(t *testing.T) {
	srv, rec := newFakeFuseki(t, http.StatusNoContent, "")
	c := newClient(t, srv.URL)

	s, _ := rdf.NewIRI("arcp://uuid,1/")
	p, _ := rdf.NewIRI("http://schema.org/url")
	o, err := rdf.NewLiteral("http://minio:9000/crates/a.zip")
	require.NoError(t, err)

	err = c.InsertGraph(context.Background(), "http://minio:9000/crates/a.zip",
		[]rdf.Triple{{Subj: s, Pred: p, Obj: o}})
	require.NoError(t, err)

	assert.Equal(t, "/ds/update", rec.path)
	update := rec.form.Get("update")
	assert.Contains(t, update, "INSERT DATA")
	assert.Contains(t, update, "GRAPH <http://minio:9000/crates/a.zip>")
	assert.Contains(t, update, "<arcp://uuid,1/> <http://schema.org/url>")
}

func TestInsertGraph_RejectsBadGraphIRI(t *testing.T) {
	srv, _ := newFakeFuseki(t, http.StatusNoContent, "")
	c := newClient(t, srv.URL)

	err := c.InsertGraph(context.Background(), "http://x/a b.zip", nil)
	require.Error(t, err)
	assert.True(t, provstorerr.IsInvalidInput(err))
}
