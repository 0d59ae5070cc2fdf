// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package fuseki_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/config"
	"github.com/provstor-dev/provstor/internal/graphstore"
	"github.com/provstor-dev/provstor/internal/graphstore/fuseki"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// fakeEndpoint answers every query with one column of URI bindings and
// keeps the last request form.
type fakeEndpoint struct {
	mu   sync.Mutex
	last url.Values
	vars []string
	rows [][]string
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f.mu.Lock()
	f.last = r.PostForm
	vars, rows := f.vars, f.rows
	f.mu.Unlock()

	var bindings []string
	for _, row := range rows {
		var cols []string
		for i, v := range row {
			cols = append(cols, fmt.Sprintf(`%q: {"type": "uri", "value": %q}`, vars[i], v))
		}
		bindings = append(bindings, "{"+strings.Join(cols, ",")+"}")
	}
	quoted := make([]string, len(vars))
	for i, v := range vars {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	w.Header().Set("Content-Type", "application/sparql-results+json")
	_, _ = fmt.Fprintf(w, `{"head": {"vars": [%s]}, "results": {"bindings": [%s]}}`,
		strings.Join(quoted, ","), strings.Join(bindings, ","))
}

func (f *fakeEndpoint) respond(vars []string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vars, f.rows = vars, rows
}

func (f *fakeEndpoint) lastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func newStore(t *testing.T) (graphstore.Store, *fakeEndpoint) {
	t.Helper()
	fake := &fakeEndpoint{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := graphstore.New(config.TriplestoreConfig{
		Backend: "fuseki",
		Fuseki:  config.FusekiConfig{BaseURL: srv.URL, Dataset: "ds", UnionGraph: "urn:x-arq:UnionGraph"},
	})
	require.NoError(t, err)
	return s, fake
}

func TestActionsForResult_UnionGraph(t *testing.T) {
	s, fake := newStore(t)
	fake.respond([]string{"action"}, []string{"arcp://uuid,1/#annotation-1"}, []string{"arcp://uuid,1/#annotation-1"})

	actions, err := s.ActionsForResult(context.Background(), "file:///path/to/out.vcf.gz")
	require.NoError(t, err)
	assert.Equal(t, []string{"arcp://uuid,1/#annotation-1"}, actions)

	form := fake.lastForm()
	assert.Equal(t, "urn:x-arq:UnionGraph", form.Get("default-graph-uri"))
	assert.Contains(t, form.Get("query"), "schema:result <file:///path/to/out.vcf.gz>")
}

func TestRunResults_NamedGraph(t *testing.T) {
	s, fake := newStore(t)
	fake.respond([]string{"result"}, []string{"file:///out.vcf"})

	results, err := s.RunResults(context.Background(), "http://minio:9000/crates/run.zip")
	require.NoError(t, err)
	assert.Equal(t, []string{"file:///out.vcf"}, results)
	assert.Equal(t, "http://minio:9000/crates/run.zip", fake.lastForm().Get("default-graph-uri"))

	_, err = s.RunResults(context.Background(), "")
	require.Error(t, err)
	assert.True(t, provstorerr.IsInvalidInput(err))
}

func TestGraphs_NoDatasetParams(t *testing.T) {
	s, fake := newStore(t)
	fake.respond([]string{"g"}, []string{"http://minio:9000/crates/a.zip"}, []string{"http://minio:9000/crates/b.zip"})

	graphs, err := s.Graphs(context.Background())
	require.NoError(t, err)
	assert.Len(t, graphs, 2)
	assert.Empty(t, fake.lastForm().Get("default-graph-uri"))
}

func TestRDEGraphs(t *testing.T) {
	s, fake := newStore(t)
	fake.respond([]string{"g", "rde"}, []string{"http://minio:9000/crates/a.zip", "arcp://uuid,1/"})

	pairs, err := s.RDEGraphs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []graphstore.RDEGraph{{Graph: "http://minio:9000/crates/a.zip", RDE: "arcp://uuid,1/"}}, pairs)
}

func TestExistingResults_Values(t *testing.T) {
	s, fake := newStore(t)
	fake.respond([]string{"result"}, []string{"file:///b"})

	dups, err := s.ExistingResults(context.Background(), []string{"file:///a", "file:///b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"file:///b"}, dups)
	assert.Contains(t, fake.lastForm().Get("query"), "VALUES ?result { <file:///a> <file:///b> }")

	none, err := s.ExistingResults(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLookups_RejectInjection(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.ActionsForResult(ctx, "file:///x> } ; DROP ALL ; { <a")
	require.Error(t, err)
	assert.True(t, provstorerr.IsInvalidInput(err))

	_, err = s.ExistingResults(ctx, []string{"file:///ok", "not an iri"})
	require.Error(t, err)

	_, err = s.Query(ctx, "SELECT * WHERE { ?s ?p ?o }", "bad graph")
	require.Error(t, err)
}

func TestNextMove(t *testing.T) {
	s, fake := newStore(t)
	fake.respond([]string{"dest"}, []string{"file:///b"})

	dest, err := s.NextMove(context.Background(), "file:///a")
	require.NoError(t, err)
	assert.Equal(t, "file:///b", dest)
	assert.Contains(t, fake.lastForm().Get("query"), "<"+graphstore.MoveToolID+">")

	fake.respond([]string{"dest"})
	dest, err = s.NextMove(context.Background(), "file:///b")
	require.NoError(t, err)
	assert.Empty(t, dest)
}

func TestQuery_Tuples(t *testing.T) {
	s, fake := newStore(t)
	fake.respond([]string{"s", "o"}, []string{"http://a", "http://b"})

	rows, err := s.Query(context.Background(), "SELECT ?s ?o WHERE { ?s ?p ?o }", "http://minio:9000/crates/a.zip")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"http://a", "http://b"}}, rows)
	assert.Equal(t, "http://minio:9000/crates/a.zip", fake.lastForm().Get("default-graph-uri"))
}

func TestNew_UnsupportedBackend(t *testing.T) {
	_, err := graphstore.New(config.TriplestoreConfig{Backend: "oracle"})
	require.Error(t, err)
	assert.Equal(t, provstorerr.CodeStoreBackendUnsupported, provstorerr.CodeOf(err))
	assert.Contains(t, graphstore.Backends(), "fuseki")
}

func TestNew_RequiresDataset(t *testing.T) {
	_, err := fuseki.New(config.FusekiConfig{BaseURL: "http://fuseki:3030"})
	require.Error(t, err)
	assert.Equal(t, provstorerr.CodeServerConfigInvalid, provstorerr.CodeOf(err))
}
