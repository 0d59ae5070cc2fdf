// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package sparql_test

import (
	"testing"

	"github.com/provstor-dev/provstor/internal/sparql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIRI(t *testing.T) {
	tests := []struct {
		name    string
		iri     string
		wantErr bool
	}{
		{"file uri", "file:///data/FOOBAR123.deepvariant.vcf.gz", false},
		{"arcp with fragment", "arcp://uuid,6a1f/#annotation-1", false},
		{"http", "http://minio:9000/crates/proccrate1.zip", false},
		{"empty", "", true},
		{"relative", "data/out.txt", true},
		{"closing bracket injection", "file:///x> } ; DROP ALL ; { <y", true},
		{"quote", `file:///a"b`, true},
		{"space", "file:///a b", true},
		{"newline", "file:///a\nb", true},
		{"brace", "file:///a{b}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sparql.ValidateIRI(tt.iri)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	q, err := sparql.Build("SELECT ?a { ?a schema:result {{result}} . {{result}} a ?t }",
		map[string]string{"result": "file:///out.txt"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?a { ?a schema:result <file:///out.txt> . <file:///out.txt> a ?t }", q)
}

func TestBuild_RejectsInjection(t *testing.T) {
	_, err := sparql.Build("SELECT ?a { ?a ?p {{x}} }", map[string]string{"x": "file:///x> . ?s ?p ?o . <y"})
	require.Error(t, err)
}

func TestBuild_MissingArgument(t *testing.T) {
	_, err := sparql.Build("SELECT ?a { ?a ?p {{x}} }", nil)
	require.Error(t, err)
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, sparql.Literal("plain"))
	assert.Equal(t, `"say \"hi\"\n"`, sparql.Literal("say \"hi\"\n"))
	assert.Equal(t, `"back\\slash"`, sparql.Literal(`back\slash`))
}

func TestGraphString(t *testing.T) {
	assert.Equal(t, "union", sparql.Union.String())
	assert.Equal(t, "dataset", sparql.Dataset.String())
	assert.Equal(t, "http://x/a.zip", sparql.Named("http://x/a.zip").String())
	assert.Equal(t, "http://x/a.zip", sparql.Named("http://x/a.zip").IRI())
}
