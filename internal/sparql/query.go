// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package sparql

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/knakk/rdf"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

type graphKind int

const (
	graphUnion graphKind = iota
	graphNamed
	graphDataset
)

// Graph selects what a query's default graph is.
type Graph struct {
	kind graphKind
	iri  string
}

var (
	// Union makes the union of all named graphs the default graph.
	Union = Graph{kind: graphUnion}
	// Dataset sends no dataset parameters, for queries that use GRAPH ?g.
	Dataset = Graph{kind: graphDataset}
)

// Named makes a single named graph the default graph.
func Named(iri string) Graph {
	return Graph{kind: graphNamed, iri: iri}
}

// IRI returns the graph IRI for a Named selection, or "".
func (g Graph) IRI() string {
	return g.iri
}

func (g Graph) String() string {
	switch g.kind {
	case graphNamed:
		return g.iri
	case graphDataset:
		return "dataset"
	default:
		return "union"
	}
}

// Characters that may not appear inside an IRIREF (SPARQL 1.1 grammar).
const forbiddenIRIChars = "<>\"{}|^`\\"

// IRI validates s as an absolute IRI and returns it wrapped in angle
// brackets for substitution into a query.
func IRI(s string) (string, error) {
	if err := ValidateIRI(s); err != nil {
		return "", err
	}
	return "<" + s + ">", nil
}

// ValidateIRI rejects identifiers that cannot be written as an IRIREF.
func ValidateIRI(s string) error {
	if s == "" {
		return provstorerr.New(provstorerr.CodeLookupInputInvalid, "identifier must not be empty")
	}
	if strings.ContainsAny(s, forbiddenIRIChars) {
		return provstorerr.Errorf(provstorerr.CodeLookupInputInvalid, "identifier %q contains characters not allowed in an IRI", s)
	}
	for _, r := range s {
		if r <= 0x20 || r == 0x7f {
			return provstorerr.Errorf(provstorerr.CodeLookupInputInvalid, "identifier %q contains whitespace or control characters", s)
		}
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return provstorerr.Errorf(provstorerr.CodeLookupInputInvalid, "identifier %q is not an absolute IRI", s)
	}
	return nil
}

// Literal quotes s as a SPARQL string literal.
func Literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Build substitutes {{name}} placeholders in tmpl with validated IRIs from
// args. Every placeholder must have an argument.
func Build(tmpl string, args map[string]string) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		val, ok := args[name]
		if !ok {
			if firstErr == nil {
				firstErr = provstorerr.Errorf(provstorerr.CodeServerInternalFailure, "query placeholder %q has no argument", name)
			}
			return m
		}
		iri, err := IRI(val)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return iri
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Statement renders one triple in N-Triples syntax, without the newline.
func Statement(t rdf.Triple) string {
	return t.Subj.Serialize(rdf.NTriples) + " " +
		t.Pred.Serialize(rdf.NTriples) + " " +
		t.Obj.Serialize(rdf.NTriples) + " ."
}
