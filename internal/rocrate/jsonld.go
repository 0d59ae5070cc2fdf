// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package rocrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/knakk/rdf"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Parse reads a flattened RO-Crate JSON-LD document into a Graph,
// resolving relative identifiers against base (the crate's arcp location).
//
// Context handling covers what RO-Crates use in practice: the RO-Crate and
// workflow-run context URLs are recognised by name, inline term definitions
// are honoured, and any other term falls back to the schema.org vocabulary.
// Remote contexts are never fetched, and @list members are stored as
// repeated values rather than RDF collections.
func Parse(metadata []byte, base string) (*Graph, error) {
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return nil, provstorerr.Errorf(provstorerr.CodeServerInternalFailure, "invalid base IRI %q", base)
	}

	dec := json.NewDecoder(bytes.NewReader(metadata))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "decoding %s", MetadataFile)
	}

	p := &parser{
		base:  baseURL,
		vocab: SchemaNS,
		terms: make(map[string]string, len(builtinTerms)),
		graph: &Graph{},
	}
	for k, v := range builtinTerms {
		p.terms[k] = v
	}
	if err := p.loadContext(doc["@context"]); err != nil {
		return nil, err
	}

	nodes, ok := doc["@graph"].([]any)
	if !ok {
		nodes = []any{doc}
	}
	for i, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			return nil, provstorerr.Errorf(provstorerr.CodeCrateMetadataInvalidFormat, "@graph[%d] is not an object", i)
		}
		if _, err := p.node(node); err != nil {
			return nil, err
		}
	}
	return p.graph, nil
}

type parser struct {
	base   *url.URL
	vocab  string
	terms  map[string]string
	graph  *Graph
	blanks int
}

func (p *parser) loadContext(ctx any) error {
	switch c := ctx.(type) {
	case nil:
	case string:
		if !strings.HasPrefix(c, contextROPrefix) && c != ContextWfrun {
			slog.Debug("ignoring unknown remote JSON-LD context", "context", c)
		}
	case []any:
		for _, item := range c {
			if err := p.loadContext(item); err != nil {
				return err
			}
		}
	case map[string]any:
		for term, def := range c {
			switch d := def.(type) {
			case string:
				if term == "@vocab" {
					p.vocab = d
					continue
				}
				if strings.HasPrefix(term, "@") {
					continue
				}
				p.terms[term] = p.expandTerm(d)
			case map[string]any:
				if id, ok := d["@id"].(string); ok {
					p.terms[term] = p.expandTerm(id)
				}
			}
		}
	default:
		return provstorerr.Errorf(provstorerr.CodeCrateMetadataInvalidFormat, "unsupported @context of type %T", ctx)
	}
	return nil
}

// expandTerm maps a property or type name onto its IRI.
func (p *parser) expandTerm(term string) string {
	if iri, ok := p.terms[term]; ok {
		return iri
	}
	if prefix, local, ok := strings.Cut(term, ":"); ok {
		if ns, known := builtinPrefixes[prefix]; known {
			return ns + local
		}
		if ns, known := p.terms[prefix]; known {
			return ns + local
		}
		if strings.HasPrefix(local, "//") {
			return term
		}
	}
	return p.vocab + term
}

// resolveID maps a node identifier onto an absolute IRI or blank node.
func (p *parser) resolveID(id string) (rdf.Subject, error) {
	if label, ok := strings.CutPrefix(id, "_:"); ok {
		b, err := rdf.NewBlank(label)
		if err != nil {
			return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "invalid blank node %q", id)
		}
		return b, nil
	}
	ref, err := url.Parse(id)
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "invalid @id %q", id)
	}
	abs := id
	if !ref.IsAbs() {
		abs = p.base.ResolveReference(ref).String()
	}
	iri, err := rdf.NewIRI(abs)
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "invalid @id %q", id)
	}
	return iri, nil
}

func (p *parser) newBlank() rdf.Subject {
	p.blanks++
	b, _ := rdf.NewBlank(fmt.Sprintf("b%d", p.blanks))
	return b
}

// node emits the triples of one node object and returns its subject.
func (p *parser) node(n map[string]any) (rdf.Subject, error) {
	var subj rdf.Subject
	if id, ok := n["@id"].(string); ok {
		s, err := p.resolveID(id)
		if err != nil {
			return nil, err
		}
		subj = s
	} else {
		subj = p.newBlank()
	}

	for key, val := range n {
		switch key {
		case "@id", "@context", "@graph", "@reverse", "@index":
			continue
		case "@type":
			if err := p.types(subj, val); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(key, "@") {
			continue
		}
		pred, err := rdf.NewIRI(p.expandTerm(key))
		if err != nil {
			return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "invalid property %q", key)
		}
		if err := p.values(subj, pred, val); err != nil {
			return nil, err
		}
	}
	return subj, nil
}

func (p *parser) types(subj rdf.Subject, val any) error {
	typeIRI, _ := rdf.NewIRI(RDFType)
	for _, t := range asList(val) {
		name, ok := t.(string)
		if !ok {
			return provstorerr.Errorf(provstorerr.CodeCrateMetadataInvalidFormat, "@type values must be strings, got %T", t)
		}
		obj, err := rdf.NewIRI(p.expandTerm(name))
		if err != nil {
			return provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "invalid @type %q", name)
		}
		p.graph.add(subj, typeIRI, obj)
	}
	return nil
}

func (p *parser) values(subj rdf.Subject, pred rdf.IRI, val any) error {
	for _, v := range asList(val) {
		if m, ok := v.(map[string]any); ok {
			if list, isList := m["@list"]; isList {
				if err := p.values(subj, pred, list); err != nil {
					return err
				}
				continue
			}
		}
		obj, err := p.object(v)
		if err != nil {
			return err
		}
		if obj != nil {
			p.graph.add(subj, pred, obj)
		}
	}
	return nil
}

func (p *parser) object(v any) (rdf.Object, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return rdf.NewTypedLiteral(x, mustIRI(XSDString)), nil
	case bool:
		return rdf.NewTypedLiteral(fmt.Sprint(x), mustIRI(XSDBoolean)), nil
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return rdf.NewTypedLiteral(x.String(), mustIRI(XSDInteger)), nil
		}
		return rdf.NewTypedLiteral(x.String(), mustIRI(XSDDouble)), nil
	case map[string]any:
		if lit, ok := x["@value"]; ok {
			return p.valueObject(x, lit)
		}
		if len(x) == 1 {
			if id, ok := x["@id"].(string); ok {
				s, err := p.resolveID(id)
				if err != nil {
					return nil, err
				}
				return s.(rdf.Object), nil
			}
		}
		s, err := p.node(x)
		if err != nil {
			return nil, err
		}
		return s.(rdf.Object), nil
	default:
		return nil, provstorerr.Errorf(provstorerr.CodeCrateMetadataInvalidFormat, "unsupported JSON-LD value of type %T", v)
	}
}

func (p *parser) valueObject(x map[string]any, lit any) (rdf.Object, error) {
	lex := fmt.Sprint(lit)
	if lang, ok := x["@language"].(string); ok && lang != "" {
		l, err := rdf.NewLangLiteral(lex, lang)
		if err != nil {
			return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "invalid language tag %q", lang)
		}
		return l, nil
	}
	if dt, ok := x["@type"].(string); ok && dt != "" {
		iri, err := rdf.NewIRI(p.expandTerm(dt))
		if err != nil {
			return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "invalid datatype %q", dt)
		}
		return rdf.NewTypedLiteral(lex, iri), nil
	}
	return p.object(lit)
}

func asList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

func mustIRI(s string) rdf.IRI {
	iri, err := rdf.NewIRI(s)
	if err != nil {
		panic(err)
	}
	return iri
}
