// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package rocrate

import (
	"slices"
	"strings"

	"github.com/knakk/rdf"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Graph is a crate's metadata as RDF, parsed locally and not yet stored.
type Graph struct {
	Triples []rdf.Triple

	// bySubject holds the positions in Triples of each subject's triples.
	bySubject map[string][]int
	// byType holds the distinct IRI subjects of each rdf:type, in order.
	byType map[string][]string
	// indexed is len(Triples) when the indexes were last brought up to date.
	indexed int
}

func (g *Graph) add(s rdf.Subject, p rdf.Predicate, o rdf.Object) {
	g.Triples = append(g.Triples, rdf.Triple{Subj: s, Pred: p, Obj: o})
}

// index folds triples appended since the last call into the lookup maps.
func (g *Graph) index() {
	if g.bySubject == nil || g.indexed > len(g.Triples) {
		g.bySubject = make(map[string][]int)
		g.byType = make(map[string][]string)
		g.indexed = 0
	}
	for i := g.indexed; i < len(g.Triples); i++ {
		t := g.Triples[i]
		subj := t.Subj.String()
		g.bySubject[subj] = append(g.bySubject[subj], i)
		if t.Pred.String() == RDFType && t.Subj.Type() == rdf.TermIRI {
			typ := t.Obj.String()
			if !g.hasTypeIndexed(subj, typ, i) {
				g.byType[typ] = append(g.byType[typ], subj)
			}
		}
	}
	g.indexed = len(g.Triples)
}

// hasTypeIndexed reports whether subj was typed typ before position pos.
func (g *Graph) hasTypeIndexed(subj, typ string, pos int) bool {
	for _, i := range g.bySubject[subj] {
		if i >= pos {
			break
		}
		t := g.Triples[i]
		if t.Pred.String() == RDFType && t.Obj.String() == typ {
			return true
		}
	}
	return false
}

// Objects returns the values of pred on subj, in document order.
func (g *Graph) Objects(subj, pred string) []rdf.Term {
	g.index()
	var out []rdf.Term
	for _, i := range g.bySubject[subj] {
		if t := g.Triples[i]; t.Pred.String() == pred {
			out = append(out, t.Obj)
		}
	}
	return out
}

// HasType reports whether subj carries rdf:type typeIRI.
func (g *Graph) HasType(subj, typeIRI string) bool {
	for _, o := range g.Objects(subj, RDFType) {
		if o.String() == typeIRI {
			return true
		}
	}
	return false
}

// SubjectsOfType returns the distinct IRIs typed typeIRI, in document order.
func (g *Graph) SubjectsOfType(typeIRI string) []string {
	g.index()
	return slices.Clone(g.byType[typeIRI])
}

// RootDataEntity returns the entity that the metadata descriptor is about:
// a CreativeWork whose id contains ro-crate-metadata.json.
func (g *Graph) RootDataEntity() (string, error) {
	var rdes []string
	seen := make(map[string]struct{})
	for _, md := range g.SubjectsOfType(SchemaCreativeWork) {
		if !strings.Contains(md, MetadataFile) {
			continue
		}
		for _, about := range g.Objects(md, SchemaAbout) {
			if about.Type() != rdf.TermIRI {
				continue
			}
			if s := about.String(); !seenBefore(seen, s) {
				rdes = append(rdes, s)
			}
		}
	}

	switch len(rdes) {
	case 0:
		return "", provstorerr.New(provstorerr.CodeCrateRDEMissing, "crate metadata has no root data entity")
	case 1:
		return rdes[0], nil
	default:
		return "", provstorerr.New(provstorerr.CodeCrateRDEAmbiguous, "crate metadata has more than one root data entity",
			provstorerr.Field("candidates", rdes))
	}
}

// ActionResults returns the distinct IRI results of every CreateAction.
func (g *Graph) ActionResults() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, action := range g.SubjectsOfType(SchemaCreateAction) {
		for _, r := range g.Objects(action, SchemaResult) {
			if r.Type() != rdf.TermIRI {
				continue
			}
			if s := r.String(); !seenBefore(seen, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// seenBefore reports whether s is in seen, adding it when absent.
func seenBefore(seen map[string]struct{}, s string) bool {
	if _, ok := seen[s]; ok {
		return true
	}
	seen[s] = struct{}{}
	return false
}

// SetURL stamps the root data entity with the crate's archive URL.
func (g *Graph) SetURL(rde, crateURL string) error {
	s, err := rdf.NewIRI(rde)
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCrateMetadataInvalidFormat, "root data entity %q", rde)
	}
	p, _ := rdf.NewIRI(SchemaURL)
	g.add(s, p, rdf.NewTypedLiteral(crateURL, mustIRI(XSDString)))
	return nil
}
