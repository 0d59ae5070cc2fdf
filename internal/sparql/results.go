// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package sparql

import "github.com/knakk/rdf"

// Results is a decoded application/sparql-results+json document.
type Results struct {
	Vars    []string
	Rows    []Row
	Boolean *bool
}

// Row maps variable names to bound terms. Unbound variables are absent.
type Row map[string]rdf.Term

// String returns the lexical value bound to name, or "" when unbound.
func (r Row) String(name string) string {
	t, ok := r[name]
	if !ok || t == nil {
		return ""
	}
	return t.String()
}

// Column returns the distinct values bound to name across all rows, in
// result order.
func (r *Results) Column(name string) []string {
	out := make([]string, 0, len(r.Rows))
	seen := make(map[string]struct{}, len(r.Rows))
	for _, row := range r.Rows {
		v := row.String(name)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Tuples returns every row as a slice ordered like Vars. Unbound positions
// are nil so they encode as JSON null.
func (r *Results) Tuples() [][]any {
	out := make([][]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		tuple := make([]any, len(r.Vars))
		for i, v := range r.Vars {
			if t, ok := row[v]; ok && t != nil {
				tuple[i] = t.String()
			}
		}
		out = append(out, tuple)
	}
	if r.Boolean != nil && len(r.Rows) == 0 {
		out = append(out, []any{*r.Boolean})
	}
	return out
}
