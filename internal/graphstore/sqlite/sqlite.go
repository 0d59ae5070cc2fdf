// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package sqlite implements graphstore.Store as a quad table in an
// embedded SQLite database. It answers the same crate lookups as the
// fuseki backend in SQL; raw SPARQL queries are not supported.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/knakk/rdf"
	_ "github.com/mattn/go-sqlite3"

	"github.com/provstor-dev/provstor/internal/config"
	"github.com/provstor-dev/provstor/internal/graphstore"
	"github.com/provstor-dev/provstor/internal/rocrate"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Compile-time interface check.
var _ graphstore.Store = (*Store)(nil)

func init() {
	graphstore.RegisterBackend("sqlite", func(cfg config.TriplestoreConfig) (graphstore.Store, error) {
		return New(cfg.SQLite.Path)
	})
}

const (
	kindIRI     = "iri"
	kindBlank   = "blank"
	kindLiteral = "literal"
)

// Store is a graphstore.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) a SQLite database at dbPath and initialises the
// quad table with GSPO/POS/OSP indexes.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "migrating quad table: %w", err)
	}

	return &Store{db: db, logger: slog.Default()}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS quads (
	graph     TEXT NOT NULL,
	subject   TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object    TEXT NOT NULL,
	kind      TEXT NOT NULL,
	datatype  TEXT NOT NULL DEFAULT '',
	lang      TEXT NOT NULL DEFAULT '',
	UNIQUE(graph, subject, predicate, object, kind, datatype, lang)
);

CREATE INDEX IF NOT EXISTS idx_gspo ON quads(graph, subject, predicate, object);
CREATE INDEX IF NOT EXISTS idx_pos  ON quads(predicate, object, subject);
CREATE INDEX IF NOT EXISTS idx_osp  ON quads(object, subject, predicate);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}
	return nil
}

// InsertGraph writes all triples in one transaction. Blank node labels are
// scoped to the graph so that crates never share blank nodes.
func (s *Store) InsertGraph(ctx context.Context, graph string, triples []rdf.Triple) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO quads
(graph, subject, predicate, object, kind, datatype, lang) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range triples {
		subj := termKey(graph, t.Subj)
		obj := termKey(graph, t.Obj)
		kind, datatype, lang := kindIRI, "", ""
		switch o := t.Obj.(type) {
		case rdf.Blank:
			kind = kindBlank
		case rdf.Literal:
			kind, datatype, lang = kindLiteral, o.DataType.String(), o.Lang()
		}
		if _, err := stmt.ExecContext(ctx, graph, subj, t.Pred.String(), obj, kind, datatype, lang); err != nil {
			return provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "inserting quad into %s: %w", graph, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "committing graph %s: %w", graph, err)
	}
	s.logger.Debug("inserted graph", "graph", graph, "triples", len(triples))
	return nil
}

func termKey(graph string, t rdf.Term) string {
	if t.Type() != rdf.TermBlank {
		return t.String()
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(graph))
	return fmt.Sprintf("_:g%08x_%s", h.Sum32(), strings.TrimPrefix(t.String(), "_:"))
}

// Query is not available on this backend.
func (s *Store) Query(context.Context, string, string) ([][]any, error) {
	return nil, provstorerr.New(provstorerr.CodeServerNotImplemented, "raw SPARQL queries need the fuseki triplestore backend")
}

func (s *Store) Graphs(ctx context.Context) ([]string, error) {
	return s.column(ctx, `SELECT DISTINCT graph FROM quads ORDER BY graph`)
}

func (s *Store) RDEGraphs(ctx context.Context) ([]graphstore.RDEGraph, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT md.graph, about.object
FROM quads md
JOIN quads about ON about.graph = md.graph AND about.subject = md.subject AND about.predicate = `+pAbout+`
WHERE md.predicate = `+pType+` AND md.object = `+tCreativeWork+`
  AND md.subject LIKE '%`+rocrate.MetadataFile+`%' AND md.subject LIKE 'arcp://uuid,%'
ORDER BY md.graph`)
	if err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "listing rde graphs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []graphstore.RDEGraph
	for rows.Next() {
		var g graphstore.RDEGraph
		if err := rows.Scan(&g.Graph, &g.RDE); err != nil {
			return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "scanning rde graph: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) CrateURL(ctx context.Context, rde string) (string, error) {
	urls, err := s.column(ctx, `SELECT DISTINCT object FROM quads
WHERE subject = ? AND predicate = `+pURL+` ORDER BY object LIMIT 1`, rde)
	if err != nil || len(urls) == 0 {
		return "", err
	}
	return urls[0], nil
}

func (s *Store) GraphsForFile(ctx context.Context, fileID string) ([]string, error) {
	return s.column(ctx, `SELECT DISTINCT u.object `+fromRoots(false)+`
JOIN quads u ON u.subject = about.object AND u.predicate = `+pURL+`
JOIN quads h ON h.subject = about.object AND h.predicate = `+pHasPart+` AND h.object = :id AND h.kind = 'iri'
`+whereRoots(false)+` ORDER BY u.object`, sql.Named("id", fileID))
}

func (s *Store) GraphsForResult(ctx context.Context, resultID string) ([]string, error) {
	return s.column(ctx, `SELECT DISTINCT u.object `+fromRoots(false)+`
JOIN quads u ON u.subject = about.object AND u.predicate = `+pURL+`
`+joinMentionedActions(false)+`
JOIN quads r ON r.subject = m.object AND r.predicate = `+pResult+` AND r.object = :id
`+whereRoots(false)+` ORDER BY u.object`, sql.Named("id", resultID))
}

func (s *Store) Workflow(ctx context.Context, graph string) ([]string, error) {
	if err := requireGraph(graph); err != nil {
		return nil, err
	}
	return s.column(ctx, `SELECT DISTINCT me.object `+fromRoots(true)+`
JOIN quads me ON me.graph = :g AND me.subject = about.object AND me.predicate = `+pMainEntity+`
`+whereRoots(true)+` ORDER BY me.object`, sql.Named("g", graph))
}

func (s *Store) RunResults(ctx context.Context, graph string) ([]string, error) {
	return s.runEntities(ctx, graph, pResult)
}

func (s *Store) RunObjects(ctx context.Context, graph string) ([]string, error) {
	return s.runEntities(ctx, graph, pObject)
}

func (s *Store) runEntities(ctx context.Context, graph, pred string) ([]string, error) {
	if err := requireGraph(graph); err != nil {
		return nil, err
	}
	return s.column(ctx, `SELECT DISTINCT x.object `+fromRoots(true)+`
JOIN quads me ON me.graph = :g AND me.subject = about.object AND me.predicate = `+pMainEntity+`
JOIN quads ins ON ins.graph = :g AND ins.predicate = `+pInstrument+` AND ins.object = me.object
JOIN quads x ON x.graph = :g AND x.subject = ins.subject AND x.predicate = `+pred+`
`+whereRoots(true)+` AND `+isFileOrDataset("x.object", true)+` ORDER BY x.object`, sql.Named("g", graph))
}

func (s *Store) RunParams(ctx context.Context, graph string) ([]graphstore.Param, error) {
	if err := requireGraph(graph); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT n.object, v.object `+fromRoots(true)+`
JOIN quads me ON me.graph = :g AND me.subject = about.object AND me.predicate = `+pMainEntity+`
JOIN quads ins ON ins.graph = :g AND ins.predicate = `+pInstrument+` AND ins.object = me.object
JOIN quads o ON o.graph = :g AND o.subject = ins.subject AND o.predicate = `+pObject+`
JOIN quads ty ON ty.graph = :g AND ty.subject = o.object AND ty.predicate = `+pType+` AND ty.object = `+tPropertyValue+`
JOIN quads n ON n.graph = :g AND n.subject = o.object AND n.predicate = `+pName+`
JOIN quads v ON v.graph = :g AND v.subject = o.object AND v.predicate = `+pValue+`
`+whereRoots(true)+` ORDER BY n.object`, sql.Named("g", graph))
	if err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "querying run params: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []graphstore.Param
	for rows.Next() {
		var p graphstore.Param
		if err := rows.Scan(&p.Name, &p.Value); err != nil {
			return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "scanning run param: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ObjectsForResult(ctx context.Context, resultID string) ([]string, error) {
	return s.column(ctx, `SELECT DISTINCT o.object `+fromRoots(false)+`
`+joinMentionedActions(false)+`
JOIN quads r ON r.subject = m.object AND r.predicate = `+pResult+` AND r.object = :id
JOIN quads o ON o.subject = m.object AND o.predicate = `+pObject+`
`+whereRoots(false)+` AND `+isFileOrDataset("o.object", false)+` ORDER BY o.object`, sql.Named("id", resultID))
}

func (s *Store) ActionsForResult(ctx context.Context, resultID string) ([]string, error) {
	return s.column(ctx, `SELECT DISTINCT m.object `+fromRoots(false)+`
`+joinMentionedActions(false)+`
JOIN quads r ON r.subject = m.object AND r.predicate = `+pResult+` AND r.object = :id
`+whereRoots(false)+` ORDER BY m.object`, sql.Named("id", resultID))
}

func (s *Store) ObjectsForAction(ctx context.Context, actionID string) ([]string, error) {
	return s.actionEntities(ctx, actionID, pObject)
}

func (s *Store) ResultsForAction(ctx context.Context, actionID string) ([]string, error) {
	return s.actionEntities(ctx, actionID, pResult)
}

func (s *Store) actionEntities(ctx context.Context, actionID, pred string) ([]string, error) {
	return s.column(ctx, `SELECT DISTINCT x.object `+fromRoots(false)+`
`+joinMentionedActions(false)+`
JOIN quads x ON x.subject = m.object AND x.predicate = `+pred+`
`+whereRoots(false)+` AND m.object = :id AND `+isFileOrDataset("x.object", false)+` ORDER BY x.object`,
		sql.Named("id", actionID))
}

func (s *Store) ExistingResults(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.column(ctx, `SELECT DISTINCT r.object FROM quads r
JOIN quads t ON t.subject = r.subject AND t.predicate = `+pType+` AND t.object = `+tCreateAction+`
WHERE r.predicate = `+pResult+` AND r.kind = 'iri'
  AND r.object IN (?`+strings.Repeat(", ?", len(ids)-1)+`)
ORDER BY r.object`, args...)
}

func (s *Store) IsFile(ctx context.Context, id string) (bool, error) {
	found, err := s.column(ctx, `SELECT object FROM quads
WHERE subject = ? AND predicate = `+pType+` AND object IN (`+tMediaObject+`, `+tDataset+`) LIMIT 1`, id)
	return len(found) > 0, err
}

func (s *Store) FileInfo(ctx context.Context, id string) (graphstore.FileInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT predicate, object FROM quads
WHERE subject = ? AND predicate IN (`+pSHA256+`, `+pContentSize+`) AND kind = 'literal'
ORDER BY graph`, id)
	if err != nil {
		return graphstore.FileInfo{}, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "querying file info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var info graphstore.FileInfo
	for rows.Next() {
		var pred, val string
		if err := rows.Scan(&pred, &val); err != nil {
			return graphstore.FileInfo{}, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "scanning file info: %w", err)
		}
		switch {
		case pred == rocrate.WfrunSHA256 && info.SHA256 == "":
			info.SHA256 = val
		case pred == rocrate.SchemaContentSize && info.ContentSize == "":
			info.ContentSize = val
		}
	}
	return info, rows.Err()
}

func (s *Store) NextMove(ctx context.Context, path string) (string, error) {
	dests, err := s.column(ctx, `SELECT r.object FROM quads o
JOIN quads t ON t.subject = o.subject AND t.predicate = `+pType+` AND t.object = `+tCreateAction+`
JOIN quads i ON i.subject = o.subject AND i.predicate = `+pInstrument+` AND i.object = :tool
JOIN quads r ON r.subject = o.subject AND r.predicate = `+pResult+` AND r.kind = 'iri'
WHERE o.predicate = `+pObject+` AND o.object = :path AND r.object LIKE 'file:/%'
ORDER BY r.graph LIMIT 1`, sql.Named("tool", graphstore.MoveToolID), sql.Named("path", path))
	if err != nil || len(dests) == 0 {
		return "", err
	}
	return dests[0], nil
}

func (s *Store) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "querying quads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "scanning quad: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeStoreDatabaseFailure, "iterating quads: %w", err)
	}
	return out, nil
}

func requireGraph(graph string) error {
	if graph == "" {
		return provstorerr.New(provstorerr.CodeLookupInputInvalid, "graph id is required")
	}
	return nil
}
