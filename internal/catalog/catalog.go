// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package catalog ingests crates and serves them back: each crate's zip
// goes to the object store and its metadata becomes a named graph keyed by
// the archive URL.
package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/provstor-dev/provstor/internal/graphstore"
	"github.com/provstor-dev/provstor/internal/metrics"
	"github.com/provstor-dev/provstor/internal/objectstore"
	"github.com/provstor-dev/provstor/internal/rocrate"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// crateURLCacheSize bounds the RDE → crate URL cache. Bindings never
// change once a crate is stored, so entries need no expiry.
const crateURLCacheSize = 4096

// Catalog is the crate metadata store.
type Catalog struct {
	graphs    graphstore.Store
	archive   *objectstore.Archive
	crateURLs *lru.Cache[string, string]
	logger    *slog.Logger

	// ingestMu serialises ingests so the duplicate checks and the writes
	// that follow them see the same store.
	ingestMu sync.Mutex
}

// New creates a Catalog over a graph store and an archive store.
func New(graphs graphstore.Store, archive *objectstore.Archive) (*Catalog, error) {
	cache, err := lru.New[string, string](crateURLCacheSize)
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "creating crate URL cache")
	}
	return &Catalog{graphs: graphs, archive: archive, crateURLs: cache, logger: slog.Default()}, nil
}

// Graphs is the underlying graph store.
func (c *Catalog) Graphs() graphstore.Store { return c.graphs }

// Ingest stores a crate archive and its metadata and returns the crate
// URL. Nothing is written unless the metadata is valid, no crate is stored
// under the same name, and no result is one another crate already produced. If the graph cannot be
// written after the archive was uploaded, the archive is removed again.
func (c *Catalog) Ingest(ctx context.Context, filename string, archive []byte) (crateURL string, err error) {
	defer func() { metrics.ObserveIngest(len(archive), err) }()

	md, err := rocrate.ReadMetadata(archive)
	if err != nil {
		return "", err
	}

	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "", provstorerr.Errorf(provstorerr.CodeCrateUploadInvalidFormat, "invalid crate filename %q", filename)
	}
	crateURL = c.archive.URL(name)
	base := rocrate.ArcpLocation(crateURL)

	g, err := rocrate.Parse(md, base)
	if err != nil {
		return "", err
	}

	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	if results := g.ActionResults(); len(results) > 0 {
		dups, err := c.graphs.ExistingResults(ctx, results)
		if err != nil {
			return "", err
		}
		if len(dups) > 0 {
			return "", provstorerr.New(provstorerr.CodeCrateResultDuplicate,
				"crate introduces results that are already recorded: "+strings.Join(dups, ", "),
				provstorerr.Field("duplicates", dups))
		}
	}

	stored, err := c.archive.Has(ctx, name)
	if err != nil {
		return "", err
	}
	if stored {
		return "", provstorerr.New(provstorerr.CodeCrateUploadDuplicate,
			"a crate named "+name+" is already stored", provstorerr.FieldCrateURL(crateURL))
	}

	rde, err := g.RootDataEntity()
	if err != nil {
		return "", err
	}
	existing, err := c.CrateURL(ctx, rde)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return "", provstorerr.New(provstorerr.CodeCrateUploadDuplicate,
			"a crate named "+name+" is already stored", provstorerr.FieldCrateURL(existing))
	}
	if err := g.SetURL(rde, crateURL); err != nil {
		return "", err
	}

	if _, err := c.archive.Put(ctx, name, archive); err != nil {
		return "", err
	}
	if err := c.graphs.InsertGraph(ctx, crateURL, g.Triples); err != nil {
		cleanup := context.WithoutCancel(ctx)
		if rmErr := c.archive.Remove(cleanup, name); rmErr != nil {
			c.logger.Error("removing orphaned crate archive", "crate_url", crateURL, "error", rmErr)
		}
		return "", err
	}

	c.crateURLs.Add(rde, crateURL)
	c.logger.Info("crate ingested", "crate_url", crateURL, "rde", rde, "triples", len(g.Triples))
	return crateURL, nil
}

// CrateURL returns the archive URL bound to a root data entity, or "".
func (c *Catalog) CrateURL(ctx context.Context, rde string) (string, error) {
	if u, ok := c.crateURLs.Get(rde); ok {
		return u, nil
	}
	u, err := c.graphs.CrateURL(ctx, rde)
	if err != nil || u == "" {
		return "", err
	}
	c.crateURLs.Add(rde, u)
	return u, nil
}

// ResolveGraph turns a graph selector into a graph IRI. Full http(s) URLs
// pass through; a bare crate name becomes that crate's archive URL.
func (c *Catalog) ResolveGraph(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	if !strings.HasSuffix(id, ".zip") {
		id += ".zip"
	}
	return c.archive.URL(id)
}

// Query runs a raw query against the selected graph; an empty selector
// means all crates.
func (c *Catalog) Query(ctx context.Context, query, selector string) ([][]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, provstorerr.New(provstorerr.CodeQueryInputInvalid, "query is empty")
	}
	return c.graphs.Query(ctx, query, c.ResolveGraph(selector))
}

// Crate returns the archive of the crate whose root data entity is rdeID,
// and the filename it was stored under.
func (c *Catalog) Crate(ctx context.Context, rdeID string) ([]byte, string, error) {
	rde := strings.TrimSpace(rdeID)
	if rde == "" {
		return nil, "", provstorerr.New(provstorerr.CodeLookupInputInvalid, "rde_id is required")
	}
	if !strings.HasSuffix(rde, "/") {
		rde += "/"
	}
	crateURL, err := c.CrateURL(ctx, rde)
	if err != nil {
		return nil, "", err
	}
	if crateURL == "" {
		return nil, "", provstorerr.Errorf(provstorerr.CodeLookupEntityNotFound, "no crate found for %q", rdeID)
	}
	data, err := c.archive.Get(ctx, crateURL)
	if err != nil {
		return nil, "", err
	}
	return data, path.Base(crateURL), nil
}

// File returns the content of a file inside a stored crate, addressed by
// its arcp:// locator, and its basename. Crate URLs on this object store
// return the whole archive.
func (c *Catalog) File(ctx context.Context, fileURI string) ([]byte, string, error) {
	u, err := url.Parse(strings.TrimSpace(fileURI))
	if err != nil {
		return nil, "", provstorerr.Errorf(provstorerr.CodeLookupLocatorUnsupported, "unsupported file locator %q", fileURI)
	}

	switch u.Scheme {
	case "arcp":
	case "http", "https":
		data, err := c.archive.Get(ctx, fileURI)
		if err != nil {
			return nil, "", err
		}
		return data, path.Base(u.Path), nil
	default:
		return nil, "", provstorerr.Errorf(provstorerr.CodeLookupLocatorUnsupported, "unsupported protocol %q", u.Scheme)
	}

	member := strings.TrimPrefix(u.Path, "/")
	if member == "" {
		return nil, "", provstorerr.Errorf(provstorerr.CodeLookupInputInvalid, "%q does not name a file inside a crate", fileURI)
	}
	archive, _, err := c.Crate(ctx, u.Scheme+"://"+u.Host+"/")
	if err != nil {
		return nil, "", err
	}
	data, err := rocrate.ReadMember(archive, member)
	if err != nil {
		return nil, "", err
	}
	return data, path.Base(member), nil
}
