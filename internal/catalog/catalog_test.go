// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package catalog_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/knakk/rdf"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/catalog"
	"github.com/provstor-dev/provstor/internal/graphstore"
	"github.com/provstor-dev/provstor/internal/graphstore/sqlite"
	"github.com/provstor-dev/provstor/internal/objectstore"
	"github.com/provstor-dev/provstor/internal/rocrate"
	rct "github.com/provstor-dev/provstor/internal/rocrate/rocratetest"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

const urlPrefix = "http://minio:9000/crates/"

// failingStore rejects graph writes so rollback can be observed.
type failingStore struct {
	graphstore.Store
}

func (failingStore) InsertGraph(context.Context, string, []rdf.Triple) error {
	return provstorerr.New(provstorerr.CodeUpstreamTriplestoreDown, "triple store down")
}

func newCatalog(t *testing.T) (*catalog.Catalog, *objectstore.Archive) {
	t.Helper()
	graphs, err := sqlite.New(filepath.Join(t.TempDir(), "quads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = graphs.Close() })

	archive := objectstore.NewArchive(objectstore.NewFilesystemFs(afero.NewMemMapFs()), "minio:9000", "crates")
	c, err := catalog.New(graphs, archive)
	require.NoError(t, err)
	return c, archive
}

func TestIngest_RoundTrip(t *testing.T) {
	c, archive := newCatalog(t)
	ctx := context.Background()
	data := rct.ProvCrate1(t)

	crateURL, err := c.Ingest(ctx, "foo.zip", data)
	require.NoError(t, err)
	assert.Equal(t, urlPrefix+"foo.zip", crateURL)

	stored, err := archive.Get(ctx, crateURL)
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	graphs, err := c.Graphs().Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{crateURL}, graphs)
}

func TestIngest_StripsDirectories(t *testing.T) {
	c, _ := newCatalog(t)
	crateURL, err := c.Ingest(context.Background(), "/tmp/upload/provcrate1.zip", rct.ProvCrate1(t))
	require.NoError(t, err)
	assert.Equal(t, urlPrefix+"provcrate1.zip", crateURL)
}

func TestIngest_DuplicateResultLeavesStoreUnchanged(t *testing.T) {
	c, archive := newCatalog(t)
	ctx := context.Background()

	_, err := c.Ingest(ctx, "proccrate1.zip", rct.ProcCrate1(t))
	require.NoError(t, err)

	// A second crate claiming the same annotated VCF.
	_, err = c.Ingest(ctx, "again.zip", rct.ProcCrate1(t))
	require.Error(t, err)
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeCrateResultDuplicate))
	assert.Equal(t, 422, provstorerr.HTTPStatus(err))
	assert.Equal(t, []string{rct.AnnVCF}, provstorerr.FieldsOf(err)["duplicates"])

	graphs, err := c.Graphs().Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{urlPrefix + "proccrate1.zip"}, graphs)

	names, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"proccrate1.zip"}, names)
}

func TestIngest_DuplicateFilename(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	md := rct.Metadata(t, rct.Root(nil))

	_, err := c.Ingest(ctx, "plain.zip", rct.Archive(t, md, nil))
	require.NoError(t, err)

	_, err = c.Ingest(ctx, "plain.zip", rct.Archive(t, md, nil))
	require.Error(t, err)
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeCrateUploadDuplicate))
}

// absoluteRootCrate is a crate whose root data entity has an absolute id,
// so its identity does not follow from the upload name.
func absoluteRootCrate(t *testing.T, rde string) []byte {
	t.Helper()
	md, err := json.Marshal(rocrate.Metadata{
		Context: rocrate.ContextROCrate11,
		Graph: []rocrate.Entity{
			{"@id": rocrate.MetadataFile, "@type": "CreativeWork", "about": rct.Ref(rde)},
			{"@id": rde, "@type": "Dataset"},
		},
	})
	require.NoError(t, err)
	return rct.Archive(t, md, nil)
}

func TestIngest_DuplicateFilenameWithAbsoluteRoot(t *testing.T) {
	c, archive := newCatalog(t)
	ctx := context.Background()
	first := absoluteRootCrate(t, "https://example.org/a/")

	crateURL, err := c.Ingest(ctx, "foo.zip", first)
	require.NoError(t, err)

	_, err = c.Ingest(ctx, "foo.zip", absoluteRootCrate(t, "https://example.org/b/"))
	require.Error(t, err)
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeCrateUploadDuplicate), "got %s", provstorerr.CodeOf(err))
	assert.Equal(t, crateURL, provstorerr.FieldsOf(err)["crate_url"])

	stored, err := archive.Get(ctx, crateURL)
	require.NoError(t, err)
	assert.Equal(t, first, stored)

	pairs, err := c.Graphs().RDEGraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []graphstore.RDEGraph{{Graph: crateURL, RDE: "https://example.org/a/"}}, pairs)
}

func TestIngest_FailedDuplicateKeepsStoredArchive(t *testing.T) {
	graphs, err := sqlite.New(filepath.Join(t.TempDir(), "quads.db"))
	require.NoError(t, err)
	defer func() { _ = graphs.Close() }()

	archive := objectstore.NewArchive(objectstore.NewFilesystemFs(afero.NewMemMapFs()), "minio:9000", "crates")
	ctx := context.Background()
	existing := []byte("already here")
	_, err = archive.Put(ctx, "foo.zip", existing)
	require.NoError(t, err)

	c, err := catalog.New(failingStore{Store: graphs}, archive)
	require.NoError(t, err)
	_, err = c.Ingest(ctx, "foo.zip", absoluteRootCrate(t, "https://example.org/b/"))
	require.Error(t, err)
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeCrateUploadDuplicate))

	stored, err := archive.Get(ctx, urlPrefix+"foo.zip")
	require.NoError(t, err)
	assert.Equal(t, existing, stored)
}

func TestIngest_ValidationErrors(t *testing.T) {
	c, archive := newCatalog(t)
	ctx := context.Background()

	bare, err := rocrate.ZipFiles(map[string][]byte{"a.txt": []byte("a")})
	require.NoError(t, err)
	noAbout, err := json.Marshal(rocrate.Metadata{
		Context: rocrate.ContextROCrate11,
		Graph:   []rocrate.Entity{{"@id": rocrate.MetadataFile, "@type": "CreativeWork"}},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		code provstorerr.Code
	}{
		{"empty", nil, provstorerr.CodeCrateUploadInvalidFormat},
		{"not a zip", []byte("hello"), provstorerr.CodeCrateUploadInvalidFormat},
		{"no metadata", bare, provstorerr.CodeCrateMetadataNotFound},
		{"no rde", rct.Archive(t, noAbout, nil), provstorerr.CodeCrateRDEMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Ingest(ctx, "bad.zip", tt.data)
			require.Error(t, err)
			assert.Equal(t, tt.code, provstorerr.CodeOf(err))
		})
	}

	names, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngest_RollsBackArchiveWhenGraphWriteFails(t *testing.T) {
	graphs, err := sqlite.New(filepath.Join(t.TempDir(), "quads.db"))
	require.NoError(t, err)
	defer func() { _ = graphs.Close() }()

	archive := objectstore.NewArchive(objectstore.NewFilesystemFs(afero.NewMemMapFs()), "minio:9000", "crates")
	c, err := catalog.New(failingStore{Store: graphs}, archive)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Ingest(ctx, "foo.zip", rct.ProvCrate1(t))
	require.Error(t, err)
	assert.True(t, provstorerr.IsUnavailable(err))

	names, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestResolveGraph(t *testing.T) {
	c, _ := newCatalog(t)
	assert.Equal(t, urlPrefix+"provcrate1.zip", c.ResolveGraph("provcrate1"))
	assert.Equal(t, urlPrefix+"provcrate1.zip", c.ResolveGraph("provcrate1.zip"))
	assert.Equal(t, "https://elsewhere/x.zip", c.ResolveGraph("https://elsewhere/x.zip"))
	assert.Empty(t, c.ResolveGraph(""))
}

func TestCrateAndFile(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	data := rct.ProvCrate1(t)
	_, err := c.Ingest(ctx, "provcrate1.zip", data)
	require.NoError(t, err)

	pairs, err := c.Graphs().RDEGraphs(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	rde := pairs[0].RDE

	got, name, err := c.Crate(ctx, rde[:len(rde)-1])
	require.NoError(t, err)
	assert.Equal(t, "provcrate1.zip", name)
	assert.Equal(t, data, got)

	member, name, err := c.File(ctx, rde+"sample.csv")
	require.NoError(t, err)
	assert.Equal(t, "sample.csv", name)
	assert.NotEmpty(t, member)

	whole, name, err := c.File(ctx, urlPrefix+"provcrate1.zip")
	require.NoError(t, err)
	assert.Equal(t, "provcrate1.zip", name)
	assert.Equal(t, data, whole)
}

func TestCrateAndFile_Errors(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	_, _, err := c.Crate(ctx, "arcp://uuid,00000000-0000-0000-0000-000000000000/")
	assert.True(t, provstorerr.IsNotFound(err))

	_, _, err = c.Crate(ctx, " ")
	assert.True(t, provstorerr.IsInvalidInput(err))

	_, _, err = c.File(ctx, "ftp://host/file.txt")
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeLookupLocatorUnsupported))

	_, _, err = c.File(ctx, "https://elsewhere:9000/crates/x.zip")
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeLookupLocatorUnsupported))

	_, _, err = c.File(ctx, "arcp://uuid,00000000-0000-0000-0000-000000000000/")
	assert.True(t, provstorerr.IsInvalidInput(err))
}

func TestQuery_RequiresText(t *testing.T) {
	c, _ := newCatalog(t)
	_, err := c.Query(context.Background(), "  ", "")
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodeQueryInputInvalid))
}
