// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package pathops_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/catalog"
	"github.com/provstor-dev/provstor/internal/graphstore/sqlite"
	"github.com/provstor-dev/provstor/internal/objectstore"
	"github.com/provstor-dev/provstor/internal/pathops"
	"github.com/provstor-dev/provstor/internal/provenance"
	rct "github.com/provstor-dev/provstor/internal/rocrate/rocratetest"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	catalog *catalog.Catalog
	ops     *pathops.Service
	engine  *provenance.Engine
}

func setup(t *testing.T) env {
	t.Helper()
	graphs, err := sqlite.New(filepath.Join(t.TempDir(), "quads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = graphs.Close() })

	archive := objectstore.NewArchive(objectstore.NewFilesystemFs(afero.NewMemMapFs()), "minio:9000", "crates")
	c, err := catalog.New(graphs, archive)
	require.NoError(t, err)

	_, err = c.Ingest(context.Background(), "provcrate1.zip", rct.ProvCrate1(t))
	require.NoError(t, err)

	return env{
		catalog: c,
		ops:     pathops.NewService(c, pathops.WithClock(func() time.Time { return fixedNow })),
		engine:  provenance.NewEngine(graphs),
	}
}

func TestMoveChainTransitivity(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b, c := rct.Fastq1, "file:///archive/FOOBAR123_1.fastq.gz", "file:///cold/FOOBAR123_1.fastq.gz"

	res, err := e.ops.Move(ctx, a, b, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Result)
	assert.True(t, strings.HasPrefix(res.CrateURL, "http://minio:9000/crates/"))
	assert.True(t, strings.HasSuffix(res.CrateURL, ".zip"))

	_, err = e.ops.Move(ctx, b, c, fixedNow.Add(-time.Hour))
	require.NoError(t, err)

	chain, err := e.engine.MoveChain(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{b, c}, chain)

	_, err = e.ops.Move(ctx, a, "file:///elsewhere/FOOBAR123_1.fastq.gz", time.Time{})
	require.Error(t, err)
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodePathopsSrcAlreadyMoved))
	assert.Equal(t, 422, provstorerr.HTTPStatus(err))
}

func TestCopy_DoesNotSupersedeSource(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.ops.Copy(ctx, rct.Fastq2, "file:///backup/FOOBAR123_2.fastq.gz", time.Time{})
	require.NoError(t, err)

	chain, err := e.engine.MoveChain(ctx, rct.Fastq2)
	require.NoError(t, err)
	assert.Empty(t, chain)

	_, err = e.ops.Move(ctx, rct.Fastq2, "file:///moved/FOOBAR123_2.fastq.gz", time.Time{})
	require.NoError(t, err)
}

func TestMove_IsBacktrackable(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	dest := "file:///archive/FOOBAR123_2.fastq.gz"

	_, err := e.ops.Move(ctx, rct.Fastq2, dest, time.Time{})
	require.NoError(t, err)

	trace, err := e.engine.Backtrack(ctx, dest)
	require.NoError(t, err)
	require.Len(t, trace, 1)
	assert.Equal(t, []string{rct.Fastq2}, trace[0].Objects)
	assert.Equal(t, []string{dest}, trace[0].Results)
}

func TestPreconditions(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		src  string
		dest string
		when time.Time
		code provstorerr.Code
	}{
		{"future", rct.Fastq1, "file:///x", fixedNow.Add(time.Minute), provstorerr.CodePathopsWhenInFuture},
		{"not a file path", rct.ExtConfig, "file:///x", time.Time{}, provstorerr.CodeLookupLocatorUnsupported},
		{"unknown src", "file:///nowhere", "file:///x", time.Time{}, provstorerr.CodeLookupEntityNotFound},
		{"missing dest", rct.Fastq1, "", time.Time{}, provstorerr.CodePathopsInputInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ops.Move(ctx, tt.src, tt.dest, tt.when)
			require.Error(t, err)
			assert.Equal(t, tt.code, provstorerr.CodeOf(err))
		})
	}

	graphs, err := e.catalog.Graphs().Graphs(ctx)
	require.NoError(t, err)
	assert.Len(t, graphs, 1, "failed operations store nothing")
}

func TestParseWhen(t *testing.T) {
	got, err := pathops.ParseWhen("2025-01-02T03:04:05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), got)

	got, err = pathops.ParseWhen("2025-01-02T03:04:05+02:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 1, 2, 1, 4, 5, 0, time.UTC)))

	got, err = pathops.ParseWhen("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = pathops.ParseWhen("yesterday")
	assert.True(t, provstorerr.HasCode(err, provstorerr.CodePathopsInputInvalid))
}
