// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package provenance_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/catalog"
	"github.com/provstor-dev/provstor/internal/graphstore/sqlite"
	"github.com/provstor-dev/provstor/internal/objectstore"
	"github.com/provstor-dev/provstor/internal/provenance"
	"github.com/provstor-dev/provstor/internal/rocrate"
	rct "github.com/provstor-dev/provstor/internal/rocrate/rocratetest"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

func setup(t *testing.T) (*catalog.Catalog, *provenance.Engine) {
	t.Helper()
	graphs, err := sqlite.New(filepath.Join(t.TempDir(), "quads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = graphs.Close() })

	archive := objectstore.NewArchive(objectstore.NewFilesystemFs(afero.NewMemMapFs()), "minio:9000", "crates")
	c, err := catalog.New(graphs, archive)
	require.NoError(t, err)
	return c, provenance.NewEngine(graphs)
}

func ingest(t *testing.T, c *catalog.Catalog, name string, data []byte) string {
	t.Helper()
	crateURL, err := c.Ingest(context.Background(), name, data)
	require.NoError(t, err)
	return rocrate.ArcpLocation(crateURL)
}

func actions(trace []provenance.Step) []string {
	out := make([]string, 0, len(trace))
	for _, s := range trace {
		out = append(out, s.Action)
	}
	return out
}

func TestBacktrack_VariantCallingScenario(t *testing.T) {
	c, engine := setup(t)
	prov := ingest(t, c, "provcrate1.zip", rct.ProvCrate1(t))
	proc1 := ingest(t, c, "proccrate1.zip", rct.ProcCrate1(t))

	trace, err := engine.Backtrack(context.Background(), rct.AnnVCF)
	require.NoError(t, err)
	require.Len(t, trace, 2)

	assert.Equal(t, proc1+rct.Annotation, trace[0].Action)
	assert.Contains(t, trace[0].Objects, rct.VCF)
	assert.Equal(t, []string{rct.AnnVCF}, trace[0].Results)

	assert.Equal(t, prov+rct.WorkflowRun, trace[1].Action)
	assert.Contains(t, trace[1].Objects, rct.Fastq1)
	assert.Contains(t, trace[1].Objects, rct.Fastq2)
	assert.Contains(t, trace[1].Objects, prov+"sample.csv")
	assert.ElementsMatch(t, []string{rct.VCF, rct.VCFIndex}, trace[1].Results)
}

func TestBacktrack_DepthFirstAcrossThreeCrates(t *testing.T) {
	c, engine := setup(t)
	prov := ingest(t, c, "provcrate1.zip", rct.ProvCrate1(t))
	proc1 := ingest(t, c, "proccrate1.zip", rct.ProcCrate1(t))
	proc2 := ingest(t, c, "proccrate2.zip", rct.ProcCrate2(t))

	trace, err := engine.Backtrack(context.Background(), rct.NormVCF)
	require.NoError(t, err)
	assert.Equal(t, []string{proc2 + rct.Normalize, proc1 + rct.Annotation, prov + rct.WorkflowRun}, actions(trace))
}

// Two producers of one entity: the first producer's inputs are expanded
// before the second producer is emitted.
func TestBacktrack_PreOrderBetweenSiblingActions(t *testing.T) {
	c, engine := setup(t)
	ingest(t, c, "a.zip", rct.Archive(t, rct.Metadata(t,
		rct.Root(map[string]any{"mentions": rct.Refs("#a1", "#a0")}),
		rct.Action("#a1", "", []string{"file:///x"}, []string{"file:///y"}),
		rct.Action("#a0", "", []string{"file:///w"}, []string{"file:///x"}),
		rct.File("file:///w"), rct.File("file:///x"), rct.File("file:///y"),
	), nil))
	ingest(t, c, "b.zip", rct.Archive(t, rct.Metadata(t,
		rct.Root(map[string]any{"mentions": rct.Ref("#b1")}),
		rct.Action("#b1", "", []string{"file:///v"}, []string{"file:///z"}),
		rct.File("file:///v"), rct.File("file:///z"),
	), nil))
	ingest(t, c, "c.zip", rct.Archive(t, rct.Metadata(t,
		rct.Root(map[string]any{"mentions": rct.Ref("#c1")}),
		rct.Action("#c1", "", []string{"file:///y", "file:///z"}, []string{"file:///out"}),
		rct.File("file:///y"), rct.File("file:///z"), rct.File("file:///out"),
	), nil))

	trace, err := engine.Backtrack(context.Background(), "file:///out")
	require.NoError(t, err)

	var got []string
	for _, s := range trace {
		got = append(got, s.Action[len(s.Action)-3:])
	}
	assert.Equal(t, []string{"#c1", "#a1", "#a0", "#b1"}, got)
}

func TestBacktrack_TerminatesOnCycles(t *testing.T) {
	c, engine := setup(t)
	ingest(t, c, "one.zip", rct.Archive(t, rct.Metadata(t,
		rct.Root(map[string]any{"mentions": rct.Ref("#forward")}),
		rct.Action("#forward", "", []string{"file:///x"}, []string{"file:///y"}),
		rct.File("file:///x"), rct.File("file:///y"),
	), nil))
	ingest(t, c, "two.zip", rct.Archive(t, rct.Metadata(t,
		rct.Root(map[string]any{"mentions": rct.Ref("#back")}),
		rct.Action("#back", "", []string{"file:///y"}, []string{"file:///x"}),
		rct.File("file:///x"), rct.File("file:///y"),
	), nil))

	trace, err := engine.Backtrack(context.Background(), "file:///y")
	require.NoError(t, err)
	require.Len(t, trace, 2)
	assert.Equal(t, []string{"file:///x"}, trace[0].Objects)
	assert.Equal(t, []string{"file:///y"}, trace[1].Objects)
}

func TestBacktrack_Errors(t *testing.T) {
	_, engine := setup(t)
	ctx := context.Background()

	_, err := engine.Backtrack(ctx, "")
	assert.True(t, provstorerr.IsInvalidInput(err))

}

func TestBacktrack_UnproducedResultIsEmpty(t *testing.T) {
	c, engine := setup(t)
	ctx := context.Background()

	trace, err := engine.Backtrack(ctx, "file:///never-produced")
	require.NoError(t, err)
	assert.NotNil(t, trace)
	assert.Empty(t, trace)

	// A workflow input is known to the store but no action produced it.
	ingest(t, c, "provcrate1.zip", rct.ProvCrate1(t))
	trace, err = engine.Backtrack(ctx, rct.Fastq1)
	require.NoError(t, err)
	assert.Empty(t, trace)
}

func TestBacktrackFile(t *testing.T) {
	c, engine := setup(t)
	prov := ingest(t, c, "provcrate1.zip", rct.ProvCrate1(t))
	ctx := context.Background()

	trace, err := engine.BacktrackFile(ctx, prov+"sample.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{prov + rct.WorkflowRun}, actions(trace))

	_, err = engine.BacktrackFile(ctx, "arcp://uuid,00000000-0000-0000-0000-000000000000/x")
	assert.True(t, provstorerr.IsNotFound(err))

	for _, uri := range []string{"file:///data/sample.csv", "http://minio:9000/crates/provcrate1.zip", "sample.csv"} {
		_, err = engine.BacktrackFile(ctx, uri)
		assert.True(t, provstorerr.HasCode(err, provstorerr.CodeLookupLocatorUnsupported), "%s: got %s", uri, provstorerr.CodeOf(err))
	}

	proc1 := ingest(t, c, "proccrate1.zip", rct.ProcCrate1(t))
	_, err = engine.BacktrackFile(ctx, proc1+"aux.vcf")
	assert.True(t, provstorerr.IsNotFound(err), "process crates have no workflow run")
}
