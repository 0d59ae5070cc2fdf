// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package rocrate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/rocrate"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

func TestPathOp_BuildRoundTrip(t *testing.T) {
	when := time.Date(2025, 3, 4, 10, 11, 12, 987654321, time.UTC)
	op := rocrate.PathOp{
		Op:       rocrate.OpMove,
		Src:      "file:///data/a.txt",
		Dest:     "file:///archive/a.txt",
		When:     when,
		Checksum: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		Size:     "4",
	}

	archive, name, err := op.Build()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f-]{36}\.zip$`, name)

	md, err := rocrate.ReadMetadata(archive)
	require.NoError(t, err)
	g, err := rocrate.Parse(md, testBase)
	require.NoError(t, err)

	rde, err := g.RootDataEntity()
	require.NoError(t, err)
	assert.Equal(t, testBase, rde)
	assert.Equal(t, []string{"file:///archive/a.txt"}, g.ActionResults())

	actions := g.SubjectsOfType(rocrate.SchemaCreateAction)
	require.Len(t, actions, 1)
	action := actions[0]
	assert.Equal(t, action, g.Objects(rde, rocrate.SchemaMentions)[0].String())
	assert.Equal(t, rocrate.MoveToolID, g.Objects(action, rocrate.SchemaInstrument)[0].String())
	assert.Equal(t, "file:///data/a.txt", g.Objects(action, rocrate.SchemaObject)[0].String())
	assert.Equal(t, "2025-03-04T10:11:12Z", g.Objects(action, rocrate.SchemaNS+"endTime")[0].String())

	for _, f := range []string{op.Src, op.Dest} {
		assert.True(t, g.HasType(f, rocrate.SchemaMediaObject), f)
		assert.Equal(t, op.Checksum, g.Objects(f, rocrate.WfrunSHA256)[0].String(), f)
		assert.Equal(t, "4", g.Objects(f, rocrate.SchemaContentSize)[0].String(), f)
	}
	assert.Len(t, g.Objects(rde, rocrate.SchemaHasPart), 2)
	assert.Equal(t, rocrate.DefaultLicense, g.Objects(rde, rocrate.SchemaNS+"license")[0].String())
}

func TestPathOp_Metadata(t *testing.T) {
	op := rocrate.PathOp{Op: rocrate.OpCopy, Src: "file:///a", Dest: "file:///b", When: time.Unix(0, 0).UTC()}

	md, err := op.Metadata("#act")
	require.NoError(t, err)
	assert.Equal(t, rocrate.ContextROCrate11, md.Context)

	var action rocrate.Entity
	for _, e := range md.Graph {
		if e["@id"] == "#act" {
			action = e
		}
	}
	require.NotNil(t, action)
	assert.Equal(t, "cp file:///a file:///b", action["name"])
	assert.Equal(t, map[string]string{"@id": rocrate.CopyToolID}, action["instrument"])
}

func TestPathOp_Invalid(t *testing.T) {
	tests := []struct {
		name string
		op   rocrate.PathOp
	}{
		{name: "unknown op", op: rocrate.PathOp{Op: "rm", Src: "file:///a", Dest: "file:///b"}},
		{name: "missing src", op: rocrate.PathOp{Op: rocrate.OpCopy, Dest: "file:///b"}},
		{name: "missing dest", op: rocrate.PathOp{Op: rocrate.OpMove, Src: "file:///a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.op.Build()
			require.Error(t, err)
			assert.Equal(t, provstorerr.CodePathopsInputInvalid, provstorerr.CodeOf(err))
		})
	}
}
