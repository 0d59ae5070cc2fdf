// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package rocrate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Op is a recorded path operation.
type Op string

const (
	OpCopy Op = "cp"
	OpMove Op = "mv"
)

// Tool identities recorded as the action instrument.
const (
	CopyToolID    = "https://w3id.org/ro/terms/provstor#CopyTool"
	MoveToolID    = "https://w3id.org/ro/terms/provstor#MoveTool"
	coreutilsURL  = "https://www.gnu.org/software/coreutils/"
	processRunID  = "https://w3id.org/ro/wfrun/process/0.5"
	processRunVer = "0.5"
	roCrateSpec   = "https://w3id.org/ro/crate/1.1"

	DefaultLicense = "GPL-3.0"
)

// ToolID returns the instrument IRI for op.
func (o Op) ToolID() string {
	if o == OpMove {
		return MoveToolID
	}
	return CopyToolID
}

// PathOp describes one copy or move to record. Checksum and Size are
// carried onto both src and dest when known.
type PathOp struct {
	Op       Op
	Src      string
	Dest     string
	When     time.Time
	License  string
	Checksum string
	Size     string
}

// Entity is one JSON-LD node of a generated crate.
type Entity map[string]any

// Metadata is a flattened ro-crate-metadata.json document.
type Metadata struct {
	Context any      `json:"@context"`
	Graph   []Entity `json:"@graph"`
}

func ref(id string) map[string]string {
	return map[string]string{"@id": id}
}

// Metadata builds the single-action Process Run Crate for the operation.
// actionID is normally a fresh "#<uuid>" fragment.
func (p PathOp) Metadata(actionID string) (*Metadata, error) {
	if p.Op != OpCopy && p.Op != OpMove {
		return nil, provstorerr.Errorf(provstorerr.CodePathopsInputInvalid, "op must be either %q or %q", OpCopy, OpMove)
	}
	if p.Src == "" || p.Dest == "" {
		return nil, provstorerr.New(provstorerr.CodePathopsInputInvalid, "src and dest are required")
	}
	when := p.When
	if when.IsZero() {
		when = time.Now().UTC()
	}
	stamp := when.Truncate(time.Second).Format(time.RFC3339)
	license := p.License
	if license == "" {
		license = DefaultLicense
	}
	name := fmt.Sprintf("%s %s %s", p.Op, p.Src, p.Dest)

	var ctx any = ContextROCrate11
	file := func(id string) Entity {
		e := Entity{"@id": id, "@type": "File", "sdDatePublished": stamp}
		if p.Checksum != "" {
			e["sha256"] = p.Checksum
		}
		if p.Size != "" {
			e["contentSize"] = p.Size
		}
		return e
	}
	if p.Checksum != "" {
		ctx = []any{ContextROCrate11, ContextWfrun}
	}

	return &Metadata{
		Context: ctx,
		Graph: []Entity{
			{
				"@id":        MetadataFile,
				"@type":      "CreativeWork",
				"about":      ref("./"),
				"conformsTo": ref(roCrateSpec),
			},
			{
				"@id":           "./",
				"@type":         "Dataset",
				"datePublished": stamp,
				"license":       license,
				"name":          name,
				"description":   name,
				"conformsTo":    ref(processRunID),
				"hasPart":       []map[string]string{ref(p.Src), ref(p.Dest)},
				"mentions":      ref(actionID),
			},
			{
				"@id":     processRunID,
				"@type":   "CreativeWork",
				"name":    "Process Run Crate",
				"version": processRunVer,
			},
			{
				"@id":   p.Op.ToolID(),
				"@type": "SoftwareApplication",
				"name":  string(p.Op),
				"url":   ref(coreutilsURL),
			},
			file(p.Src),
			file(p.Dest),
			{
				"@id":        actionID,
				"@type":      "CreateAction",
				"name":       name,
				"instrument": ref(p.Op.ToolID()),
				"object":     ref(p.Src),
				"result":     ref(p.Dest),
				"endTime":    stamp,
			},
		},
	}, nil
}

// Build renders the crate and zips it. It returns the archive and a
// fresh "<uuid4>.zip" filename to upload it under.
func (p PathOp) Build() (archive []byte, filename string, err error) {
	md, err := p.Metadata("#" + uuid.NewString())
	if err != nil {
		return nil, "", err
	}
	doc, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return nil, "", provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "encoding crate metadata")
	}
	archive, err = ZipFiles(map[string][]byte{MetadataFile: doc})
	if err != nil {
		return nil, "", err
	}
	return archive, uuid.NewString() + ".zip", nil
}
