// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package rocratetest builds small RO-Crate archives for tests.
package rocratetest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/rocrate"
)

// Root returns a root data entity with the given extra properties.
func Root(props map[string]any) rocrate.Entity {
	e := rocrate.Entity{"@id": "./", "@type": "Dataset"}
	for k, v := range props {
		e[k] = v
	}
	return e
}

// File returns a File entity.
func File(id string) rocrate.Entity {
	return rocrate.Entity{"@id": id, "@type": "File"}
}

// Action returns a CreateAction with the given inputs and outputs.
func Action(id, instrument string, objects, results []string) rocrate.Entity {
	e := rocrate.Entity{"@id": id, "@type": "CreateAction", "object": Refs(objects...), "result": Refs(results...)}
	if instrument != "" {
		e["instrument"] = Ref(instrument)
	}
	return e
}

// Ref returns an {"@id": id} reference.
func Ref(id string) map[string]string {
	return map[string]string{"@id": id}
}

// Refs returns one reference per id.
func Refs(ids ...string) []map[string]string {
	out := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, Ref(id))
	}
	return out
}

// Metadata renders a flattened ro-crate-metadata.json. The descriptor is
// prepended; root must be supplied among entities.
func Metadata(t testing.TB, entities ...rocrate.Entity) []byte {
	t.Helper()
	graph := append([]rocrate.Entity{{
		"@id":        rocrate.MetadataFile,
		"@type":      "CreativeWork",
		"about":      Ref("./"),
		"conformsTo": Ref("https://w3id.org/ro/crate/1.1"),
	}}, entities...)
	doc, err := json.Marshal(rocrate.Metadata{Context: rocrate.ContextROCrate11, Graph: graph})
	require.NoError(t, err)
	return doc
}

// Archive zips metadata plus any extra members.
func Archive(t testing.TB, metadata []byte, members map[string][]byte) []byte {
	t.Helper()
	files := map[string][]byte{rocrate.MetadataFile: metadata}
	order := []string{rocrate.MetadataFile}
	for name, data := range members {
		files[name] = data
		order = append(order, name)
	}
	archive, err := rocrate.ZipFiles(files, order...)
	require.NoError(t, err)
	return archive
}

// Paths used by the variant-calling scenario.
const (
	Fastq1       = "file:///path/to/FOOBAR123_1.fastq.gz"
	Fastq2       = "file:///path/to/FOOBAR123_2.fastq.gz"
	Versions     = "file:///path/to/pipeline_info/software_versions.yml"
	ExtConfig    = "http://example.com/fooconfig.yml"
	VCF          = "file:///path/to/FOOBAR123.deepvariant.vcf.gz"
	VCFIndex     = "file:///path/to/FOOBAR123.deepvariant.vcf.gz.tbi"
	AnnVCF       = "file:///path/to/FOOBAR123.deepvariant.ann.vcf.gz"
	NormVCF      = "file:///path/to/FOOBAR123.deepvariant.ann.norm.vcf.gz"
	WorkflowRun  = "#12204f1e-758f-46e7-bad7-162768de3a5d"
	Annotation   = "#annotation-1"
	Normalize    = "#normalization-1"
	WorkflowFile = "main.nf"
)

// ProvCrate1 is a workflow run that calls variants from two fastq files.
// It carries a sample sheet member and a workflow parameter.
func ProvCrate1(t testing.TB) []byte {
	t.Helper()
	md := Metadata(t,
		Root(map[string]any{
			"name":       "variant calling run",
			"mainEntity": Ref(WorkflowFile),
			"mentions":   Ref(WorkflowRun),
			"hasPart":    Refs(WorkflowFile, "sample.csv", VCF, VCFIndex),
		}),
		rocrate.Entity{"@id": WorkflowFile, "@type": []string{"File", "SoftwareSourceCode", "ComputationalWorkflow"}, "name": "nf-core/sarek"},
		rocrate.Entity{
			"@id":        WorkflowRun,
			"@type":      "CreateAction",
			"instrument": Ref(WorkflowFile),
			"object":     Refs(Fastq1, Fastq2, Versions, ExtConfig, "sample.csv", "#param-genome"),
			"result":     Refs(VCF, VCFIndex),
		},
		File(Fastq1), File(Fastq2), File(Versions), File(ExtConfig), File("sample.csv"),
		File(VCF), File(VCFIndex),
		rocrate.Entity{"@id": "#param-genome", "@type": "PropertyValue", "name": "genome", "value": "GRCh38"},
	)
	return Archive(t, md, map[string][]byte{"sample.csv": []byte("patient,sample\nP1,FOOBAR123\n")})
}

// ProcCrate1 annotates the called variants.
func ProcCrate1(t testing.TB) []byte {
	t.Helper()
	md := Metadata(t,
		Root(map[string]any{"mentions": Ref(Annotation), "hasPart": Refs("aux.vcf")}),
		Action(Annotation, "", []string{"aux.vcf", VCF}, []string{AnnVCF}),
		File("aux.vcf"), File(VCF), File(AnnVCF),
	)
	return Archive(t, md, map[string][]byte{"aux.vcf": []byte("##fileformat=VCFv4.2\n")})
}

// ProcCrate2 normalizes the annotated variants.
func ProcCrate2(t testing.TB) []byte {
	t.Helper()
	md := Metadata(t,
		Root(map[string]any{"mentions": Ref(Normalize), "hasPart": Refs("aux.txt")}),
		Action(Normalize, "", []string{"aux.txt", AnnVCF}, []string{NormVCF}),
		File("aux.txt"), File(AnnVCF), File(NormVCF),
	)
	return Archive(t, md, map[string][]byte{"aux.txt": []byte("chr1\n")})
}
