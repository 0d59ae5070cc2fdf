// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package rocrate

// Vocabulary IRIs used by crate metadata and provenance lookups. RO-Crate
// maps schema.org onto the http:// namespace.
const (
	SchemaNS     = "http://schema.org/"
	BioschemasNS = "https://bioschemas.org/"
	DCTermsNS    = "http://purl.org/dc/terms/"
	WfrunNS      = "https://w3id.org/ro/terms/workflow-run#"
	RDFNS        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNS        = "http://www.w3.org/2001/XMLSchema#"

	RDFType = RDFNS + "type"

	SchemaAbout         = SchemaNS + "about"
	SchemaContentSize   = SchemaNS + "contentSize"
	SchemaCreateAction  = SchemaNS + "CreateAction"
	SchemaCreativeWork  = SchemaNS + "CreativeWork"
	SchemaDataset       = SchemaNS + "Dataset"
	SchemaHasPart       = SchemaNS + "hasPart"
	SchemaInstrument    = SchemaNS + "instrument"
	SchemaMainEntity    = SchemaNS + "mainEntity"
	SchemaMediaObject   = SchemaNS + "MediaObject"
	SchemaMentions      = SchemaNS + "mentions"
	SchemaName          = SchemaNS + "name"
	SchemaObject        = SchemaNS + "object"
	SchemaPropertyValue = SchemaNS + "PropertyValue"
	SchemaResult        = SchemaNS + "result"
	SchemaURL           = SchemaNS + "url"
	SchemaValue         = SchemaNS + "value"

	WfrunSHA256 = WfrunNS + "sha256"

	XSDString  = XSDNS + "string"
	XSDInteger = XSDNS + "integer"
	XSDDouble  = XSDNS + "double"
	XSDBoolean = XSDNS + "boolean"
)

// Context URLs recognised without fetching.
const (
	ContextROCrate11 = "https://w3id.org/ro/crate/1.1/context"
	ContextWfrun     = "https://w3id.org/ro/terms/workflow-run/context"
	contextROPrefix  = "https://w3id.org/ro/crate/"
)

// MetadataFile is the descriptor basename every crate carries.
const MetadataFile = "ro-crate-metadata.json"

// Terms whose IRIs differ from schemaNS+term in the RO-Crate and
// workflow-run contexts.
var builtinTerms = map[string]string{
	"File":                  SchemaMediaObject,
	"conformsTo":            DCTermsNS + "conformsTo",
	"ComputationalWorkflow": BioschemasNS + "ComputationalWorkflow",
	"FormalParameter":       BioschemasNS + "FormalParameter",
	"input":                 BioschemasNS + "properties/input",
	"output":                BioschemasNS + "properties/output",
	"sha256":                WfrunSHA256,
	"Profile":               "http://www.w3.org/ns/dx/prof/Profile",
	"ContainerImage":        WfrunNS + "ContainerImage",
	"containerImage":        WfrunNS + "containerImage",
}

var builtinPrefixes = map[string]string{
	"schema":     SchemaNS,
	"bioschemas": BioschemasNS,
	"dct":        DCTermsNS,
	"wfrun":      WfrunNS,
	"rdf":        RDFNS,
	"xsd":        XSDNS,
}
