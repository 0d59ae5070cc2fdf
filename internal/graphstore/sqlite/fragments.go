// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package sqlite

import (
	"strings"

	"github.com/provstor-dev/provstor/internal/rocrate"
)

// Vocabulary constants quoted as SQL string literals.
var (
	pType        = quote(rocrate.RDFType)
	pAbout       = quote(rocrate.SchemaAbout)
	pURL         = quote(rocrate.SchemaURL)
	pHasPart     = quote(rocrate.SchemaHasPart)
	pMentions    = quote(rocrate.SchemaMentions)
	pMainEntity  = quote(rocrate.SchemaMainEntity)
	pInstrument  = quote(rocrate.SchemaInstrument)
	pObject      = quote(rocrate.SchemaObject)
	pResult      = quote(rocrate.SchemaResult)
	pName        = quote(rocrate.SchemaName)
	pValue       = quote(rocrate.SchemaValue)
	pContentSize = quote(rocrate.SchemaContentSize)
	pSHA256      = quote(rocrate.WfrunSHA256)

	tCreativeWork  = quote(rocrate.SchemaCreativeWork)
	tCreateAction  = quote(rocrate.SchemaCreateAction)
	tMediaObject   = quote(rocrate.SchemaMediaObject)
	tDataset       = quote(rocrate.SchemaDataset)
	tPropertyValue = quote(rocrate.SchemaPropertyValue)
)

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// fromRoots and whereRoots bracket a query over crate root data entities:
// "about.object" is the root, found through the metadata descriptor. With
// scoped set, both are restricted to graph :g.
func fromRoots(scoped bool) string {
	q := `FROM quads md
JOIN quads about ON about.subject = md.subject AND about.predicate = ` + pAbout
	if scoped {
		q += ` AND about.graph = :g`
	}
	return q
}

func whereRoots(scoped bool) string {
	q := `WHERE md.predicate = ` + pType + ` AND md.object = ` + tCreativeWork +
		` AND md.subject LIKE '%` + rocrate.MetadataFile + `%'`
	if scoped {
		q += ` AND md.graph = :g`
	}
	return q
}

// joinMentionedActions binds "m.object" to each CreateAction a root mentions.
func joinMentionedActions(scoped bool) string {
	scope := ""
	if scoped {
		scope = ` AND m.graph = :g`
	}
	return `JOIN quads m ON m.subject = about.object AND m.predicate = ` + pMentions + scope + `
JOIN quads act ON act.subject = m.object AND act.predicate = ` + pType + ` AND act.object = ` + tCreateAction
}

// isFileOrDataset keeps entities typed MediaObject or Dataset.
func isFileOrDataset(col string, scoped bool) string {
	scope := ""
	if scoped {
		scope = ` AND ft.graph = :g`
	}
	return `EXISTS (SELECT 1 FROM quads ft WHERE ft.subject = ` + col + ` AND ft.predicate = ` + pType +
		` AND ft.object IN (` + tMediaObject + `, ` + tDataset + `)` + scope + `)`
}
