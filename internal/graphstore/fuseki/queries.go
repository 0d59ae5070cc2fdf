// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package fuseki

// Query templates. {{name}} placeholders are filled with validated IRIs by
// sparql.Build. Every crate-scoped pattern starts from the metadata
// descriptor so that only entities a crate's root mentions are matched.

const prefixes = `PREFIX schema: <http://schema.org/>
PREFIX wfrun: <https://w3id.org/ro/terms/workflow-run#>
`

const crateRoot = `
  ?md a schema:CreativeWork .
  FILTER(contains(str(?md), "ro-crate-metadata.json")) .
  ?md schema:about ?rde .`

const crateURLQuery = prefixes + `
SELECT DISTINCT ?crate_url
WHERE {
  {{rde}} schema:url ?crate_url
}
`

const graphsForFileQuery = prefixes + `
SELECT DISTINCT ?url
WHERE {` + crateRoot + `
  ?rde schema:url ?url .
  ?rde schema:hasPart {{file}} .
}
`

const graphsForResultQuery = prefixes + `
SELECT DISTINCT ?url
WHERE {` + crateRoot + `
  ?rde schema:url ?url .
  ?rde schema:mentions ?action .
  ?action a schema:CreateAction .
  ?action schema:result {{result}} .
}
`

const workflowQuery = prefixes + `
SELECT DISTINCT ?workflow
WHERE {` + crateRoot + `
  ?rde schema:mainEntity ?workflow .
}
`

const runResultsQuery = prefixes + `
SELECT DISTINCT ?result
WHERE {` + crateRoot + `
  ?rde schema:mainEntity ?workflow .
  ?action schema:instrument ?workflow .
  ?action schema:result ?result .
  { ?result a schema:MediaObject } UNION { ?result a schema:Dataset }
}
`

const runObjectsQuery = prefixes + `
SELECT DISTINCT ?object
WHERE {` + crateRoot + `
  ?rde schema:mainEntity ?workflow .
  ?action schema:instrument ?workflow .
  ?action schema:object ?object .
  { ?object a schema:MediaObject } UNION { ?object a schema:Dataset }
}
`

const runParamsQuery = prefixes + `
SELECT ?name ?value
WHERE {` + crateRoot + `
  ?rde schema:mainEntity ?workflow .
  ?action schema:instrument ?workflow .
  ?action schema:object ?object .
  ?object a schema:PropertyValue .
  ?object schema:name ?name .
  ?object schema:value ?value .
}
`

const actionsForResultQuery = prefixes + `
SELECT DISTINCT ?action
WHERE {` + crateRoot + `
  ?rde schema:mentions ?action .
  ?action a schema:CreateAction .
  ?action schema:result {{result}} .
}
`

const objectsForResultQuery = prefixes + `
SELECT DISTINCT ?object
WHERE {` + crateRoot + `
  ?rde schema:mentions ?action .
  ?action a schema:CreateAction .
  ?action schema:object ?object .
  ?action schema:result {{result}} .
  { ?object a schema:MediaObject } UNION { ?object a schema:Dataset }
}
`

const objectsForActionQuery = prefixes + `
SELECT DISTINCT ?object
WHERE {` + crateRoot + `
  ?rde schema:mentions {{action}} .
  {{action}} a schema:CreateAction .
  {{action}} schema:object ?object .
  { ?object a schema:MediaObject } UNION { ?object a schema:Dataset }
}
`

const resultsForActionQuery = prefixes + `
SELECT DISTINCT ?result
WHERE {` + crateRoot + `
  ?rde schema:mentions {{action}} .
  {{action}} a schema:CreateAction .
  {{action}} schema:result ?result .
  { ?result a schema:MediaObject } UNION { ?result a schema:Dataset }
}
`

const graphsQuery = `
SELECT DISTINCT ?g
WHERE {
  GRAPH ?g { ?s ?p ?o }
}
ORDER BY ?g
`

const rdeGraphsQuery = prefixes + `
SELECT DISTINCT ?g ?rde
WHERE {
  GRAPH ?g {` + crateRoot + `
    FILTER(STRSTARTS(STR(?md), "arcp://uuid,"))
  }
}
ORDER BY ?g
`

// existingResultsQuery takes a VALUES block of candidate ids.
const existingResultsQuery = prefixes + `
SELECT DISTINCT ?result
WHERE {
  VALUES ?result { %s }
  ?action a schema:CreateAction .
  ?action schema:result ?result .
}
`

const isFileQuery = prefixes + `
SELECT ?type
WHERE {
  {{id}} a ?type .
  FILTER(?type IN (schema:MediaObject, schema:Dataset))
}
LIMIT 1
`

const fileInfoQuery = prefixes + `
SELECT ?sha256 ?size
WHERE {
  OPTIONAL { {{id}} wfrun:sha256 ?sha256 }
  OPTIONAL { {{id}} schema:contentSize ?size }
}
LIMIT 1
`

const nextMoveQuery = prefixes + `
SELECT ?dest
WHERE {
  ?action a schema:CreateAction .
  ?action schema:instrument {{tool}} .
  ?action schema:object {{path}} .
  ?action schema:result ?dest .
  FILTER(STRSTARTS(STR(?dest), "file:/"))
}
LIMIT 1
`
