// Package schemas embeds the JSON Schemas for the YAML files the CLI reads.
package schemas

import _ "embed"

//go:embed catalog.schema.json
var CatalogSchemaJSON string

//go:embed level.schema.json
var LevelSchemaJSON string

//go:embed placement.schema.json
var PlacementSchemaJSON string
