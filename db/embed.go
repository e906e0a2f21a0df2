// Package db embeds the storefront schema and the demo catalog.
package db

import _ "embed"

// Schema creates every storefront table. Statements are idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the demo catalog loaded by seed-db when no products file
// is given.
//
//go:embed seed/products.json
var SeedProducts []byte
