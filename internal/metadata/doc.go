// Package metadata maps the platform's metadata ontology onto table columns:
// schema-id ⇄ name-key indexes (enum options keyed as field///option), value
// coercion per metadata type, and the sync pass that creates missing table
// columns and missing platform fields before an upload.
package metadata
