// Package table abstracts the tabular input an upload works from. The
// Adapter interface exposes the four operations the pipeline needs (column
// listing, column creation, distinct values, row iteration) so the rest of
// the code stays backend-agnostic; Memory covers CSV input and SQLite covers
// database tables.
//
// The package also owns the typed column-name grammar
// (class///type///name) and terminal rendering of tabular results.
package table
