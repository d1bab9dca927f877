// Package exporter flattens a project's exported labels into the same
// tabular shape the uploader consumes: identity columns (global key, row
// data, data row id, label id, external id) plus one
// annotation{divider}type{divider}name column per top-level feature. Cell
// values are JSON instance tuples, so export output can be edited in a
// spreadsheet and uploaded back without conversion.
package exporter
