// Package logging wraps log/slog with the two output formats the CLI
// supports: a compact console format that prefixes messages with the owning
// component, and line-delimited JSON for machine consumption.
//
// Loggers are built from the [labelsheet/internal/config] logging section via
// NewFromConfig, which also tees records into labelsheet.log under the
// configured log directory. Attribute constructors and the shared field names
// live in attrs.go so upload stages log consistently.
package logging
