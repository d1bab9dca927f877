// Package config loads, normalizes, and validates labelsheet configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LABELSHEET_API_KEY. The Config type centralizes every knob the CLI and
// upload orchestrator need: platform credentials, the name-path divider,
// batch sizes, and journal/log directories.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
