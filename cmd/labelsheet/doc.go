// Package main hosts the labelsheet CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the library's workflows: uploading a
// flat annotation table, exporting a project back into one, inspecting an
// ontology's feature index, reviewing the upload journal, and configuration
// scaffolding. It centralizes configuration resolution, platform client
// construction, and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
