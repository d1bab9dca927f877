// Package services defines shared utilities consumed by the upload
// orchestrator and the platform client.
//
// Key responsibilities:
//   - Context helpers that stamp journal batch IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent journal statuses (failed vs review).
//
// Use these helpers when wiring new upload stages so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
