// Package platform is the HTTP client for the labeling platform's upload
// API: data row creation, project batching, annotation and prediction
// imports, model run upserts, metadata ontology CRUD, and label export.
//
// Long-running operations follow the platform's job model: submit returns a
// handle, WaitForJob polls until a terminal state under a configurable
// deadline. Remote failures are classified into the shared error taxonomy
// (transient for retryable network and server errors, configuration for
// authentication, validation for rejected payloads).
package platform
