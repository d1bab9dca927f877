// Package uploader orchestrates a full table upload against the labeling
// platform.
//
// A run walks the table once into a Plan, then executes the upload stages in
// order: metadata field sync, global-key vetting (releasing keys held by
// deleted rows, reusing or renaming duplicates), batched data row creation,
// project batching, annotation import, model run row upserts, and prediction
// upload. Every remote batch is recorded in the journal before submission
// and transitioned to a terminal status afterwards; a failed batch halts the
// run rather than continuing past it.
//
// Annotation and prediction cells are JSON-encoded instance tuples (see
// ParseCell) that the project ontology's inverse index turns into nested
// upload records.
package uploader
