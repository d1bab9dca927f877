// Package journal persists upload batches in SQLite so interrupted bulk
// uploads can be inspected and resumed.
//
// The Store manages the database connection, schema initialization, status
// transitions, and aggregate summaries. Each Batch records what was sent
// where (kind, target, sequence, item count) and how it ended. A flock-based
// file lock keeps concurrent labelsheet invocations from interleaving writes.
//
// The database is transient bookkeeping for in-flight uploads rather than a
// long-term archive. Schema changes bump the version in schema.go; users
// delete the database to adopt the new schema.
package journal
