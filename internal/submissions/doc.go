// Package submissions persists delivered artifacts and their metadata in SQLite.
//
// A Submission is written only after its notify phase succeeded, normally with
// status email_sent. Records carry the artifact blob; listing queries never
// load it, so callers fetch it on demand through Artifact. List returns
// records newest first.
//
// The store uses modernc.org/sqlite with WAL journaling and a busy timeout,
// retries writes that hit SQLITE_BUSY, and verifies a schema version stamp on
// open.
package submissions
