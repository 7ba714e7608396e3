// Package store persists the station's append-only weather log.
//
// Tip events and sample records share one table whose columns are the union of
// both record kinds; columns that do not apply to a row are NULL. Readers treat
// the table as a single chronological log.
//
// Every append is one transaction taken under the store's write mutex, so the
// capture path and the sampling loop are linearized and a reader never sees a
// partially written row. The SQLite file runs in WAL mode so external readers
// can query while the daemon writes.
package store
