// Package database keeps a local history of scrape runs in SQLite.
//
// Each finished run stores one row in runs (seed, options, counters,
// collected error lines) and one row per saved media file in downloads,
// including the file's SHA3-256 checksum. The store is append-only from
// the crawler's point of view and is only read by the history command.
//
// modernc.org/sqlite is used so the binary stays CGO-free.
package database
