// Package storage persists what the CLI produces outside the plugin directory.
//
// Ledger records every validation outcome and packaged artifact in a SQL
// database (PostgreSQL via lib/pq or SQLite via go-sqlite3), so a registry can
// later answer which digest of which plugin version passed vetting.
//
// S3Publisher uploads a packaged artifact together with a sha256sum-style
// sidecar object, after re-checking that the file still matches the digest
// taken when it was packaged.
package storage
