// Package database provides SQLite connectivity for the building data service.
//
// The database holds the import history: one row per import run with its
// summary. Canonical datasets themselves are never stored here; they live in
// memory and in the optional snapshot file.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations embedded into the binary
//   - Connection lifecycle and health checks
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Migrations are additive: new columns must be
// NULLABLE or carry a DEFAULT.
package database
