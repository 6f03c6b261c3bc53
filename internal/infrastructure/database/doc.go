// Package database provides the SQLite connection behind the task-run journal.
//
// This package manages:
//   - Database connection with WAL mode and a busy timeout
//   - Schema migrations loaded from an fs.FS (embedded in production)
//   - Lifecycle and health checks
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Migrations are additive: new columns must be
// nullable or carry a default.
package database
