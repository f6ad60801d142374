// Package database provides SQLite database connectivity for Hue Logic.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations applied from an embedded filesystem
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS(), "."); err != nil {
//	    log.Fatal(err)
//	}
package database
