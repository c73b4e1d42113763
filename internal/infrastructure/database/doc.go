// Package database provides SQLite connectivity for HomeLink Bridge.
//
// This package manages:
//   - Opening the database with WAL mode and busy timeout pragmas
//   - Embedded SQL schema migrations
//   - Connection health checks
//
// SQLite is used as a local document-style store: the two append-only
// collections (sensor_readings, actions) are never updated or deleted by
// the bridge. Retention is an operator concern.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/homelink.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
