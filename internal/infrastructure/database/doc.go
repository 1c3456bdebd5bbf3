// Package database provides the SQLite store used for local launch history.
//
// The database lives next to the backend log (~/.warehouse/desktop.db by
// default). It is opened in WAL mode with a single connection, and schema
// migrations are embedded in the binary by the migrations package and
// applied on startup.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
