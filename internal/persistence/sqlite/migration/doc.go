// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files are named {version}_{description}.sql (for example
// "001_initial_schema.sql") and are read from an fs.FS, which lets the
// schema ship embedded in the binary. Applied versions are tracked in the
// schema_migrations table together with the file checksum, and every file
// runs inside its own transaction.
//
//	manager := NewMigrationManager(NewFileScanner(files), NewSQLiteExecutor(db), "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
