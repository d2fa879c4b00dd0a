// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migrations are read from an fs.FS, usually an embedded directory, and must
// be named {version}_{description}.sql (e.g. "001_create_vehicles.sql").
// Each pending migration runs in its own transaction and is recorded in the
// schema_migrations table once it commits.
//
// Example usage:
//
//	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), files, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
