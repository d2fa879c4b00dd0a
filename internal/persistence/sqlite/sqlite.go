package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/example/fleet-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// timestampLayout is fixed width so lexical order of stored values matches
// chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Storage bundles the SQLite backed repositories over one connection pool.
type Storage struct {
	*VehicleRepository
	*ReservationRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Option customises Storage construction.
type Option func(*Storage)

// WithLogger sets the logger used for migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to the SQLite database at dsn. ":memory:" opens a private
// in-memory database.
func Open(dsn string, opts ...Option) (*Storage, error) {
	return OpenWithConfig(migration.FileConfig(dsn), opts...)
}

// OpenWithConfig connects using an explicit connection configuration.
func OpenWithConfig(config migration.DBConfig, opts ...Option) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	storage := &Storage{
		VehicleRepository:     NewVehicleRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		pool:                  pool,
		logger:                slog.Default(),
	}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies every pending embedded schema migration.
func (s *Storage) Migrate(ctx context.Context) error {
	files, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: open embedded migrations: %w", err)
	}

	manager := migration.NewMigrationManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		files,
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(column, value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t.UTC(), nil
}
