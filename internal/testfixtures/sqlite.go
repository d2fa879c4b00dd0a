package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/fleet-scheduler/internal/persistence"
	"github.com/example/fleet-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a migrated temporary
// SQLite file.
type SQLiteHarness struct {
	Vehicles     persistence.VehicleRepository
	Reservations persistence.ReservationRepository
	Storage      *sqlite.Storage

	cleanup func()
}

// Close releases the database. It is also registered with tb.Cleanup.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh database under tb.TempDir.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "fleet.db")

	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Vehicles:     storage,
		Reservations: storage,
		Storage:      storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedVehicles inserts the fixtures and fails the test on error.
func (h *SQLiteHarness) SeedVehicles(tb testing.TB, fixtures ...VehicleFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Vehicles.CreateVehicle(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to seed vehicle %s: %v", f.ID, err)
		}
	}
}

// SeedReservations inserts the fixtures and fails the test on error.
func (h *SQLiteHarness) SeedReservations(tb testing.TB, fixtures ...ReservationFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Reservations.CreateReservation(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to seed reservation %s: %v", f.ID, err)
		}
	}
}
