package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/fleet-scheduler/internal/application"
	"github.com/example/fleet-scheduler/internal/calendar"
)

type capturingVehicleRepo struct {
	created application.Vehicle
}

func (c *capturingVehicleRepo) CreateVehicle(ctx context.Context, v application.Vehicle) (application.Vehicle, error) {
	c.created = v
	return v, nil
}

func (c *capturingVehicleRepo) GetVehicle(ctx context.Context, id string) (application.Vehicle, error) {
	return application.Vehicle{}, application.ErrNotFound
}

func (c *capturingVehicleRepo) UpdateVehicle(ctx context.Context, v application.Vehicle) (application.Vehicle, error) {
	return v, nil
}

func (c *capturingVehicleRepo) DeleteVehicle(ctx context.Context, id string) error {
	return nil
}

func (c *capturingVehicleRepo) ListVehicles(ctx context.Context) ([]application.Vehicle, error) {
	return nil, nil
}

func TestServiceFactoryNewVehicleService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingVehicleRepo{}

	svc := factory.NewVehicleService(VehicleServiceDeps{Vehicles: repo})
	created, err := svc.CreateVehicle(context.Background(), application.VehicleInput{Plate: "ab-1", Make: "Ford", Model: "Transit"})
	if err != nil {
		t.Fatalf("CreateVehicle returned error: %v", err)
	}

	if created.ID != "id-1" || repo.created.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q / %q", created.ID, repo.created.ID)
	}
	if !created.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), created.CreatedAt)
	}
}

func TestReservationFixtureConversions(t *testing.T) {
	fixture := NewReservationFixture("vehicle-x",
		WithReservationID("r-1"),
		WithHours(1, 3),
		WithReservationStatus(calendar.StatusActive),
		WithPurpose("delivery"),
	)

	app := fixture.Application()
	stored := fixture.Persistence()
	if app.ID != "r-1" || stored.Status != "active" {
		t.Fatalf("unexpected conversions %#v / %#v", app, stored)
	}
	if *app.Purpose != "delivery" || app.Purpose == stored.Purpose {
		t.Fatalf("expected independent purpose copies")
	}
	if got := fixture.Interval().Duration(); got != 2*time.Hour {
		t.Fatalf("expected two hour interval, got %v", got)
	}
}

func TestSQLiteHarnessSeeds(t *testing.T) {
	harness := NewSQLiteHarness(t)
	v := NewVehicleFixture()
	harness.SeedVehicles(t, v)
	harness.SeedReservations(t, NewReservationFixture(v.ID))

	vehicles, err := harness.Vehicles.ListVehicles(context.Background())
	if err != nil || len(vehicles) != 1 || vehicles[0].ID != v.ID {
		t.Fatalf("expected seeded vehicle, got %#v (%v)", vehicles, err)
	}
}
