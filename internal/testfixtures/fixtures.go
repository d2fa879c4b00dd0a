package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/fleet-scheduler/internal/application"
	"github.com/example/fleet-scheduler/internal/calendar"
	"github.com/example/fleet-scheduler/internal/persistence"
)

var (
	vehicleCounter     uint64
	reservationCounter uint64
)

// referenceTime is a Tuesday afternoon in UTC.
var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Vehicle fixtures -----------------------------

// VehicleFixture is a deterministic vehicle that can be materialised for
// application or persistence tests.
type VehicleFixture struct {
	ID        string
	Plate     string
	Make      string
	Model     string
	Status    application.VehicleStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VehicleOption configures a VehicleFixture.
type VehicleOption func(*VehicleFixture)

// NewVehicleFixture returns an available vehicle with a unique id and plate.
func NewVehicleFixture(opts ...VehicleOption) VehicleFixture {
	idx := atomic.AddUint64(&vehicleCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := VehicleFixture{
		ID:        fmt.Sprintf("vehicle-%03d", idx),
		Plate:     fmt.Sprintf("FLEET-%03d", idx),
		Make:      "Toyota",
		Model:     "Hiace",
		Status:    application.VehicleAvailable,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithVehicleID overrides the generated vehicle id.
func WithVehicleID(id string) VehicleOption {
	return func(f *VehicleFixture) { f.ID = id }
}

// WithPlate overrides the generated plate.
func WithPlate(plate string) VehicleOption {
	return func(f *VehicleFixture) { f.Plate = plate }
}

// WithVehicleStatus overrides the availability status.
func WithVehicleStatus(status application.VehicleStatus) VehicleOption {
	return func(f *VehicleFixture) { f.Status = status }
}

// Application returns the fixture as an application.Vehicle.
func (f VehicleFixture) Application() application.Vehicle {
	return application.Vehicle{
		ID:        f.ID,
		Plate:     f.Plate,
		Make:      f.Make,
		Model:     f.Model,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Vehicle.
func (f VehicleFixture) Persistence() persistence.Vehicle {
	return persistence.Vehicle{
		ID:        f.ID,
		Plate:     f.Plate,
		Make:      f.Make,
		Model:     f.Model,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// --------------------------- Reservation fixtures ---------------------------

// ReservationFixture is a deterministic reservation. By default it is a
// pending two hour booking starting one hour after ReferenceTime.
type ReservationFixture struct {
	ID        string
	VehicleID string
	Holder    string
	Purpose   *string
	Start     time.Time
	End       time.Time
	Status    calendar.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReservationOption configures a ReservationFixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a reservation for vehicleID.
func NewReservationFixture(vehicleID string, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := referenceTime.Add(time.Hour)
	fixture := ReservationFixture{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		VehicleID: vehicleID,
		Holder:    fmt.Sprintf("Driver %03d", idx),
		Start:     start,
		End:       start.Add(2 * time.Hour),
		Status:    calendar.StatusPending,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation id.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) { f.ID = id }
}

// WithRange sets the half-open booking range.
func WithRange(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithHours sets the range relative to ReferenceTime in whole hours.
func WithHours(startHour, endHour int) ReservationOption {
	return WithRange(
		referenceTime.Add(time.Duration(startHour)*time.Hour),
		referenceTime.Add(time.Duration(endHour)*time.Hour),
	)
}

// WithReservationStatus overrides the lifecycle status.
func WithReservationStatus(status calendar.Status) ReservationOption {
	return func(f *ReservationFixture) { f.Status = status }
}

// WithPurpose sets the optional purpose.
func WithPurpose(purpose string) ReservationOption {
	return func(f *ReservationFixture) { f.Purpose = &purpose }
}

// Application returns the fixture as an application.Reservation.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:        f.ID,
		VehicleID: f.VehicleID,
		Holder:    f.Holder,
		Purpose:   copyString(f.Purpose),
		Start:     f.Start,
		End:       f.End,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:        f.ID,
		VehicleID: f.VehicleID,
		Holder:    f.Holder,
		Purpose:   copyString(f.Purpose),
		Start:     f.Start,
		End:       f.End,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Interval returns the fixture as a calendar interval.
func (f ReservationFixture) Interval() calendar.Interval {
	return f.Application().Interval()
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
