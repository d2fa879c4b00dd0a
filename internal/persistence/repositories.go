package persistence

import (
	"context"
	"time"
)

// VehicleRepository exposes CRUD operations for vehicles.
type VehicleRepository interface {
	CreateVehicle(ctx context.Context, vehicle Vehicle) error
	UpdateVehicle(ctx context.Context, vehicle Vehicle) error
	GetVehicle(ctx context.Context, id string) (Vehicle, error)
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries. Empty fields do not filter.
// StartsBefore and EndsAfter together select reservations overlapping a range.
type ReservationFilter struct {
	VehicleIDs   []string
	StartsBefore *time.Time
	EndsAfter    *time.Time
	Statuses     []string
}

// ReservationRepository stores reservations.
//
// CreateReservation and UpdateReservation re-check the vehicle for blocking
// overlaps inside the write transaction and return ErrReservationConflict
// instead of persisting a double booking.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	// UpdateReservationStatus changes only the status column. Moving a
	// reservation into a blocking status re-checks conflicts.
	UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	// ListElapsed returns reservations in one of statuses whose end is at or
	// before reference.
	ListElapsed(ctx context.Context, reference time.Time, statuses []string) ([]Reservation, error)
}
