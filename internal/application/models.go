package application

import (
	"time"

	"github.com/example/fleet-scheduler/internal/calendar"
)

// VehicleStatus describes whether a vehicle may take new reservations.
type VehicleStatus string

const (
	// VehicleAvailable marks a vehicle that can be reserved.
	VehicleAvailable VehicleStatus = "available"
	// VehicleMaintenance marks a vehicle that is temporarily off the road.
	VehicleMaintenance VehicleStatus = "maintenance"
	// VehicleOutOfService marks a retired or broken vehicle.
	VehicleOutOfService VehicleStatus = "out_of_service"
)

// Valid reports whether the status is one of the known vehicle statuses.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleMaintenance, VehicleOutOfService:
		return true
	}
	return false
}

// VehicleInput captures caller provided vehicle fields.
type VehicleInput struct {
	Plate  string
	Make   string
	Model  string
	Status VehicleStatus
}

// Vehicle represents a reservable fleet vehicle.
type Vehicle struct {
	ID        string
	Plate     string
	Make      string
	Model     string
	Status    VehicleStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateVehicleParams wraps the data required to update a vehicle.
type UpdateVehicleParams struct {
	VehicleID string
	Input     VehicleInput
}

// ReservationInput captures caller provided reservation fields. Status is
// only honoured on creation and defaults to pending.
type ReservationInput struct {
	VehicleID string
	Holder    string
	Purpose   *string
	Start     time.Time
	End       time.Time
	Status    calendar.Status
}

// Reservation represents a booking of one vehicle for a half-open time range.
type Reservation struct {
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

// Interval converts the reservation into the calendar engine's representation.
func (r Reservation) Interval() calendar.Interval {
	return calendar.Interval{
		ID:         r.ID,
		ResourceID: r.VehicleID,
		Start:      r.Start,
		End:        r.End,
		Status:     r.Status,
		Payload:    r,
	}
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Input ReservationInput
}

// UpdateReservationParams wraps the data required to update a reservation.
type UpdateReservationParams struct {
	ReservationID string
	Input         ReservationInput
}

// ListReservationsParams narrows reservation listings. Zero values mean no constraint.
type ListReservationsParams struct {
	VehicleIDs []string
	From       *time.Time
	To         *time.Time
	Statuses   []calendar.Status
}

// ReservationRepositoryFilter is passed through to the reservation store.
type ReservationRepositoryFilter struct {
	VehicleIDs   []string
	StartsBefore *time.Time
	EndsAfter    *time.Time
	Statuses     []calendar.Status
}

// CandidateParams describes a prospective booking checked before it is submitted.
type CandidateParams struct {
	VehicleID string
	Start     time.Time
	End       time.Time
	// ExcludeID names the reservation being edited so it never conflicts with itself.
	ExcludeID string
}

// ConflictWarning describes a blocking reservation that overlaps a candidate.
type ConflictWarning struct {
	ReservationID string
	VehicleID     string
	Holder        string
	Start         time.Time
	End           time.Time
	Status        calendar.Status
}

// CalendarParams selects the visible window of the reservation calendar.
type CalendarParams struct {
	View       calendar.View
	Reference  time.Time
	VehicleIDs []string
}

// CalendarView is the render-ready result of a calendar query.
type CalendarView struct {
	Layout       calendar.Layout
	Reservations []Reservation
	Vehicles     map[string]Vehicle
	// Fingerprint changes whenever the window or any visible reservation changes.
	Fingerprint string
}
