package persistence

import "time"

// Vehicle represents a fleet vehicle that can be reserved.
type Vehicle struct {
	ID        string
	Plate     string
	Make      string
	Model     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation represents a booking of one vehicle over [Start, End).
type Reservation struct {
	ID        string
	VehicleID string
	Holder    string
	Purpose   *string
	Start     time.Time
	End       time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
