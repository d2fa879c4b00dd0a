package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a record breaks a table constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing or still referenced.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrReservationConflict is returned when a blocking reservation already
	// occupies part of the requested range for the same vehicle.
	ErrReservationConflict = errors.New("persistence: reservation conflict")
)

// ReservationConflictError reports the blocking reservations found when a
// write was re-validated. It matches ErrReservationConflict with errors.Is.
type ReservationConflictError struct {
	Conflicts []Reservation
}

func (e *ReservationConflictError) Error() string {
	return fmt.Sprintf("%v: %d overlapping reservations", ErrReservationConflict, len(e.Conflicts))
}

func (e *ReservationConflictError) Unwrap() error {
	return ErrReservationConflict
}
