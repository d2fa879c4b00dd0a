package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute such as a plate is taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when a reservation would overlap a blocking reservation.
	ErrConflict = errors.New("application: reservation conflict")
	// ErrInvalidTransition is returned for lifecycle changes the status machine forbids.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrVehicleInUse is returned when deleting a vehicle that still has reservations.
	ErrVehicleInUse = errors.New("application: vehicle has reservations")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError lists the blocking reservations that rejected a write.
// It matches ErrConflict with errors.Is.
type ConflictError struct {
	Conflicts []ConflictWarning
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v with %d reservation(s)", ErrConflict, len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
