package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status captures the lifecycle state of a booking.
type Status string

const (
	// StatusPending marks a booking awaiting approval.
	StatusPending Status = "pending"
	// StatusActive marks an approved booking.
	StatusActive Status = "active"
	// StatusCompleted marks a booking whose period has been fulfilled.
	StatusCompleted Status = "completed"
	// StatusCancelled marks a rejected or withdrawn booking.
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Blocking reports whether bookings in this state occupy their resource.
// Only pending and active bookings take a lane, raise conflicts or make a
// resource unavailable.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusActive
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return status, nil
}

var (
	// ErrInvalidInterval is the parent of every interval construction failure.
	ErrInvalidInterval = errors.New("calendar: invalid interval")
	// ErrMissingID indicates the interval has no identifier.
	ErrMissingID = fmt.Errorf("%w: id is required", ErrInvalidInterval)
	// ErrMissingResource indicates the interval is not bound to a resource.
	ErrMissingResource = fmt.Errorf("%w: resource id is required", ErrInvalidInterval)
	// ErrMissingBounds indicates a zero start or end instant.
	ErrMissingBounds = fmt.Errorf("%w: start and end are required", ErrInvalidInterval)
	// ErrEmptyRange indicates start is not strictly before end.
	ErrEmptyRange = fmt.Errorf("%w: start must be before end", ErrInvalidInterval)
	// ErrUnknownStatus indicates the status is not a lifecycle state.
	ErrUnknownStatus = fmt.Errorf("%w: unknown status", ErrInvalidInterval)
)

// Interval is a time-bounded booking of a single resource.
//
// Intervals are values; the algorithms in this package never mutate them.
type Interval struct {
	ID         string
	ResourceID string
	Start      time.Time
	End        time.Time
	Status     Status
	Payload    any
}

// NewInterval validates the supplied fields and returns an Interval with
// UTC-normalized bounds.
func NewInterval(id, resourceID string, start, end time.Time, status Status, payload any) (Interval, error) {
	id = strings.TrimSpace(id)
	resourceID = strings.TrimSpace(resourceID)

	switch {
	case id == "":
		return Interval{}, ErrMissingID
	case resourceID == "":
		return Interval{}, ErrMissingResource
	case start.IsZero() || end.IsZero():
		return Interval{}, ErrMissingBounds
	case !start.Before(end):
		return Interval{}, ErrEmptyRange
	case !status.Valid():
		return Interval{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	return Interval{
		ID:         id,
		ResourceID: resourceID,
		Start:      start.UTC(),
		End:        end.UTC(),
		Status:     status,
		Payload:    payload,
	}, nil
}

// Overlaps reports whether the interval shares any instant with the
// half-open range [start, end). Ranges that only touch do not overlap.
func (i Interval) Overlaps(start, end time.Time) bool {
	return overlaps(i.Start, i.End, start, end)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
