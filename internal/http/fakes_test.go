package http

import (
	"context"
	"time"

	"github.com/example/fleet-scheduler/internal/application"
	"github.com/example/fleet-scheduler/internal/calendar"
)

var testBase = time.Date(2024, time.May, 6, 8, 0, 0, 0, time.UTC)

type fakeVehicleService struct {
	vehicles  map[string]application.Vehicle
	deleteErr error
	lastInput application.VehicleInput
}

func (f *fakeVehicleService) CreateVehicle(ctx context.Context, input application.VehicleInput) (application.Vehicle, error) {
	f.lastInput = input
	v := application.Vehicle{ID: "v-new", Plate: input.Plate, Make: input.Make, Model: input.Model, Status: application.VehicleAvailable, CreatedAt: testBase, UpdatedAt: testBase}
	return v, nil
}

func (f *fakeVehicleService) GetVehicle(ctx context.Context, id string) (application.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return application.Vehicle{}, application.ErrNotFound
	}
	return v, nil
}

func (f *fakeVehicleService) UpdateVehicle(ctx context.Context, params application.UpdateVehicleParams) (application.Vehicle, error) {
	v, ok := f.vehicles[params.VehicleID]
	if !ok {
		return application.Vehicle{}, application.ErrNotFound
	}
	v.Model = params.Input.Model
	return v, nil
}

func (f *fakeVehicleService) DeleteVehicle(ctx context.Context, id string) error {
	return f.deleteErr
}

func (f *fakeVehicleService) ListVehicles(ctx context.Context) ([]application.Vehicle, error) {
	out := make([]application.Vehicle, 0, len(f.vehicles))
	for _, v := range f.vehicles {
		out = append(out, v)
	}
	return out, nil
}

type fakeReservationService struct {
	createErr     error
	transitionErr error
	lastCreate    application.CreateReservationParams
	lastList      application.ListReservationsParams
	lastCandidate application.CandidateParams
	lastTarget    calendar.Status
	conflicts     []application.ConflictWarning
	available     []application.Vehicle
}

func (f *fakeReservationService) CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error) {
	f.lastCreate = params
	if f.createErr != nil {
		return application.Reservation{}, f.createErr
	}
	return application.Reservation{
		ID:        "r-new",
		VehicleID: params.Input.VehicleID,
		Holder:    params.Input.Holder,
		Start:     params.Input.Start,
		End:       params.Input.End,
		Status:    calendar.StatusPending,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	}, nil
}

func (f *fakeReservationService) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	return application.Reservation{}, application.ErrNotFound
}

func (f *fakeReservationService) UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error) {
	return application.Reservation{ID: params.ReservationID, VehicleID: params.Input.VehicleID, Start: params.Input.Start, End: params.Input.End}, nil
}

func (f *fakeReservationService) TransitionReservation(ctx context.Context, id string, target calendar.Status) (application.Reservation, error) {
	f.lastTarget = target
	if f.transitionErr != nil {
		return application.Reservation{}, f.transitionErr
	}
	return application.Reservation{ID: id, Status: target}, nil
}

func (f *fakeReservationService) DeleteReservation(ctx context.Context, id string) error {
	return nil
}

func (f *fakeReservationService) ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error) {
	f.lastList = params
	return nil, nil
}

func (f *fakeReservationService) CheckConflicts(ctx context.Context, params application.CandidateParams) ([]application.ConflictWarning, error) {
	f.lastCandidate = params
	return f.conflicts, nil
}

func (f *fakeReservationService) AvailableVehicles(ctx context.Context, params application.CandidateParams) ([]application.Vehicle, error) {
	f.lastCandidate = params
	return f.available, nil
}

type fakeCalendarService struct {
	loc        *time.Location
	view       application.CalendarView
	lastParams application.CalendarParams
}

func (f *fakeCalendarService) Calendar(ctx context.Context, params application.CalendarParams) (application.CalendarView, error) {
	f.lastParams = params
	return f.view, nil
}

func (f *fakeCalendarService) Location() *time.Location {
	if f.loc == nil {
		return time.UTC
	}
	return f.loc
}
