package application

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/example/fleet-scheduler/internal/calendar"
	"github.com/example/fleet-scheduler/internal/persistence"
)

var testBase = time.Date(2024, time.May, 6, 8, 0, 0, 0, time.UTC)

func hoursFrom(h int) time.Time {
	return testBase.Add(time.Duration(h) * time.Hour)
}

func fixedNow() time.Time { return testBase }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

type vehicleRepoStub struct {
	vehicles  map[string]Vehicle
	createErr error
	updateErr error
	deleteErr error
	listErr   error
	deleted   []string
}

func newVehicleRepoStub(vehicles ...Vehicle) *vehicleRepoStub {
	stub := &vehicleRepoStub{vehicles: make(map[string]Vehicle)}
	for _, v := range vehicles {
		stub.vehicles[v.ID] = v
	}
	return stub
}

func (r *vehicleRepoStub) CreateVehicle(ctx context.Context, vehicle Vehicle) (Vehicle, error) {
	if r.createErr != nil {
		return Vehicle{}, r.createErr
	}
	for _, existing := range r.vehicles {
		if existing.Plate == vehicle.Plate {
			return Vehicle{}, persistence.ErrDuplicate
		}
	}
	r.vehicles[vehicle.ID] = vehicle
	return vehicle, nil
}

func (r *vehicleRepoStub) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return Vehicle{}, persistence.ErrNotFound
	}
	return v, nil
}

func (r *vehicleRepoStub) UpdateVehicle(ctx context.Context, vehicle Vehicle) (Vehicle, error) {
	if r.updateErr != nil {
		return Vehicle{}, r.updateErr
	}
	if _, ok := r.vehicles[vehicle.ID]; !ok {
		return Vehicle{}, persistence.ErrNotFound
	}
	r.vehicles[vehicle.ID] = vehicle
	return vehicle, nil
}

func (r *vehicleRepoStub) DeleteVehicle(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.vehicles[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.vehicles, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *vehicleRepoStub) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, v)
	}
	return out, nil
}

// reservationRepoStub keeps reservations in memory and applies filters the
// way the SQLite store does.
type reservationRepoStub struct {
	items map[string]Reservation

	createErr error
	updateErr error
	statusErr map[string]error
	listCalls int
}

func newReservationRepoStub(reservations ...Reservation) *reservationRepoStub {
	stub := &reservationRepoStub{items: make(map[string]Reservation)}
	for _, r := range reservations {
		stub.items[r.ID] = r
	}
	return stub
}

func (r *reservationRepoStub) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	if r.createErr != nil {
		return Reservation{}, r.createErr
	}
	r.items[reservation.ID] = reservation
	return reservation, nil
}

func (r *reservationRepoStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	res, ok := r.items[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return res, nil
}

func (r *reservationRepoStub) UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	if r.updateErr != nil {
		return Reservation{}, r.updateErr
	}
	if _, ok := r.items[reservation.ID]; !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	r.items[reservation.ID] = reservation
	return reservation, nil
}

func (r *reservationRepoStub) UpdateReservationStatus(ctx context.Context, id string, status calendar.Status, updatedAt time.Time) (Reservation, error) {
	if err := r.statusErr[id]; err != nil {
		return Reservation{}, err
	}
	res, ok := r.items[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	res.Status = status
	res.UpdatedAt = updatedAt
	r.items[id] = res
	return res, nil
}

func (r *reservationRepoStub) DeleteReservation(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *reservationRepoStub) ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error) {
	r.listCalls++
	var out []Reservation
	for _, res := range r.items {
		if len(filter.VehicleIDs) > 0 && !slices.Contains(filter.VehicleIDs, res.VehicleID) {
			continue
		}
		if filter.StartsBefore != nil && !res.Start.Before(*filter.StartsBefore) {
			continue
		}
		if filter.EndsAfter != nil && !res.End.After(*filter.EndsAfter) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, res.Status) {
			continue
		}
		out = append(out, res)
	}
	sortReservations(out)
	return out, nil
}

func (r *reservationRepoStub) ListElapsed(ctx context.Context, reference time.Time, statuses []calendar.Status) ([]Reservation, error) {
	var out []Reservation
	for _, res := range r.items {
		if res.End.After(reference) || !slices.Contains(statuses, res.Status) {
			continue
		}
		out = append(out, res)
	}
	sortReservations(out)
	return out, nil
}

func vehicle(id, plate string, status VehicleStatus) Vehicle {
	return Vehicle{ID: id, Plate: plate, Make: "Toyota", Model: "Hiace", Status: status, CreatedAt: testBase, UpdatedAt: testBase}
}

func booking(id, vehicleID string, startHour, endHour int, status calendar.Status) Reservation {
	return Reservation{
		ID:        id,
		VehicleID: vehicleID,
		Holder:    "Dana",
		Start:     hoursFrom(startHour),
		End:       hoursFrom(endHour),
		Status:    status,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	}
}
