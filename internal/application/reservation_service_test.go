package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/fleet-scheduler/internal/calendar"
	"github.com/example/fleet-scheduler/internal/persistence"
)

func newReservationFixture(reservations ...Reservation) (*ReservationService, *reservationRepoStub, *vehicleRepoStub) {
	vehicles := newVehicleRepoStub(
		vehicle("v1", "AA 100", VehicleAvailable),
		vehicle("v2", "BB 200", VehicleAvailable),
		vehicle("v3", "CC 300", VehicleMaintenance),
	)
	repo := newReservationRepoStub(reservations...)
	svc := NewReservationService(repo, vehicles, sequentialIDs("r-new-"), fixedNow)
	return svc, repo, vehicles
}

func TestReservationService_CreateReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("validates input", func(t *testing.T) {
		svc, _, _ := newReservationFixture()

		_, err := svc.CreateReservation(ctx, CreateReservationParams{Input: ReservationInput{
			Start: hoursFrom(4),
			End:   hoursFrom(2),
		}})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"vehicle_id", "holder", "time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects vehicles that cannot be booked", func(t *testing.T) {
		svc, _, _ := newReservationFixture()

		for _, vehicleID := range []string{"v3", "missing"} {
			_, err := svc.CreateReservation(ctx, CreateReservationParams{Input: ReservationInput{
				VehicleID: vehicleID, Holder: "Dana", Start: hoursFrom(0), End: hoursFrom(1),
			}})
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.FieldErrors["vehicle_id"] == "" {
				t.Fatalf("%s: expected vehicle_id validation error, got %v", vehicleID, err)
			}
		}
	})

	t.Run("rejects terminal statuses", func(t *testing.T) {
		svc, _, _ := newReservationFixture()

		_, err := svc.CreateReservation(ctx, CreateReservationParams{Input: ReservationInput{
			VehicleID: "v1", Holder: "Dana", Start: hoursFrom(0), End: hoursFrom(1), Status: calendar.StatusCompleted,
		}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
			t.Fatalf("expected status validation error, got %v", err)
		}
	})

	t.Run("persists pending by default", func(t *testing.T) {
		svc, repo, _ := newReservationFixture()
		purpose := "  site visit "

		created, err := svc.CreateReservation(ctx, CreateReservationParams{Input: ReservationInput{
			VehicleID: "v1", Holder: " Dana ", Purpose: &purpose, Start: hoursFrom(0), End: hoursFrom(2),
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created.ID != "r-new-1" || created.Status != calendar.StatusPending || created.Holder != "Dana" {
			t.Fatalf("unexpected reservation %#v", created)
		}
		if created.Purpose == nil || *created.Purpose != "site visit" {
			t.Fatalf("expected trimmed purpose, got %v", created.Purpose)
		}
		if _, ok := repo.items["r-new-1"]; !ok {
			t.Fatalf("expected reservation to be stored")
		}
	})

	t.Run("rejects overlap with blocking reservation", func(t *testing.T) {
		svc, repo, _ := newReservationFixture(
			booking("r1", "v1", 0, 4, calendar.StatusActive),
			booking("r2", "v1", 1, 3, calendar.StatusCancelled),
		)

		_, err := svc.CreateReservation(ctx, CreateReservationParams{Input: ReservationInput{
			VehicleID: "v1", Holder: "Lee", Start: hoursFrom(2), End: hoursFrom(5),
		}})

		var conflictErr *ConflictError
		if !errors.As(err, &conflictErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if len(conflictErr.Conflicts) != 1 || conflictErr.Conflicts[0].ReservationID != "r1" {
			t.Fatalf("expected conflict with r1 only, got %#v", conflictErr.Conflicts)
		}
		if len(repo.items) != 2 {
			t.Fatalf("conflicting reservation must not be stored")
		}
	})

	t.Run("touching reservations do not conflict", func(t *testing.T) {
		svc, _, _ := newReservationFixture(booking("r1", "v1", 0, 4, calendar.StatusActive))

		if _, err := svc.CreateReservation(ctx, CreateReservationParams{Input: ReservationInput{
			VehicleID: "v1", Holder: "Lee", Start: hoursFrom(4), End: hoursFrom(6),
		}}); err != nil {
			t.Fatalf("expected back-to-back booking to succeed, got %v", err)
		}
	})

	t.Run("surfaces store-side conflicts", func(t *testing.T) {
		svc, repo, _ := newReservationFixture()
		repo.createErr = &persistence.ReservationConflictError{Conflicts: []persistence.Reservation{{
			ID: "late", VehicleID: "v1", Holder: "Kim", Start: hoursFrom(0), End: hoursFrom(1), Status: "active",
		}}}

		_, err := svc.CreateReservation(ctx, CreateReservationParams{Input: ReservationInput{
			VehicleID: "v1", Holder: "Lee", Start: hoursFrom(0), End: hoursFrom(1),
		}})

		var conflictErr *ConflictError
		if !errors.As(err, &conflictErr) || conflictErr.Conflicts[0].ReservationID != "late" {
			t.Fatalf("expected ConflictError naming the stored reservation, got %v", err)
		}
		if conflictErr.Conflicts[0].Status != calendar.StatusActive {
			t.Fatalf("expected status to be carried, got %s", conflictErr.Conflicts[0].Status)
		}
	})
}

func TestReservationService_UpdateReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("excludes itself from the conflict check", func(t *testing.T) {
		svc, _, _ := newReservationFixture(
			booking("r1", "v1", 0, 4, calendar.StatusActive),
			booking("r2", "v1", 6, 8, calendar.StatusPending),
		)

		updated, err := svc.UpdateReservation(ctx, UpdateReservationParams{
			ReservationID: "r1",
			Input:         ReservationInput{VehicleID: "v1", Holder: "Dana", Start: hoursFrom(1), End: hoursFrom(5)},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !updated.End.Equal(hoursFrom(5)) || updated.Status != calendar.StatusActive {
			t.Fatalf("unexpected update %#v", updated)
		}

		_, err = svc.UpdateReservation(ctx, UpdateReservationParams{
			ReservationID: "r1",
			Input:         ReservationInput{VehicleID: "v1", Holder: "Dana", Start: hoursFrom(1), End: hoursFrom(7)},
		})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict against r2, got %v", err)
		}
	})

	t.Run("only pending or active reservations are editable", func(t *testing.T) {
		svc, _, _ := newReservationFixture(booking("r1", "v1", 0, 4, calendar.StatusCompleted))

		_, err := svc.UpdateReservation(ctx, UpdateReservationParams{
			ReservationID: "r1",
			Input:         ReservationInput{VehicleID: "v1", Holder: "Dana", Start: hoursFrom(0), End: hoursFrom(2)},
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("status cannot change through update", func(t *testing.T) {
		svc, _, _ := newReservationFixture(booking("r1", "v1", 0, 4, calendar.StatusPending))

		_, err := svc.UpdateReservation(ctx, UpdateReservationParams{
			ReservationID: "r1",
			Input: ReservationInput{
				VehicleID: "v1", Holder: "Dana", Start: hoursFrom(0), End: hoursFrom(2), Status: calendar.StatusActive,
			},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
			t.Fatalf("expected status validation error, got %v", err)
		}
	})

	t.Run("missing reservation", func(t *testing.T) {
		svc, _, _ := newReservationFixture()
		_, err := svc.UpdateReservation(ctx, UpdateReservationParams{ReservationID: "nope"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReservationService_TransitionReservation(t *testing.T) {
	tests := []struct {
		name    string
		from    calendar.Status
		to      calendar.Status
		wantErr error
	}{
		{name: "approve", from: calendar.StatusPending, to: calendar.StatusActive},
		{name: "reject", from: calendar.StatusPending, to: calendar.StatusCancelled},
		{name: "complete", from: calendar.StatusActive, to: calendar.StatusCompleted},
		{name: "cancel active", from: calendar.StatusActive, to: calendar.StatusCancelled},
		{name: "skip approval", from: calendar.StatusPending, to: calendar.StatusCompleted, wantErr: ErrInvalidTransition},
		{name: "reopen completed", from: calendar.StatusCompleted, to: calendar.StatusActive, wantErr: ErrInvalidTransition},
		{name: "revive cancelled", from: calendar.StatusCancelled, to: calendar.StatusPending, wantErr: ErrInvalidTransition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := newReservationFixture(booking("r1", "v1", 0, 4, tc.from))
			svc.now = func() time.Time { return hoursFrom(1) }

			got, err := svc.TransitionReservation(context.Background(), "r1", tc.to)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if repo.items["r1"].Status != tc.from {
					t.Fatalf("status must not change on rejected transition")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tc.to || !got.UpdatedAt.Equal(hoursFrom(1)) {
				t.Fatalf("unexpected result %#v", got)
			}
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		svc, _, _ := newReservationFixture(booking("r1", "v1", 0, 4, calendar.StatusPending))
		var vErr *ValidationError
		if _, err := svc.TransitionReservation(context.Background(), "r1", "archived"); !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestReservationService_CheckConflicts(t *testing.T) {
	svc, _, _ := newReservationFixture(
		booking("r1", "v1", 0, 4, calendar.StatusActive),
		booking("r2", "v1", 3, 6, calendar.StatusPending),
		booking("r3", "v1", 2, 5, calendar.StatusCancelled),
		booking("r4", "v2", 0, 8, calendar.StatusActive),
	)
	ctx := context.Background()

	conflicts, err := svc.CheckConflicts(ctx, CandidateParams{VehicleID: "v1", Start: hoursFrom(2), End: hoursFrom(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 2 || conflicts[0].ReservationID != "r1" || conflicts[1].ReservationID != "r2" {
		t.Fatalf("expected r1 then r2, got %#v", conflicts)
	}

	conflicts, err = svc.CheckConflicts(ctx, CandidateParams{VehicleID: "v1", Start: hoursFrom(2), End: hoursFrom(5), ExcludeID: "r1"})
	if err != nil || len(conflicts) != 1 || conflicts[0].ReservationID != "r2" {
		t.Fatalf("expected only r2 when excluding r1, got %#v (%v)", conflicts, err)
	}

	if _, err := svc.CheckConflicts(ctx, CandidateParams{VehicleID: "v1", Start: hoursFrom(5), End: hoursFrom(5)}); err == nil {
		t.Fatalf("expected empty range to be rejected")
	}
}

func TestReservationService_AvailableVehicles(t *testing.T) {
	svc, _, _ := newReservationFixture(
		booking("r1", "v1", 0, 4, calendar.StatusActive),
		booking("r2", "v2", 0, 4, calendar.StatusCancelled),
	)
	ctx := context.Background()

	available, err := svc.AvailableVehicles(ctx, CandidateParams{Start: hoursFrom(2), End: hoursFrom(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(available) != 1 || available[0].ID != "v2" {
		t.Fatalf("expected only v2 (v1 busy, v3 in maintenance), got %#v", available)
	}

	available, err = svc.AvailableVehicles(ctx, CandidateParams{Start: hoursFrom(2), End: hoursFrom(3), ExcludeID: "r1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(available) != 2 || available[0].ID != "v1" || available[1].ID != "v2" {
		t.Fatalf("expected v1 and v2 in plate order when r1 is being edited, got %#v", available)
	}

	// Availability and conflicts are two views of the same rule.
	for _, v := range []string{"v1", "v2"} {
		conflicts, err := svc.CheckConflicts(ctx, CandidateParams{VehicleID: v, Start: hoursFrom(2), End: hoursFrom(3)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		free := v == "v2"
		if free != (len(conflicts) == 0) {
			t.Fatalf("%s: availability and conflicts disagree", v)
		}
	}
}

func TestReservationService_CompleteElapsed(t *testing.T) {
	svc, repo, _ := newReservationFixture(
		booking("r1", "v1", -4, -2, calendar.StatusActive),
		booking("r2", "v2", -3, 0, calendar.StatusActive),
		booking("r3", "v1", -2, 2, calendar.StatusActive),
		booking("r4", "v2", -6, -5, calendar.StatusPending),
	)
	repo.statusErr = map[string]error{"r2": persistence.ErrNotFound}

	completed, err := svc.CompleteElapsed(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed != 1 {
		t.Fatalf("expected one completion, got %d", completed)
	}
	if repo.items["r1"].Status != calendar.StatusCompleted {
		t.Fatalf("expected r1 completed, got %s", repo.items["r1"].Status)
	}
	if repo.items["r3"].Status != calendar.StatusActive || repo.items["r4"].Status != calendar.StatusPending {
		t.Fatalf("running and pending reservations must be left alone")
	}

	repo.statusErr = map[string]error{"r2": errors.New("disk full")}
	if _, err := svc.CompleteElapsed(context.Background()); err == nil {
		t.Fatalf("expected update failures to be reported")
	}
}

func TestReservationService_ListReservations(t *testing.T) {
	svc, _, _ := newReservationFixture(
		booking("r2", "v1", 4, 6, calendar.StatusPending),
		booking("r1", "v1", 0, 2, calendar.StatusActive),
		booking("r3", "v2", 0, 2, calendar.StatusCancelled),
	)
	ctx := context.Background()

	all, err := svc.ListReservations(ctx, ListReservationsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "r1" || all[1].ID != "r3" || all[2].ID != "r2" {
		t.Fatalf("expected start then id ordering, got %#v", all)
	}

	from, to := hoursFrom(3), hoursFrom(10)
	windowed, err := svc.ListReservations(ctx, ListReservationsParams{From: &from, To: &to})
	if err != nil || len(windowed) != 1 || windowed[0].ID != "r2" {
		t.Fatalf("expected only r2 in window, got %#v (%v)", windowed, err)
	}

	if _, err := svc.ListReservations(ctx, ListReservationsParams{From: &to, To: &from}); err == nil {
		t.Fatalf("expected inverted range to be rejected")
	}
}

func TestReservationService_DeleteReservation(t *testing.T) {
	svc, repo, _ := newReservationFixture(booking("r1", "v1", 0, 2, calendar.StatusActive))

	if err := svc.DeleteReservation(context.Background(), "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatalf("expected reservation removed")
	}
	if err := svc.DeleteReservation(context.Background(), "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
