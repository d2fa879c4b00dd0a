package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/fleet-scheduler/internal/calendar"
	"github.com/example/fleet-scheduler/internal/persistence"
)

// ReservationRepository captures the persistence operations needed by the reservation service.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status calendar.Status, updatedAt time.Time) (Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error)
	ListElapsed(ctx context.Context, reference time.Time, statuses []calendar.Status) ([]Reservation, error)
}

// VehicleLookup is the read side of the vehicle catalog used by reservation workflows.
type VehicleLookup interface {
	GetVehicle(ctx context.Context, id string) (Vehicle, error)
	ListVehicles(ctx context.Context) ([]Vehicle, error)
}

var blockingStatuses = []calendar.Status{calendar.StatusPending, calendar.StatusActive}

// allowedTransitions is the reservation lifecycle. Completed and cancelled are terminal.
var allowedTransitions = map[calendar.Status][]calendar.Status{
	calendar.StatusPending: {calendar.StatusActive, calendar.StatusCancelled},
	calendar.StatusActive:  {calendar.StatusCompleted, calendar.StatusCancelled},
}

// ReservationService coordinates reservation validation, conflict checks, and persistence.
type ReservationService struct {
	reservations ReservationRepository
	vehicles     VehicleLookup
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService constructs a reservation service.
func NewReservationService(reservations ReservationRepository, vehicles VehicleLookup, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, vehicles, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, vehicles VehicleLookup, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		vehicles:     vehicles,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation validates the input, rejects it when the current snapshot
// already holds a blocking overlap, and persists it. The store repeats the
// overlap check on commit; a conflict found there is reported the same way.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateReservation", "vehicle_id", input.VehicleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	if input.Status == "" {
		input.Status = calendar.StatusPending
	}

	vErr := validateReservationCore(input)
	if !input.Status.Blocking() {
		vErr.add("status", "new reservations must be pending or active")
	}
	if !vErr.HasErrors() {
		vErr.merge(s.ensureVehicleBookable(ctx, input.VehicleID))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := Reservation{
		ID:        s.idGenerator(),
		VehicleID: input.VehicleID,
		Holder:    strings.TrimSpace(input.Holder),
		Purpose:   normalizeOptionalString(input.Purpose),
		Start:     input.Start,
		End:       input.End,
		Status:    input.Status,
		CreatedAt: s.now(),
	}
	candidate.UpdatedAt = candidate.CreatedAt

	if err = s.rejectConflicts(ctx, CandidateParams{VehicleID: candidate.VehicleID, Start: candidate.Start, End: candidate.End}); err != nil {
		return
	}

	reservation, err = s.reservations.CreateReservation(ctx, candidate)
	if err != nil {
		err = mapReservationRepoError(err)
	}
	return
}

// UpdateReservation replaces the booking details of a pending or active
// reservation. The reservation is excluded from its own conflict check.
func (s *ReservationService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateReservation", "reservation_id", params.ReservationID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation updated")
	}()

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if !existing.Status.Blocking() {
		err = fmt.Errorf("%w: %s reservations cannot be edited", ErrInvalidTransition, existing.Status)
		return
	}

	input := params.Input
	vErr := validateReservationCore(input)
	if input.Status != "" && input.Status != existing.Status {
		vErr.add("status", "status changes use the status endpoint")
	}
	if !vErr.HasErrors() && input.VehicleID != existing.VehicleID {
		vErr.merge(s.ensureVehicleBookable(ctx, input.VehicleID))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.VehicleID = input.VehicleID
	updated.Holder = strings.TrimSpace(input.Holder)
	updated.Purpose = normalizeOptionalString(input.Purpose)
	updated.Start = input.Start
	updated.End = input.End
	updated.UpdatedAt = s.now()

	if err = s.rejectConflicts(ctx, CandidateParams{
		VehicleID: updated.VehicleID,
		Start:     updated.Start,
		End:       updated.End,
		ExcludeID: updated.ID,
	}); err != nil {
		return
	}

	reservation, err = s.reservations.UpdateReservation(ctx, updated)
	if err != nil {
		err = mapReservationRepoError(err)
	}
	return
}

// TransitionReservation moves a reservation along its lifecycle: pending to
// active or cancelled, and active to completed or cancelled. Approving a
// pending reservation re-checks it against the current snapshot.
func (s *ReservationService) TransitionReservation(ctx context.Context, reservationID string, target calendar.Status) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "TransitionReservation",
		"reservation_id", reservationID,
		"target_status", string(target),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change reservation status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation status changed")
	}()

	if !target.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", fmt.Sprintf("unknown status %q", target))
		err = vErr
		return
	}

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if !canTransition(existing.Status, target) {
		err = fmt.Errorf("%w: %s to %s", ErrInvalidTransition, existing.Status, target)
		return
	}

	if target.Blocking() {
		if err = s.rejectConflicts(ctx, CandidateParams{
			VehicleID: existing.VehicleID,
			Start:     existing.Start,
			End:       existing.End,
			ExcludeID: existing.ID,
		}); err != nil {
			return
		}
	}

	reservation, err = s.reservations.UpdateReservationStatus(ctx, existing.ID, target, s.now())
	if err != nil {
		err = mapReservationRepoError(err)
	}
	return
}

// DeleteReservation removes a reservation regardless of status.
func (s *ReservationService) DeleteReservation(ctx context.Context, reservationID string) error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteReservation", "reservation_id", reservationID)

	if err := s.reservations.DeleteReservation(ctx, reservationID); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "reservation deleted")
	return nil
}

// GetReservation returns a single reservation.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}
	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations ordered by start then id. From and To
// select reservations overlapping [From, To).
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListReservations")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).DebugContext(ctx, "reservations listed")
	}()

	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		vErr := &ValidationError{}
		vErr.add("range", "from must be before to")
		err = vErr
		return
	}
	for _, status := range params.Statuses {
		if !status.Valid() {
			vErr := &ValidationError{}
			vErr.add("status", fmt.Sprintf("unknown status %q", status))
			err = vErr
			return
		}
	}

	var raw []Reservation
	raw, err = s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		VehicleIDs:   uniqueStrings(params.VehicleIDs),
		StartsBefore: params.To,
		EndsAfter:    params.From,
		Statuses:     params.Statuses,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		err = mapReservationRepoError(err)
		return
	}

	reservations = make([]Reservation, len(raw))
	copy(reservations, raw)
	sortReservations(reservations)
	return
}

// CheckConflicts reports the blocking reservations overlapping a prospective
// booking. The answer reflects the current snapshot and is advisory only.
func (s *ReservationService) CheckConflicts(ctx context.Context, params CandidateParams) ([]ConflictWarning, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if vErr := validateCandidate(params, true); vErr.HasErrors() {
		return nil, vErr
	}
	return s.findConflicts(ctx, params)
}

// AvailableVehicles lists the vehicles, ordered by plate, that are in service
// and have no blocking reservation overlapping the candidate range.
func (s *ReservationService) AvailableVehicles(ctx context.Context, params CandidateParams) (vehicles []Vehicle, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.vehicles == nil || s.reservations == nil {
		err = fmt.Errorf("reservation service not fully configured")
		return
	}

	logger := s.loggerWith(ctx, "AvailableVehicles")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve available vehicles", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(vehicles)).DebugContext(ctx, "available vehicles resolved")
	}()

	if vErr := validateCandidate(params, false); vErr.HasErrors() {
		err = vErr
		return
	}

	var all []Vehicle
	all, err = s.vehicles.ListVehicles(ctx)
	if err != nil {
		err = mapVehicleRepoError(err)
		return
	}
	sortVehicles(all)

	byID := make(map[string]Vehicle, len(all))
	inService := make([]string, 0, len(all))
	for _, v := range all {
		if v.Status != VehicleAvailable {
			continue
		}
		byID[v.ID] = v
		inService = append(inService, v.ID)
	}
	if len(inService) == 0 {
		return []Vehicle{}, nil
	}

	end, start := params.End, params.Start
	var overlapping []Reservation
	overlapping, err = s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		StartsBefore: &end,
		EndsAfter:    &start,
		Statuses:     blockingStatuses,
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	free := calendar.FindAvailable(calendar.Candidate{
		Start:     params.Start,
		End:       params.End,
		ExcludeID: params.ExcludeID,
	}, inService, toIntervals(overlapping))

	vehicles = make([]Vehicle, 0, len(free))
	for _, id := range free {
		vehicles = append(vehicles, byID[id])
	}
	return
}

// CompleteElapsed marks every active reservation whose end is not after now as
// completed and returns how many were changed. Reservations removed while the
// sweep runs are skipped.
func (s *ReservationService) CompleteElapsed(ctx context.Context) (completed int, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return 0, nil
	}

	now := s.now()
	logger := s.loggerWith(ctx, "CompleteElapsed", "reference", now)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete elapsed reservations", "error", err, "error_kind", ErrorKind(err), "completed", completed)
			return
		}
		if completed > 0 {
			logger.With("completed", completed).InfoContext(ctx, "elapsed reservations completed")
		}
	}()

	var elapsed []Reservation
	elapsed, err = s.reservations.ListElapsed(ctx, now, []calendar.Status{calendar.StatusActive})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	var errs []error
	for _, r := range elapsed {
		if _, uErr := s.reservations.UpdateReservationStatus(ctx, r.ID, calendar.StatusCompleted, now); uErr != nil {
			if errors.Is(uErr, persistence.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("complete %s: %w", r.ID, uErr))
			continue
		}
		completed++
	}
	err = errors.Join(errs...)
	return
}

func (s *ReservationService) ensureVehicleBookable(ctx context.Context, vehicleID string) *ValidationError {
	vErr := &ValidationError{}
	if s.vehicles == nil {
		return vErr
	}
	vehicle, err := s.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(mapVehicleRepoError(err), ErrNotFound) {
			vErr.add("vehicle_id", "vehicle does not exist")
			return vErr
		}
		vErr.add("vehicle_id", "vehicle could not be loaded")
		return vErr
	}
	if vehicle.Status != VehicleAvailable {
		vErr.add("vehicle_id", fmt.Sprintf("vehicle is %s", vehicle.Status))
	}
	return vErr
}

func (s *ReservationService) rejectConflicts(ctx context.Context, params CandidateParams) error {
	conflicts, err := s.findConflicts(ctx, params)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

func (s *ReservationService) findConflicts(ctx context.Context, params CandidateParams) ([]ConflictWarning, error) {
	if s.reservations == nil {
		return nil, nil
	}

	end, start := params.End, params.Start
	existing, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		VehicleIDs:   []string{params.VehicleID},
		StartsBefore: &end,
		EndsAfter:    &start,
		Statuses:     blockingStatuses,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, mapReservationRepoError(err)
	}

	found := calendar.FindConflicts(calendar.Candidate{
		ResourceID: params.VehicleID,
		Start:      params.Start,
		End:        params.End,
		ExcludeID:  params.ExcludeID,
	}, toIntervals(existing))

	warnings := make([]ConflictWarning, 0, len(found))
	for _, iv := range found {
		if r, ok := iv.Payload.(Reservation); ok {
			warnings = append(warnings, toConflictWarning(r))
		}
	}
	return warnings, nil
}

func canTransition(from, to calendar.Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func toIntervals(reservations []Reservation) []calendar.Interval {
	intervals := make([]calendar.Interval, 0, len(reservations))
	for _, r := range reservations {
		intervals = append(intervals, r.Interval())
	}
	return intervals
}

func toConflictWarning(r Reservation) ConflictWarning {
	return ConflictWarning{
		ReservationID: r.ID,
		VehicleID:     r.VehicleID,
		Holder:        r.Holder,
		Start:         r.Start,
		End:           r.End,
		Status:        r.Status,
	}
}

func sortReservations(reservations []Reservation) {
	sort.SliceStable(reservations, func(i, j int) bool {
		if reservations[i].Start.Equal(reservations[j].Start) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].Start.Before(reservations[j].Start)
	})
}

func validateReservationCore(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.VehicleID) == "" {
		vErr.add("vehicle_id", "vehicle is required")
	}
	if strings.TrimSpace(input.Holder) == "" {
		vErr.add("holder", "holder is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}
	if input.Status != "" && !input.Status.Valid() {
		vErr.add("status", fmt.Sprintf("unknown status %q", input.Status))
	}

	return vErr
}

func validateCandidate(params CandidateParams, requireVehicle bool) *ValidationError {
	vErr := &ValidationError{}
	if requireVehicle && strings.TrimSpace(params.VehicleID) == "" {
		vErr.add("vehicle_id", "vehicle is required")
	}
	if params.Start.IsZero() || params.End.IsZero() {
		vErr.add("time", "start and end are required")
	} else if !params.Start.Before(params.End) {
		vErr.add("time", "start must be before end")
	}
	return vErr
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}

	var storeConflict *persistence.ReservationConflictError
	if errors.As(err, &storeConflict) {
		conflicts := make([]ConflictWarning, 0, len(storeConflict.Conflicts))
		for _, r := range storeConflict.Conflicts {
			conflicts = append(conflicts, ConflictWarning{
				ReservationID: r.ID,
				VehicleID:     r.VehicleID,
				Holder:        r.Holder,
				Start:         r.Start,
				End:           r.End,
				Status:        calendar.Status(r.Status),
			})
		}
		return &ConflictError{Conflicts: conflicts}
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrReservationConflict):
		return &ConflictError{}
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("vehicle_id", "vehicle does not exist")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("reservation", "reservation violates a storage constraint")
		return vErr
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
