package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/fleet-scheduler/internal/persistence"
)

// VehicleRepository captures the persistence operations needed by the vehicle service.
type VehicleRepository interface {
	CreateVehicle(ctx context.Context, vehicle Vehicle) (Vehicle, error)
	GetVehicle(ctx context.Context, id string) (Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle Vehicle) (Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
	ListVehicles(ctx context.Context) ([]Vehicle, error)
}

// VehicleService orchestrates validation and persistence for the fleet catalog.
type VehicleService struct {
	vehicles    VehicleRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewVehicleService constructs a vehicle service with the provided dependencies.
func NewVehicleService(vehicles VehicleRepository, idGenerator func() string, now func() time.Time) *VehicleService {
	return NewVehicleServiceWithLogger(vehicles, idGenerator, now, nil)
}

// NewVehicleServiceWithLogger constructs a vehicle service with a specified logger.
func NewVehicleServiceWithLogger(vehicles VehicleRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *VehicleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &VehicleService{vehicles: vehicles, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *VehicleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "VehicleService", operation, attrs...)
}

// CreateVehicle validates input and registers a new vehicle. An empty status
// defaults to available.
func (s *VehicleService) CreateVehicle(ctx context.Context, input VehicleInput) (vehicle Vehicle, err error) {
	if s == nil {
		err = fmt.Errorf("VehicleService is nil")
		return
	}
	if s.vehicles == nil {
		err = fmt.Errorf("vehicle repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateVehicle", "plate", input.Plate)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create vehicle", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("vehicle_id", vehicle.ID).InfoContext(ctx, "vehicle created")
	}()

	if input.Status == "" {
		input.Status = VehicleAvailable
	}
	if vErr := validateVehicleInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := Vehicle{
		ID:        s.idGenerator(),
		Plate:     normalizePlate(input.Plate),
		Make:      strings.TrimSpace(input.Make),
		Model:     strings.TrimSpace(input.Model),
		Status:    input.Status,
		CreatedAt: s.now(),
	}
	candidate.UpdatedAt = candidate.CreatedAt

	vehicle, err = s.vehicles.CreateVehicle(ctx, candidate)
	if err != nil {
		err = mapVehicleRepoError(err)
	}
	return
}

// GetVehicle returns a single vehicle.
func (s *VehicleService) GetVehicle(ctx context.Context, vehicleID string) (Vehicle, error) {
	if s == nil {
		return Vehicle{}, fmt.Errorf("VehicleService is nil")
	}
	if s.vehicles == nil {
		return Vehicle{}, fmt.Errorf("vehicle repository not configured")
	}
	vehicle, err := s.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		return Vehicle{}, mapVehicleRepoError(err)
	}
	return vehicle, nil
}

// UpdateVehicle validates input and replaces the mutable fields of a vehicle.
func (s *VehicleService) UpdateVehicle(ctx context.Context, params UpdateVehicleParams) (vehicle Vehicle, err error) {
	if s == nil {
		err = fmt.Errorf("VehicleService is nil")
		return
	}
	if s.vehicles == nil {
		err = fmt.Errorf("vehicle repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateVehicle", "vehicle_id", params.VehicleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update vehicle", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "vehicle updated")
	}()

	var existing Vehicle
	existing, err = s.vehicles.GetVehicle(ctx, params.VehicleID)
	if err != nil {
		err = mapVehicleRepoError(err)
		return
	}

	input := params.Input
	if input.Status == "" {
		input.Status = existing.Status
	}
	if vErr := validateVehicleInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Plate = normalizePlate(input.Plate)
	updated.Make = strings.TrimSpace(input.Make)
	updated.Model = strings.TrimSpace(input.Model)
	updated.Status = input.Status
	updated.UpdatedAt = s.now()

	vehicle, err = s.vehicles.UpdateVehicle(ctx, updated)
	if err != nil {
		err = mapVehicleRepoError(err)
	}
	return
}

// DeleteVehicle removes a vehicle that no reservation references.
func (s *VehicleService) DeleteVehicle(ctx context.Context, vehicleID string) error {
	if s == nil {
		return fmt.Errorf("VehicleService is nil")
	}
	if s.vehicles == nil {
		return fmt.Errorf("vehicle repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteVehicle", "vehicle_id", vehicleID)

	if err := s.vehicles.DeleteVehicle(ctx, vehicleID); err != nil {
		err = mapVehicleRepoError(err)
		logger.ErrorContext(ctx, "failed to delete vehicle", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "vehicle deleted")
	return nil
}

// ListVehicles returns the fleet ordered by plate.
func (s *VehicleService) ListVehicles(ctx context.Context) (vehicles []Vehicle, err error) {
	if s == nil {
		err = fmt.Errorf("VehicleService is nil")
		return
	}
	if s.vehicles == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListVehicles")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list vehicles", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(vehicles)).DebugContext(ctx, "vehicles listed")
	}()

	var raw []Vehicle
	raw, err = s.vehicles.ListVehicles(ctx)
	if err != nil {
		return
	}

	vehicles = make([]Vehicle, len(raw))
	copy(vehicles, raw)
	sortVehicles(vehicles)
	return
}

func sortVehicles(vehicles []Vehicle) {
	sort.SliceStable(vehicles, func(i, j int) bool {
		if vehicles[i].Plate == vehicles[j].Plate {
			return vehicles[i].ID < vehicles[j].ID
		}
		return vehicles[i].Plate < vehicles[j].Plate
	})
}

func validateVehicleInput(input VehicleInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Plate) == "" {
		vErr.add("plate", "plate is required")
	}
	if strings.TrimSpace(input.Make) == "" {
		vErr.add("make", "make is required")
	}
	if strings.TrimSpace(input.Model) == "" {
		vErr.add("model", "model is required")
	}
	if !input.Status.Valid() {
		vErr.add("status", "status must be available, maintenance or out_of_service")
	}

	return vErr
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), " "))
}

func mapVehicleRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrVehicleInUse
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("vehicle", "vehicle violates a storage constraint")
		return vErr
	}
	return err
}
