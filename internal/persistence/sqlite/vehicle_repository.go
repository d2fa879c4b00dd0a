package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/fleet-scheduler/internal/persistence"
)

const vehicleColumns = `id, plate, make, model, status, created_at, updated_at`

// VehicleRepository implements persistence.VehicleRepository using SQLite
type VehicleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewVehicleRepository creates a new SQLite vehicle repository
func NewVehicleRepository(pool *ConnectionPool) *VehicleRepository {
	return &VehicleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateVehicle inserts a new vehicle
func (r *VehicleRepository) CreateVehicle(ctx context.Context, vehicle persistence.Vehicle) error {
	if strings.TrimSpace(vehicle.ID) == "" || strings.TrimSpace(vehicle.Plate) == "" {
		return persistence.ErrConstraintViolation
	}

	const query = `
		INSERT INTO vehicles (id, plate, make, model, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			vehicle.ID,
			vehicle.Plate,
			vehicle.Make,
			vehicle.Model,
			vehicle.Status,
			formatTimestamp(vehicle.CreatedAt),
			formatTimestamp(vehicle.UpdatedAt),
		)
		return r.mapper.MapError(err)
	})
}

// UpdateVehicle updates every mutable vehicle column
func (r *VehicleRepository) UpdateVehicle(ctx context.Context, vehicle persistence.Vehicle) error {
	if strings.TrimSpace(vehicle.ID) == "" {
		return persistence.ErrNotFound
	}

	const query = `
		UPDATE vehicles
		SET plate = ?, make = ?, model = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			vehicle.Plate,
			vehicle.Make,
			vehicle.Model,
			vehicle.Status,
			formatTimestamp(vehicle.UpdatedAt),
			vehicle.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// GetVehicle retrieves a vehicle by ID
func (r *VehicleRepository) GetVehicle(ctx context.Context, id string) (persistence.Vehicle, error) {
	if id == "" {
		return persistence.Vehicle{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	vehicle, err := scanVehicle(row)
	if err != nil {
		return persistence.Vehicle{}, r.mapper.MapError(err)
	}
	return vehicle, nil
}

// ListVehicles returns all vehicles ordered by plate then ID
func (r *VehicleRepository) ListVehicles(ctx context.Context) ([]persistence.Vehicle, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY plate ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var vehicles []persistence.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		vehicles = append(vehicles, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return vehicles, nil
}

// DeleteVehicle removes a vehicle. Vehicles still referenced by reservations
// cannot be deleted.
func (r *VehicleRepository) DeleteVehicle(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var referenced int
			err := r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM reservations WHERE vehicle_id = ?`, id).Scan(&referenced)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if referenced > 0 {
				return fmt.Errorf("%w: vehicle %s has %d reservations", persistence.ErrForeignKeyViolation, id, referenced)
			}

			result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM vehicles WHERE id = ?`, id)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return requireAffected(result)
		})
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (persistence.Vehicle, error) {
	var (
		vehicle                    persistence.Vehicle
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&vehicle.ID,
		&vehicle.Plate,
		&vehicle.Make,
		&vehicle.Model,
		&vehicle.Status,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Vehicle{}, err
	}

	var err error
	if vehicle.CreatedAt, err = parseTimestamp("created_at", createdAtStr); err != nil {
		return persistence.Vehicle{}, err
	}
	if vehicle.UpdatedAt, err = parseTimestamp("updated_at", updatedAtStr); err != nil {
		return persistence.Vehicle{}, err
	}
	return vehicle, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
