package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/fleet-scheduler/internal/calendar"
	"github.com/example/fleet-scheduler/internal/persistence"
)

const reservationColumns = `id, vehicle_id, holder, purpose, start_at, end_at, status, created_at, updated_at`

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateReservation inserts a reservation after re-checking the vehicle for
// blocking overlaps in the same transaction.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if err := validateReservation(reservation); err != nil {
		return err
	}

	const query = `
		INSERT INTO reservations (id, vehicle_id, holder, purpose, start_at, end_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := r.ensureNoConflictTx(ctx, tx, reservation); err != nil {
				return err
			}

			_, err := r.helper.ExecTx(ctx, tx, query,
				reservation.ID,
				reservation.VehicleID,
				reservation.Holder,
				nullableString(reservation.Purpose),
				formatTimestamp(reservation.Start),
				formatTimestamp(reservation.End),
				reservation.Status,
				formatTimestamp(reservation.CreatedAt),
				formatTimestamp(reservation.UpdatedAt),
			)
			return r.mapper.MapError(err)
		})
	})
}

// UpdateReservation replaces the mutable columns of an existing reservation.
// CreatedAt is never changed.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if err := validateReservation(reservation); err != nil {
		return err
	}

	const query = `
		UPDATE reservations
		SET vehicle_id = ?, holder = ?, purpose = ?, start_at = ?, end_at = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.getTx(ctx, tx, reservation.ID); err != nil {
				return err
			}
			if err := r.ensureNoConflictTx(ctx, tx, reservation); err != nil {
				return err
			}

			result, err := r.helper.ExecTx(ctx, tx, query,
				reservation.VehicleID,
				reservation.Holder,
				nullableString(reservation.Purpose),
				formatTimestamp(reservation.Start),
				formatTimestamp(reservation.End),
				reservation.Status,
				formatTimestamp(reservation.UpdatedAt),
				reservation.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return requireAffected(result)
		})
	})
}

// UpdateReservationStatus changes the status of a reservation. Moving into a
// blocking status re-checks the stored range for conflicts.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			current, err := r.getTx(ctx, tx, id)
			if err != nil {
				return err
			}

			current.Status = status
			if err := r.ensureNoConflictTx(ctx, tx, current); err != nil {
				return err
			}

			result, err := r.helper.ExecTx(ctx, tx,
				`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
				status, formatTimestamp(updatedAt), id,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return requireAffected(result)
		})
	})
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filter ordered by start then ID.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		conditions []string
		args       []any
	)

	if len(filter.VehicleIDs) > 0 {
		conditions = append(conditions, "vehicle_id IN ("+placeholders(len(filter.VehicleIDs))+")")
		for _, id := range filter.VehicleIDs {
			args = append(args, id)
		}
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_at < ?")
		args = append(args, formatTimestamp(*filter.StartsBefore))
	}
	if filter.EndsAfter != nil {
		conditions = append(conditions, "end_at > ?")
		args = append(args, formatTimestamp(*filter.EndsAfter))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectReservations(rows, r.mapper)
}

// ListElapsed returns reservations in one of statuses that ended at or before reference.
func (r *ReservationRepository) ListElapsed(ctx context.Context, reference time.Time, statuses []string) ([]persistence.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE end_at <= ? AND status IN (` + placeholders(len(statuses)) + `)
		ORDER BY end_at ASC, id ASC`

	args := []any{formatTimestamp(reference)}
	for _, status := range statuses {
		args = append(args, status)
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectReservations(rows, r.mapper)
}

// DeleteReservation removes a reservation by ID
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, `DELETE FROM reservations WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

func (r *ReservationRepository) getTx(ctx context.Context, tx *sql.Tx, id string) (persistence.Reservation, error) {
	row := r.helper.QueryRowTx(ctx, tx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// ensureNoConflictTx loads the blocking reservations of the same vehicle that
// overlap in SQL and confirms them with calendar.FindConflicts, which owns the
// overlap rule. Non-blocking writes never conflict.
func (r *ReservationRepository) ensureNoConflictTx(ctx context.Context, tx *sql.Tx, reservation persistence.Reservation) error {
	if !calendar.Status(reservation.Status).Blocking() {
		return nil
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE vehicle_id = ? AND id <> ? AND start_at < ? AND end_at > ?
		AND status IN (?, ?)`

	rows, err := r.helper.QueryTx(ctx, tx, query,
		reservation.VehicleID,
		reservation.ID,
		formatTimestamp(reservation.End),
		formatTimestamp(reservation.Start),
		string(calendar.StatusPending),
		string(calendar.StatusActive),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	candidates, err := collectReservations(rows, r.mapper)
	if err != nil {
		return err
	}

	byID := make(map[string]persistence.Reservation, len(candidates))
	intervals := make([]calendar.Interval, 0, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
		intervals = append(intervals, calendar.Interval{
			ID:         c.ID,
			ResourceID: c.VehicleID,
			Start:      c.Start,
			End:        c.End,
			Status:     calendar.Status(c.Status),
		})
	}

	found := calendar.FindConflicts(calendar.Candidate{
		ResourceID: reservation.VehicleID,
		Start:      reservation.Start,
		End:        reservation.End,
		ExcludeID:  reservation.ID,
	}, intervals)
	if len(found) == 0 {
		return nil
	}

	conflicts := make([]persistence.Reservation, 0, len(found))
	for _, iv := range found {
		conflicts = append(conflicts, byID[iv.ID])
	}
	return &persistence.ReservationConflictError{Conflicts: conflicts}
}

func validateReservation(reservation persistence.Reservation) error {
	if strings.TrimSpace(reservation.ID) == "" || strings.TrimSpace(reservation.VehicleID) == "" {
		return persistence.ErrConstraintViolation
	}
	if reservation.Start.IsZero() || !reservation.Start.Before(reservation.End) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func collectReservations(rows *sql.Rows, mapper *ErrorMapper) ([]persistence.Reservation, error) {
	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}
	return reservations, nil
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation                              persistence.Reservation
		purpose                                  sql.NullString
		startStr, endStr, createdStr, updatedStr string
	)
	if err := row.Scan(
		&reservation.ID,
		&reservation.VehicleID,
		&reservation.Holder,
		&purpose,
		&startStr,
		&endStr,
		&reservation.Status,
		&createdStr,
		&updatedStr,
	); err != nil {
		return persistence.Reservation{}, err
	}

	if purpose.Valid {
		value := purpose.String
		reservation.Purpose = &value
	}

	var err error
	if reservation.Start, err = parseTimestamp("start_at", startStr); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.End, err = parseTimestamp("end_at", endStr); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTimestamp("created_at", createdStr); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseTimestamp("updated_at", updatedStr); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
