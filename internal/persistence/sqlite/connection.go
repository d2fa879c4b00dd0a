package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/fleet-scheduler/internal/persistence"
	"github.com/example/fleet-scheduler/internal/persistence/sqlite/migration"
)

// errDatabaseLocked marks transient lock contention that is safe to retry.
var errDatabaseLocked = errors.New("sqlite: database locked")

// ConnectionPool owns the database handle shared by the repositories.
type ConnectionPool struct {
	db *sql.DB
}

// NewConnectionPool connects with config.
func NewConnectionPool(config migration.DBConfig) (*ConnectionPool, error) {
	db, err := migration.Connect(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &ConnectionPool{db: db}, nil
}

// DB returns the underlying handle.
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

func (cp *ConnectionPool) Close() error {
	if cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc is the body of a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction commits when fn returns nil and rolls back otherwise. A
// panic inside fn rolls back before propagating.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapDriverError(err))
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapDriverError(err))
	}
	committed = true
	return nil
}

// QueryHelper runs statements either on the pool or on an open transaction.
type QueryHelper struct {
	pool *ConnectionPool
}

func NewQueryHelper(pool *ConnectionPool) *QueryHelper {
	return &QueryHelper{pool: pool}
}

func (qh *QueryHelper) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return qh.pool.db.QueryRowContext(ctx, query, args...)
}

func (qh *QueryHelper) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return qh.pool.db.QueryContext(ctx, query, args...)
}

func (qh *QueryHelper) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return qh.pool.db.ExecContext(ctx, query, args...)
}

func (qh *QueryHelper) QueryRowTx(ctx context.Context, tx *sql.Tx, query string, args ...any) *sql.Row {
	return tx.QueryRowContext(ctx, query, args...)
}

func (qh *QueryHelper) QueryTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (*sql.Rows, error) {
	return tx.QueryContext(ctx, query, args...)
}

func (qh *QueryHelper) ExecTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, query, args...)
}

// driverErrorRule maps a driver message fragment to a persistence sentinel.
type driverErrorRule struct {
	fragments []string
	sentinel  error
}

var driverErrorRules = []driverErrorRule{
	{[]string{"UNIQUE constraint failed", "PRIMARY KEY constraint failed"}, persistence.ErrDuplicate},
	{[]string{"FOREIGN KEY constraint failed"}, persistence.ErrForeignKeyViolation},
	{[]string{"CHECK constraint failed", "NOT NULL constraint failed"}, persistence.ErrConstraintViolation},
	{[]string{"database is locked", "SQLITE_BUSY"}, errDatabaseLocked},
}

// ErrorMapper translates modernc driver errors into persistence sentinels.
type ErrorMapper struct{}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError keeps the driver error in the message while making the sentinel
// matchable with errors.Is.
func (em *ErrorMapper) MapError(err error) error {
	return mapDriverError(err)
}

func mapDriverError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	for _, rule := range driverErrorRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(msg, fragment) {
				return fmt.Errorf("%w: %v", rule.sentinel, err)
			}
		}
	}
	return err
}

// RetryConfig is an exponential backoff schedule for lock contention.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// delay returns the wait before the given retry, starting at 1.
func (c RetryConfig) delay(retry int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < retry; i++ {
		d = time.Duration(float64(d) * c.BackoffFactor)
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	return min(d, c.MaxDelay)
}

// RetryHelper reruns writes that failed because another connection held the
// database lock.
type RetryHelper struct {
	config RetryConfig
}

func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config}
}

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc func() error

// WithRetry returns the first error that is not lock contention. It gives up
// after MaxRetries additional attempts or when ctx ends.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn RetryableFunc) error {
	err := fn()
	for retry := 1; retry <= rh.config.MaxRetries && errors.Is(err, errDatabaseLocked); retry++ {
		timer := time.NewTimer(rh.config.delay(retry))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = fn()
	}
	if errors.Is(err, errDatabaseLocked) {
		return fmt.Errorf("operation failed after %d retries: %w", rh.config.MaxRetries, err)
	}
	return err
}
