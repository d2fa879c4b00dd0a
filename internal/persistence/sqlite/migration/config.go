package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DBConfig describes how the fleet database file is opened.
type DBConfig struct {
	// Path is a file path, a file: URI or ":memory:".
	Path string

	BusyTimeout time.Duration
	ForeignKeys bool

	// Journal and Sync are passed to the journal_mode and synchronous pragmas.
	Journal string
	Sync    string

	// MaxConns bounds the pool. SQLite serialises writers, so one connection
	// avoids SQLITE_BUSY churn between pooled writers.
	MaxConns int
}

var (
	journalModes = []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
	syncModes    = []string{"OFF", "NORMAL", "FULL", "EXTRA"}
)

// FileConfig returns the configuration used for an on-disk database. An
// in-memory path yields MemoryConfig.
func FileConfig(path string) DBConfig {
	if isMemoryPath(path) {
		return MemoryConfig()
	}
	return DBConfig{
		Path:        path,
		BusyTimeout: 30 * time.Second,
		ForeignKeys: true,
		Journal:     "WAL",
		Sync:        "NORMAL",
		MaxConns:    1,
	}
}

// MemoryConfig returns a private in-memory database pinned to a single
// connection so every query sees the same schema.
func MemoryConfig() DBConfig {
	return DBConfig{
		Path:        ":memory:",
		BusyTimeout: 5 * time.Second,
		ForeignKeys: true,
		Journal:     "MEMORY",
		Sync:        "OFF",
		MaxConns:    1,
	}
}

// Validate reports every invalid field at once.
func (c DBConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Path) == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if c.BusyTimeout < 0 {
		errs = append(errs, errors.New("busy timeout must not be negative"))
	}
	if c.Journal != "" && !slices.Contains(journalModes, strings.ToUpper(c.Journal)) {
		errs = append(errs, fmt.Errorf("unknown journal mode %q", c.Journal))
	}
	if c.Sync != "" && !slices.Contains(syncModes, strings.ToUpper(c.Sync)) {
		errs = append(errs, fmt.Errorf("unknown synchronous mode %q", c.Sync))
	}
	if c.MaxConns < 0 {
		errs = append(errs, errors.New("max connections must not be negative"))
	}
	return errors.Join(errs...)
}

// Connect validates c, prepares the parent directory of a file database and
// returns a pinged handle.
func Connect(c DBConfig) (*sql.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if !isMemoryPath(c.Path) {
		dir := filepath.Dir(strings.TrimPrefix(c.Path, "file:"))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", c.dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if c.MaxConns > 0 {
		db.SetMaxOpenConns(c.MaxConns)
		db.SetMaxIdleConns(c.MaxConns)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// dsn encodes the pragmas as _pragma parameters so the driver applies them on
// every new pooled connection.
func (c DBConfig) dsn() string {
	pragmas := []string{fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds())}
	if c.ForeignKeys {
		pragmas = append(pragmas, "foreign_keys(1)")
	}
	if c.Journal != "" {
		pragmas = append(pragmas, "journal_mode("+strings.ToUpper(c.Journal)+")")
	}
	if c.Sync != "" {
		pragmas = append(pragmas, "synchronous("+strings.ToUpper(c.Sync)+")")
	}

	params := url.Values{"_pragma": pragmas}
	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	return c.Path + sep + params.Encode()
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
