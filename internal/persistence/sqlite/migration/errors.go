package migration

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels callers can match with errors.Is.
var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	ErrVersionConflict      = errors.New("migration version conflict")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	ErrChecksumMismatch     = errors.New("migration checksum mismatch")
)

// StepError records which step of which migration failed. File is empty when
// the failure came from the database rather than from reading a file.
type StepError struct {
	Version string
	File    string
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	var b strings.Builder
	b.WriteString("migration")
	if e.Version != "" {
		b.WriteString(" " + e.Version)
	}
	if e.File != "" {
		b.WriteString(" (" + e.File + ")")
	}
	fmt.Fprintf(&b, ": %s: %v", e.Step, e.Err)
	return b.String()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func fileError(version, file, step string, err error) *StepError {
	return &StepError{Version: version, File: file, Step: step, Err: err}
}

func dbError(version, step string, err error) *StepError {
	return &StepError{Version: version, Step: step, Err: err}
}
