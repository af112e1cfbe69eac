package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the academic year and promotion services.
// Controllers branch on these with errors.Is and map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrLocked             = errors.New("locked")
	ErrValidation         = errors.New("validation failed")
	ErrIncompleteSchedule = errors.New("incomplete schedule")
	ErrNothingToUpdate    = errors.New("nothing to update")
)

// MigrationFailure describes one student that could not be moved during a
// promotion migration pass.
type MigrationFailure struct {
	StudentID   uint   `json:"student_id"`
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}

// MigrationError aggregates per-student resolution failures. It is the only
// error kind that is collected before being surfaced; a non-empty failure
// list aborts (rolls back) the surrounding activation transaction.
type MigrationError struct {
	Failures []MigrationFailure
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("promotion migration failed for %d student(s)", len(e.Failures))
}

// MigrationResult summarizes one migration pass.
type MigrationResult struct {
	Status      string             `json:"status"`
	MovedCount  int                `json:"moved_count"`
	PromotionID uint               `json:"promotion_id,omitempty"`
	Failures    []MigrationFailure `json:"failures,omitempty"`
}
