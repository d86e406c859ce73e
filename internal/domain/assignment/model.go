package assignment

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyClient  = errors.New("client username is required")
	ErrEmptyWorkout = errors.New("workout id is required")
)

// Assignment links one client (by username) to one plan (by id).
// The (ClientUsername, WorkoutID) pair is unique across all assignments.
type Assignment struct {
	ID             string
	ClientUsername string
	WorkoutID      string
	AssignedAt     time.Time
}

// Validate checks if the Assignment has valid data.
// PRE: Assignment struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Assignment) Validate() error {
	if strings.TrimSpace(a.ClientUsername) == "" {
		return ErrEmptyClient
	}
	if strings.TrimSpace(a.WorkoutID) == "" {
		return ErrEmptyWorkout
	}
	return nil
}

// Key returns the pair that identifies the assignment.
func (a Assignment) Key() string {
	return a.ClientUsername + "|" + a.WorkoutID
}
