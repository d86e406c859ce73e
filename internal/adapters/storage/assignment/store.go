package assignment

import (
	"context"

	domain "kinesis/internal/domain/assignment"
)

// Store persists assignments in the client_workouts table.
type Store interface {
	// Create inserts an assignment.
	// POST: storage.ErrDuplicate if the (client, workout) pair already exists
	Create(ctx context.Context, a domain.Assignment) error

	// FindByPair returns the assignments matching both fields (zero or one).
	FindByPair(ctx context.Context, clientUsername, workoutID string) ([]domain.Assignment, error)

	// ListByClient returns a client's assignments, oldest first.
	ListByClient(ctx context.Context, clientUsername string) ([]domain.Assignment, error)

	// DeleteByClient removes every assignment of a client and returns how many.
	DeleteByClient(ctx context.Context, clientUsername string) (int, error)
}
