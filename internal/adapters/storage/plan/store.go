package plan

import (
	"context"

	domain "kinesis/internal/domain/plan"
)

// Store persists plans in the workouts table.
type Store interface {
	// Create inserts a new plan. The caller supplies the id and timestamps.
	Create(ctx context.Context, p domain.Plan) error

	// Update overwrites name, days and updated_at of an existing plan.
	// POST: storage.ErrNotFound if no plan has p.ID; never inserts
	Update(ctx context.Context, p domain.Plan) error

	GetByID(ctx context.Context, id string) (domain.Plan, error)

	// List returns every plan, newest first.
	List(ctx context.Context) ([]domain.Plan, error)

	// Delete removes a plan. Assignments referencing it are left in place.
	// POST: storage.ErrNotFound if no plan has id
	Delete(ctx context.Context, id string) error
}
