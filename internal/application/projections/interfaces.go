package projections

import (
	"context"

	"kinesis/internal/adapters/storage/account"
	domainAccount "kinesis/internal/domain/account"
	domainAssignment "kinesis/internal/domain/assignment"
	domainPlan "kinesis/internal/domain/plan"
)

// PlanStore interface for plan queries.
type PlanStore interface {
	GetByID(ctx context.Context, id string) (domainPlan.Plan, error)
	List(ctx context.Context) ([]domainPlan.Plan, error)
}

// AssignmentStore interface for assignment queries.
type AssignmentStore interface {
	ListByClient(ctx context.Context, clientUsername string) ([]domainAssignment.Assignment, error)
}

// AccountStore interface for account queries.
type AccountStore interface {
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
}
