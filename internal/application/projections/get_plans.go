package projections

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kinesis/internal/adapters/storage"
	domainPlan "kinesis/internal/domain/plan"
)

// PlanSummary is one row of the trainer's plan list.
type PlanSummary struct {
	ID         string
	Name       string
	DayCount   int
	EntryCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GetPlanListResult carries the query result.
type GetPlanListResult struct {
	Plans []domainPlan.Plan
}

// Summaries returns the list reduced to one row per plan.
func (r GetPlanListResult) Summaries() []PlanSummary {
	out := make([]PlanSummary, 0, len(r.Plans))
	for _, p := range r.Plans {
		out = append(out, PlanSummary{
			ID:         p.ID,
			Name:       p.Name,
			DayCount:   p.Days.Count(),
			EntryCount: p.EntryCount(),
			CreatedAt:  p.CreatedAt,
			UpdatedAt:  p.UpdatedAt,
		})
	}
	return out
}

// GetPlanListDeps holds dependencies for GetPlanList.
type GetPlanListDeps struct {
	PlanStore PlanStore
}

// QueryGetPlanList retrieves every plan.
// POST: Plans ordered by CreatedAt descending, as the store returns them
func QueryGetPlanList(ctx context.Context, deps GetPlanListDeps) (GetPlanListResult, error) {
	plans, err := deps.PlanStore.List(ctx)
	if err != nil {
		return GetPlanListResult{}, err
	}
	return GetPlanListResult{Plans: plans}, nil
}

// GetPlanDeps holds dependencies for GetPlan.
type GetPlanDeps struct {
	PlanStore PlanStore
}

// QueryGetPlan retrieves one plan.
// PRE: id is non-empty
// POST: Returns the plan or storage.ErrNotFound
func QueryGetPlan(ctx context.Context, id string, deps GetPlanDeps) (domainPlan.Plan, error) {
	if id == "" {
		return domainPlan.Plan{}, storage.ErrNotFound
	}
	return deps.PlanStore.GetByID(ctx, id)
}

// GetClientPlansDeps holds dependencies for GetClientPlans.
type GetClientPlansDeps struct {
	AssignmentStore AssignmentStore
	PlanStore       PlanStore
}

// QueryGetClientPlans resolves a client's assignments to plans.
// PRE: username is normalised
// POST: Plans in assignment order; assignments whose plan was deleted are skipped
func QueryGetClientPlans(ctx context.Context, username string, deps GetClientPlansDeps) ([]domainPlan.Plan, error) {
	assignments, err := deps.AssignmentStore.ListByClient(ctx, username)
	if err != nil {
		return nil, err
	}

	plans := make([]domainPlan.Plan, 0, len(assignments))
	for _, a := range assignments {
		p, err := deps.PlanStore.GetByID(ctx, a.WorkoutID)
		if errors.Is(err, storage.ErrNotFound) {
			slog.Debug("assignment_event", "event", "dangling_assignment_skipped", "client", username, "plan_id", a.WorkoutID)
			continue
		}
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}
