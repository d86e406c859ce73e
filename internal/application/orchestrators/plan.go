package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kinesis/internal/adapters/events"
	domainOutbox "kinesis/internal/domain/outbox"
	"kinesis/internal/domain/plan"
	"kinesis/internal/observability"
)

// Plan save errors.
var (
	ErrDraftHasID     = errors.New("draft already has an id: update it instead of creating")
	ErrDraftMissingID = errors.New("draft has no id: create it instead of updating")
	ErrPlanIDRequired = errors.New("plan id is required")
)

// PlanStoreForSave defines the store interface needed to create and update plans.
type PlanStoreForSave interface {
	Create(ctx context.Context, p plan.Plan) error
	Update(ctx context.Context, p plan.Plan) error
}

// PlanStoreForDelete defines the store interface needed by DeletePlan.
type PlanStoreForDelete interface {
	Delete(ctx context.Context, id string) error
}

// SavePlanInput carries a serialised draft.
type SavePlanInput struct {
	DraftID string // "" for a new plan
	Content plan.Content
	ActorID string // account id of the trainer saving
}

// SavePlanDeps holds dependencies for CreatePlan and UpdatePlan.
type SavePlanDeps struct {
	PlanStore  PlanStoreForSave
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCreatePlan persists a new plan from a draft.
// PRE: input.DraftID is empty; input.Content is valid
// POST: Plan stored with CreatedAt = now and CreatedBy = ActorID; returns its id
// INVARIANT: No dedup: a retried call creates a second plan
func ExecuteCreatePlan(ctx context.Context, input SavePlanInput, deps SavePlanDeps) (string, error) {
	if input.DraftID != "" {
		return "", ErrDraftHasID
	}
	if err := input.Content.Validate(); err != nil {
		return "", err
	}

	p := plan.Plan{
		ID:        deps.GenerateID(),
		Name:      input.Content.Name,
		Days:      input.Content.Days.Clone(),
		CreatedAt: deps.Now(),
		CreatedBy: input.ActorID,
	}
	if err := deps.PlanStore.Create(ctx, p); err != nil {
		return "", err
	}

	observability.RecordEvent("plan_created")
	slog.Info("plan_event", "event", "plan_created", "plan_id", p.ID, "name", p.Name, "days", p.Days.Count(), "actor", input.ActorID)
	return p.ID, nil
}

// ExecuteUpdatePlan overwrites an existing plan's content. Last writer wins.
// PRE: input.DraftID is set; input.Content is valid
// POST: Plan content replaced and UpdatedAt = now, or storage.ErrNotFound
func ExecuteUpdatePlan(ctx context.Context, input SavePlanInput, deps SavePlanDeps) error {
	if input.DraftID == "" {
		return ErrDraftMissingID
	}
	if err := input.Content.Validate(); err != nil {
		return err
	}

	p := plan.Plan{
		ID:        input.DraftID,
		Name:      input.Content.Name,
		Days:      input.Content.Days.Clone(),
		UpdatedAt: deps.Now(),
	}
	if err := deps.PlanStore.Update(ctx, p); err != nil {
		return err
	}

	observability.RecordEvent("plan_updated")
	slog.Info("plan_event", "event", "plan_updated", "plan_id", p.ID, "name", p.Name, "days", p.Days.Count(), "actor", input.ActorID)
	return nil
}

// ExecuteSavePlan creates or updates depending on whether the draft has an id.
// POST: Returns the id of the stored plan
func ExecuteSavePlan(ctx context.Context, input SavePlanInput, deps SavePlanDeps) (string, error) {
	if input.DraftID == "" {
		return ExecuteCreatePlan(ctx, input, deps)
	}
	if err := ExecuteUpdatePlan(ctx, input, deps); err != nil {
		return "", err
	}
	return input.DraftID, nil
}

// DeletePlanInput carries input for DeletePlan.
type DeletePlanInput struct {
	PlanID  string
	ActorID string
}

// DeletePlanDeps holds dependencies for DeletePlan. A nil OutboxStore or
// PublishEvents == false skips the plan.deleted event.
type DeletePlanDeps struct {
	PlanStore     PlanStoreForDelete
	OutboxStore   OutboxStoreForEnqueue
	PublishEvents bool
	GenerateID    func() string
	Now           func() time.Time
}

// ExecuteDeletePlan removes a plan record.
// PRE: input.PlanID is non-empty
// POST: Plan removed or storage.ErrNotFound; assignments are not touched
func ExecuteDeletePlan(ctx context.Context, input DeletePlanInput, deps DeletePlanDeps) error {
	if input.PlanID == "" {
		return ErrPlanIDRequired
	}
	if err := deps.PlanStore.Delete(ctx, input.PlanID); err != nil {
		return err
	}

	observability.RecordEvent("plan_deleted")
	slog.Info("plan_event", "event", "plan_deleted", "plan_id", input.PlanID, "actor", input.ActorID)

	if deps.PublishEvents {
		now := deps.Now()
		env, err := events.NewEnvelope(events.PlanDeleted{
			WorkoutID: input.PlanID,
			DeletedBy: input.ActorID,
			DeletedAt: now,
			Version:   events.SchemaVersion,
		})
		if err != nil {
			slog.Error("plan_event_envelope_failed", "plan_id", input.PlanID, "error", err.Error())
		} else {
			enqueue(ctx, deps.OutboxStore, deps.GenerateID(), domainOutbox.ActionTypePlanEvent, env, now)
		}
	}
	return nil
}
