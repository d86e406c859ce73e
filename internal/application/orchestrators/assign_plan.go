package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "kinesis/internal/adapters/email"
	"kinesis/internal/adapters/events"
	"kinesis/internal/adapters/storage"
	"kinesis/internal/domain/account"
	"kinesis/internal/domain/assignment"
	domainOutbox "kinesis/internal/domain/outbox"
	"kinesis/internal/domain/plan"
	"kinesis/internal/observability"
)

// Assignment errors.
var (
	ErrAlreadyAssigned = errors.New("plan is already assigned to this client")
	ErrNotClient       = errors.New("account is not a client")
)

// AccountStoreForAssign defines the account lookup needed by AssignPlan.
type AccountStoreForAssign interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
}

// PlanStoreForAssign defines the plan lookup needed by AssignPlan.
type PlanStoreForAssign interface {
	GetByID(ctx context.Context, id string) (plan.Plan, error)
}

// AssignmentStoreForAssign defines the assignment store interface needed by AssignPlan.
type AssignmentStoreForAssign interface {
	FindByPair(ctx context.Context, clientUsername, workoutID string) ([]assignment.Assignment, error)
	Create(ctx context.Context, a assignment.Assignment) error
}

// AssignPlanInput carries input for the assign orchestrator.
type AssignPlanInput struct {
	ClientUsername string
	WorkoutID      string
	ActorID        string
}

// AssignPlanDeps holds dependencies for AssignPlan. OutboxStore may be nil,
// in which case no side effects are queued.
type AssignPlanDeps struct {
	AccountStore    AccountStoreForAssign
	PlanStore       PlanStoreForAssign
	AssignmentStore AssignmentStoreForAssign
	OutboxStore     OutboxStoreForEnqueue
	NotifyByEmail   bool
	PublishEvents   bool
	GenerateID      func() string
	Now             func() time.Time
}

// ExecuteAssignPlan links a plan to a client.
// PRE: client exists with role client; plan exists
// POST: One assignment for the pair exists; ErrAlreadyAssigned if it did before
// INVARIANT: At most one assignment per (client, workout) pair
func ExecuteAssignPlan(ctx context.Context, input AssignPlanInput, deps AssignPlanDeps) (assignment.Assignment, error) {
	a := assignment.Assignment{
		ClientUsername: account.NormalizeUsername(input.ClientUsername),
		WorkoutID:      input.WorkoutID,
	}
	if err := a.Validate(); err != nil {
		return assignment.Assignment{}, err
	}

	client, err := deps.AccountStore.GetByUsername(ctx, a.ClientUsername)
	if err != nil {
		return assignment.Assignment{}, fmt.Errorf("client %q: %w", a.ClientUsername, err)
	}
	if !client.IsClient() {
		return assignment.Assignment{}, ErrNotClient
	}
	p, err := deps.PlanStore.GetByID(ctx, a.WorkoutID)
	if err != nil {
		return assignment.Assignment{}, fmt.Errorf("plan %q: %w", a.WorkoutID, err)
	}

	existing, err := deps.AssignmentStore.FindByPair(ctx, a.ClientUsername, a.WorkoutID)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if len(existing) > 0 {
		return assignment.Assignment{}, ErrAlreadyAssigned
	}

	now := deps.Now()
	a.ID = deps.GenerateID()
	a.AssignedAt = now
	if err := deps.AssignmentStore.Create(ctx, a); err != nil {
		// a concurrent assign of the same pair won the unique index
		if errors.Is(err, storage.ErrDuplicate) {
			return assignment.Assignment{}, ErrAlreadyAssigned
		}
		return assignment.Assignment{}, err
	}

	observability.RecordEvent("plan_assigned")
	slog.Info("assignment_event", "event", "plan_assigned", "assignment_id", a.ID, "client", a.ClientUsername, "plan_id", a.WorkoutID, "actor", input.ActorID)

	if deps.NotifyByEmail && client.Email != "" {
		req, err := emailAdapter.RenderAssignment(emailAdapter.AssignmentNotice{
			ClientName: client.DisplayName(),
			Email:      client.Email,
			Plan:       p,
		})
		if err != nil {
			slog.Error("assignment_email_render_failed", "assignment_id", a.ID, "error", err.Error())
		} else {
			enqueue(ctx, deps.OutboxStore, deps.GenerateID(), domainOutbox.ActionTypeAssignmentEmail, req, now)
		}
	}
	if deps.PublishEvents {
		env, err := events.NewEnvelope(events.PlanAssigned{
			AssignmentID:   a.ID,
			ClientUsername: a.ClientUsername,
			WorkoutID:      a.WorkoutID,
			PlanName:       p.Name,
			AssignedAt:     now,
			Version:        events.SchemaVersion,
		})
		if err != nil {
			slog.Error("plan_event_envelope_failed", "assignment_id", a.ID, "error", err.Error())
		} else {
			enqueue(ctx, deps.OutboxStore, deps.GenerateID(), domainOutbox.ActionTypePlanEvent, env, now)
		}
	}

	return a, nil
}

// AssignmentStoreForUnassign defines the store interface needed by UnassignAllForClient.
type AssignmentStoreForUnassign interface {
	DeleteByClient(ctx context.Context, clientUsername string) (int, error)
}

// UnassignAllDeps holds dependencies for UnassignAllForClient.
type UnassignAllDeps struct {
	AssignmentStore AssignmentStoreForUnassign
}

// ExecuteUnassignAllForClient removes every assignment of a client.
// PRE: username is non-empty
// POST: No assignment references username; returns how many were removed
func ExecuteUnassignAllForClient(ctx context.Context, username string, deps UnassignAllDeps) (int, error) {
	username = account.NormalizeUsername(username)
	if username == "" {
		return 0, assignment.ErrEmptyClient
	}
	n, err := deps.AssignmentStore.DeleteByClient(ctx, username)
	if err != nil {
		return 0, err
	}
	slog.Info("assignment_event", "event", "client_unassigned", "client", username, "removed", n)
	return n, nil
}
