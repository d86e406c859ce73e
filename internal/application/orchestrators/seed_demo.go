package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kinesis/internal/adapters/storage"
	"kinesis/internal/domain/account"
	"kinesis/internal/domain/plan"
)

// DemoPassword is the password of every seeded demo client.
const DemoPassword = "kinesis-demo"

// DemoAccountStore defines the store interface needed by SeedDemo.
type DemoAccountStore interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Create(ctx context.Context, a account.Account) error
}

// DemoPlanStore defines the store interface needed by SeedDemo.
type DemoPlanStore interface {
	List(ctx context.Context) ([]plan.Plan, error)
	Create(ctx context.Context, p plan.Plan) error
}

// SeedDemoDeps holds stores needed for demo seeding.
type SeedDemoDeps struct {
	AccountStore DemoAccountStore
	PlanStore    DemoPlanStore
	GenerateID   func() string
	Now          func() time.Time
}

type demoClient struct {
	Username string
	Name     string
	Email    string
}

func demoClients() []demoClient {
	return []demoClient{
		{Username: "giulia", Name: "Giulia Demo", Email: "giulia@kinesis.local"},
		{Username: "marco", Name: "Marco Demo"},
	}
}

func demoPlans() []plan.Content {
	img := func(name string) string {
		s, _ := plan.LookupImage(name)
		return s
	}
	entry := func(name string, sets, reps, rest int) plan.Entry {
		return plan.Entry{Name: name, Sets: sets, Reps: reps, Rest: rest, Image: img(name)}
	}
	return []plan.Content{
		{
			Name: "Forza base",
			Days: plan.Days{
				1: {entry("Squat", 5, 5, 180), entry("Panca Piana", 5, 5, 180)},
				2: {entry("Stacco", 3, 5, 180), entry("Military Press", 4, 6, 120), entry("Trazioni", 3, 8, 90)},
			},
		},
	}
}

// ExecuteSeedDemo creates demo clients and plans for local development.
// It is idempotent: clients are matched by username, and plans are only
// seeded into an empty library.
// PRE: Database is migrated
// POST: Every demo client exists; the plan library is not empty
func ExecuteSeedDemo(ctx context.Context, deps SeedDemoDeps) error {
	clients := 0
	for _, def := range demoClients() {
		_, err := deps.AccountStore.GetByUsername(ctx, def.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		acct, err := newAccount(def.Username, def.Name, def.Email, account.RoleClient, DemoPassword, deps.GenerateID, deps.Now)
		if err != nil {
			return err
		}
		if err := deps.AccountStore.Create(ctx, acct); err != nil {
			return err
		}
		clients++
	}

	existing, err := deps.PlanStore.List(ctx)
	if err != nil {
		return err
	}
	plans := 0
	if len(existing) == 0 {
		for _, content := range demoPlans() {
			if err := content.Validate(); err != nil {
				return err
			}
			if err := deps.PlanStore.Create(ctx, plan.Plan{
				ID:        deps.GenerateID(),
				Name:      content.Name,
				Days:      content.Days,
				CreatedAt: deps.Now(),
			}); err != nil {
				return err
			}
			plans++
		}
	}

	if clients > 0 || plans > 0 {
		slog.Info("seed_event", "event", "demo_seeded", "clients", clients, "plans", plans)
	}
	return nil
}
