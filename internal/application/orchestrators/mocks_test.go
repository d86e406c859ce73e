package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"kinesis/internal/adapters/storage"
	"kinesis/internal/domain/account"
	"kinesis/internal/domain/assignment"
	domainOutbox "kinesis/internal/domain/outbox"
	"kinesis/internal/domain/plan"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// seqIDs returns a generator yielding id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// mockAccountStore implements every account store interface used here.
type mockAccountStore struct {
	accounts  map[string]account.Account // by id
	saveErr   error
	createErr error
}

func newMockAccountStore(seed ...account.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range seed {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountStore) GetByUsername(_ context.Context, username string) (account.Account, error) {
	username = account.NormalizeUsername(username)
	for _, a := range m.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return account.Account{}, storage.ErrNotFound
}

func (m *mockAccountStore) Create(_ context.Context, a account.Account) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("insert account: %w", storage.ErrDuplicate)
		}
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) Delete(_ context.Context, id string) error {
	if _, ok := m.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

// mockPlanStore implements the plan store interfaces.
type mockPlanStore struct {
	plans map[string]plan.Plan
}

func newMockPlanStore(seed ...plan.Plan) *mockPlanStore {
	m := &mockPlanStore{plans: make(map[string]plan.Plan)}
	for _, p := range seed {
		m.plans[p.ID] = p
	}
	return m
}

func (m *mockPlanStore) Create(_ context.Context, p plan.Plan) error {
	m.plans[p.ID] = p
	return nil
}

func (m *mockPlanStore) Update(_ context.Context, p plan.Plan) error {
	existing, ok := m.plans[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = p.Name
	existing.Days = p.Days
	existing.UpdatedAt = p.UpdatedAt
	m.plans[p.ID] = existing
	return nil
}

func (m *mockPlanStore) List(_ context.Context) ([]plan.Plan, error) {
	out := make([]plan.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPlanStore) GetByID(_ context.Context, id string) (plan.Plan, error) {
	p, ok := m.plans[id]
	if !ok {
		return plan.Plan{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *mockPlanStore) Delete(_ context.Context, id string) error {
	if _, ok := m.plans[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.plans, id)
	return nil
}

// mockAssignmentStore implements the assignment store interfaces. When
// hideFromFind is set, FindByPair reports nothing, as a concurrent writer
// racing the check would see.
type mockAssignmentStore struct {
	rows         []assignment.Assignment
	hideFromFind bool
	deleteErr    error
}

func (m *mockAssignmentStore) FindByPair(_ context.Context, client, workout string) ([]assignment.Assignment, error) {
	if m.hideFromFind {
		return nil, nil
	}
	var out []assignment.Assignment
	for _, a := range m.rows {
		if a.ClientUsername == client && a.WorkoutID == workout {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentStore) Create(_ context.Context, a assignment.Assignment) error {
	for _, existing := range m.rows {
		if existing.Key() == a.Key() {
			return fmt.Errorf("insert assignment: %w", storage.ErrDuplicate)
		}
	}
	m.rows = append(m.rows, a)
	return nil
}

func (m *mockAssignmentStore) DeleteByClient(_ context.Context, client string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	kept := m.rows[:0]
	n := 0
	for _, a := range m.rows {
		if a.ClientUsername == client {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.rows = kept
	return n, nil
}

// mockOutboxStore implements the outbox store interfaces.
type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]domainOutbox.Entry
	saveErr error
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: make(map[string]domainOutbox.Entry)}
}

func (m *mockOutboxStore) GetByID(_ context.Context, id string) (domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domainOutbox.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

func (m *mockOutboxStore) Save(_ context.Context, e domainOutbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainOutbox.Entry
	for _, e := range m.entries {
		if e.Status == domainOutbox.StatusPending || e.Status == domainOutbox.StatusRetrying {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOutboxStore) byType(actionType string) []domainOutbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainOutbox.Entry
	for _, e := range m.entries {
		if e.ActionType == actionType {
			out = append(out, e)
		}
	}
	return out
}

var errBoom = errors.New("boom")

func mustClient(username, email string) account.Account {
	return account.Account{ID: "acct-" + username, Username: username, Name: "Client " + username, Role: account.RoleClient, Email: email, CreatedAt: fixedTime}
}

func pushDayPlan() plan.Plan {
	return plan.Plan{
		ID:   "w1",
		Name: "Push Day",
		Days: plan.Days{
			1: {{Name: "Panca Piana", Sets: 4, Reps: 8, Rest: 90}},
		},
		CreatedAt: fixedTime,
	}
}

func assignmentFor(client, workout string) assignment.Assignment {
	return assignment.Assignment{ID: "a-" + client + "-" + workout, ClientUsername: client, WorkoutID: workout, AssignedAt: fixedTime}
}
