package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"kinesis/internal/adapters/http/middleware"
	"kinesis/internal/adapters/storage"
	accountStore "kinesis/internal/adapters/storage/account"
	accountDomain "kinesis/internal/domain/account"
	assignmentDomain "kinesis/internal/domain/assignment"
	outboxDomain "kinesis/internal/domain/outbox"
	planDomain "kinesis/internal/domain/plan"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]accountDomain.Account // by id
}

// GetByID implements the account store interface for testing.
// PRE: id is non-empty
// POST: Returns the account or storage.ErrNotFound
func (m *mockAccountStore) GetByID(_ context.Context, id string) (accountDomain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return accountDomain.Account{}, storage.ErrNotFound
	}
	return a, nil
}

// GetByUsername implements the account store interface for testing.
// PRE: username is normalised
// POST: Returns the account or storage.ErrNotFound
func (m *mockAccountStore) GetByUsername(_ context.Context, username string) (accountDomain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return accountDomain.Account{}, storage.ErrNotFound
}

// Create implements the account store interface for testing.
// POST: storage.ErrDuplicate when the username is taken
func (m *mockAccountStore) Create(_ context.Context, a accountDomain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("insert account: %w", storage.ErrDuplicate)
		}
	}
	m.accounts[a.ID] = a
	return nil
}

// Save implements the account store interface for testing.
func (m *mockAccountStore) Save(_ context.Context, a accountDomain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

// Delete implements the account store interface for testing.
// POST: storage.ErrNotFound when id is unknown
func (m *mockAccountStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

// List implements the account store interface for testing.
// POST: Returns accounts matching filter.Role, ordered by username
func (m *mockAccountStore) List(_ context.Context, filter accountStore.ListFilter) ([]accountDomain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []accountDomain.Account
	for _, a := range m.accounts {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Count implements the account store interface for testing.
func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts), nil
}

type mockPlanStore struct {
	mu    sync.Mutex
	plans map[string]planDomain.Plan
}

// Create implements the plan store interface for testing.
func (m *mockPlanStore) Create(_ context.Context, p planDomain.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = p
	return nil
}

// Update implements the plan store interface for testing.
// POST: storage.ErrNotFound when the plan does not exist; never inserts
func (m *mockPlanStore) Update(_ context.Context, p planDomain.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

// GetByID implements the plan store interface for testing.
func (m *mockPlanStore) GetByID(_ context.Context, id string) (planDomain.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return planDomain.Plan{}, storage.ErrNotFound
	}
	return p, nil
}

// List implements the plan store interface for testing.
// POST: Returns every plan, newest first
func (m *mockPlanStore) List(_ context.Context) ([]planDomain.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]planDomain.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete implements the plan store interface for testing.
func (m *mockPlanStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.plans, id)
	return nil
}

type mockAssignmentStore struct {
	mu   sync.Mutex
	rows []assignmentDomain.Assignment
}

// Create implements the assignment store interface for testing.
// POST: storage.ErrDuplicate for a repeated (client, workout) pair
func (m *mockAssignmentStore) Create(_ context.Context, a assignmentDomain.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Key() == a.Key() {
			return fmt.Errorf("insert assignment: %w", storage.ErrDuplicate)
		}
	}
	m.rows = append(m.rows, a)
	return nil
}

// FindByPair implements the assignment store interface for testing.
func (m *mockAssignmentStore) FindByPair(_ context.Context, client, workout string) ([]assignmentDomain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []assignmentDomain.Assignment
	for _, a := range m.rows {
		if a.ClientUsername == client && a.WorkoutID == workout {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListByClient implements the assignment store interface for testing.
func (m *mockAssignmentStore) ListByClient(_ context.Context, client string) ([]assignmentDomain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []assignmentDomain.Assignment
	for _, a := range m.rows {
		if a.ClientUsername == client {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteByClient implements the assignment store interface for testing.
func (m *mockAssignmentStore) DeleteByClient(_ context.Context, client string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outboxDomain.Entry
}

// GetByID implements the outbox store interface for testing.
func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outboxDomain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return outboxDomain.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

// Save implements the outbox store interface for testing.
func (m *mockOutboxStore) Save(_ context.Context, e outboxDomain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) list(limit int, keep func(outboxDomain.Entry) bool) []outboxDomain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outboxDomain.Entry
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ListPending implements the outbox store interface for testing.
func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outboxDomain.Entry, error) {
	return m.list(limit, func(e outboxDomain.Entry) bool {
		return e.Status == outboxDomain.StatusPending || e.Status == outboxDomain.StatusRetrying
	}), nil
}

// ListFailed implements the outbox store interface for testing.
func (m *mockOutboxStore) ListFailed(_ context.Context, limit int) ([]outboxDomain.Entry, error) {
	return m.list(limit, func(e outboxDomain.Entry) bool {
		return e.Status == outboxDomain.StatusFailed
	}), nil
}

func newTestStores() *Stores {
	return &Stores{
		AccountStore:    &mockAccountStore{accounts: make(map[string]accountDomain.Account)},
		PlanStore:       &mockPlanStore{plans: make(map[string]planDomain.Plan)},
		AssignmentStore: &mockAssignmentStore{},
		OutboxStore:     &mockOutboxStore{entries: make(map[string]outboxDomain.Entry)},
	}
}

// setupHandlers installs fresh package state for calling handlers directly.
func setupHandlers(t *testing.T) *Stores {
	t.Helper()
	s := newTestStores()
	stores = s
	settings = Options{}
	sessions = middleware.NewSessionStore()
	drafts = NewDraftRegistry()
	prevNow := timeNow
	timeNow = func() time.Time { return fixedTime }
	t.Cleanup(func() { timeNow = prevNow })
	return s
}

// seedAccount stores an account with the given password.
func seedAccount(t *testing.T, s *Stores, id, username, role, password string) accountDomain.Account {
	t.Helper()
	a := accountDomain.Account{ID: id, Username: username, Name: strings.ToUpper(username[:1]) + username[1:], Role: role, CreatedAt: fixedTime}
	if err := a.SetPassword(password); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := s.AccountStore.Create(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func seedPlan(t *testing.T, s *Stores, id, name string, days planDomain.Days) planDomain.Plan {
	t.Helper()
	p := planDomain.Plan{ID: id, Name: name, Days: days, CreatedAt: fixedTime, CreatedBy: trainerSession.AccountID}
	if err := s.PlanStore.Create(context.Background(), p); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return p
}

// authRequest returns a request with the given session injected into context.
func authRequest(method, url string, body string, sess middleware.Session) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	ctx := middleware.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx)
}

var trainerSession = middleware.Session{
	AccountID: "admin-001",
	Username:  "coach",
	Name:      "Coach",
	Role:      accountDomain.RoleAdmin,
	CreatedAt: fixedTime,
}

var clientSession = middleware.Session{
	AccountID: "client-001",
	Username:  "alice",
	Name:      "Alice",
	Role:      accountDomain.RoleClient,
	CreatedAt: fixedTime,
}
