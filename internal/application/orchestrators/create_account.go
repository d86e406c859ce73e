package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"kinesis/internal/adapters/identity"
	"kinesis/internal/adapters/storage"
	"kinesis/internal/domain/account"
	"kinesis/internal/observability"
)

// ErrUsernameTaken is returned when a username is already registered.
var ErrUsernameTaken = errors.New("username is already taken")

// AccountStoreForCreate defines the store interface needed by CreateClientAccount.
type AccountStoreForCreate interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Create(ctx context.Context, a account.Account) error
}

// CreateClientAccountInput carries input for the orchestrator.
type CreateClientAccountInput struct {
	Username string
	Name     string
	Password string
	Email    string // optional contact address
}

// CreateClientAccountDeps holds dependencies for CreateClientAccount.
type CreateClientAccountDeps struct {
	AccountStore AccountStoreForCreate
	Provisioner  identity.Provisioner // nil skips provisioning
	EmailDomain  string
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteCreateClientAccount registers a client and provisions its external
// identity.
// PRE: Username valid, password >= account.MinPasswordLength
// POST: Account stored with a bcrypt hash; provisioning attempted once
// INVARIANT: Username is unique; a provisioning failure never fails the call
func ExecuteCreateClientAccount(ctx context.Context, input CreateClientAccountInput, deps CreateClientAccountDeps) (account.Account, error) {
	acct, err := newAccount(input.Username, input.Name, input.Email, account.RoleClient, input.Password, deps.GenerateID, deps.Now)
	if err != nil {
		return account.Account{}, err
	}

	_, err = deps.AccountStore.GetByUsername(ctx, acct.Username)
	if err == nil {
		return account.Account{}, ErrUsernameTaken
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return account.Account{}, err
	}

	if err := deps.AccountStore.Create(ctx, acct); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return account.Account{}, ErrUsernameTaken
		}
		return account.Account{}, err
	}

	observability.RecordEvent("client_created")
	slog.Info("auth_event", "event", "account_created", "username", acct.Username, "role", acct.Role)

	if deps.Provisioner != nil {
		email := identity.SyntheticEmail(acct.Username, deps.EmailDomain)
		if err := deps.Provisioner.Provision(ctx, email, input.Password); err != nil {
			observability.RecordProvisioningFailure()
			slog.Error("auth_event", "event", "provisioning_failed", "username", acct.Username, "error", err.Error())
		}
	}

	return acct, nil
}

func newAccount(username, name, email, role, password string, generateID func() string, now func() time.Time) (account.Account, error) {
	acct := account.Account{
		ID:        generateID(),
		Username:  account.NormalizeUsername(username),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Role:      role,
		CreatedAt: now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, err
	}
	if err := acct.SetPassword(password); err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

// AccountStoreForDelete defines the store interface needed by DeleteClientAccount.
type AccountStoreForDelete interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Delete(ctx context.Context, id string) error
}

// DeleteClientAccountDeps holds dependencies for DeleteClientAccount.
type DeleteClientAccountDeps struct {
	AccountStore    AccountStoreForDelete
	AssignmentStore AssignmentStoreForUnassign
}

// ExecuteDeleteClientAccount removes a client and all of its assignments.
// The external identity is left in place.
// PRE: username names a client account
// POST: Account gone and no assignment references username; returns how many were removed
func ExecuteDeleteClientAccount(ctx context.Context, username string, deps DeleteClientAccountDeps) (int, error) {
	username = account.NormalizeUsername(username)
	acct, err := deps.AccountStore.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if !acct.IsClient() {
		return 0, ErrNotClient
	}
	// Assignments go first: the account row is what makes a retry reachable.
	n, err := ExecuteUnassignAllForClient(ctx, username, UnassignAllDeps{AssignmentStore: deps.AssignmentStore})
	if err != nil {
		return 0, err
	}
	if err := deps.AccountStore.Delete(ctx, acct.ID); err != nil {
		return 0, err
	}

	observability.RecordEvent("client_deleted")
	slog.Info("auth_event", "event", "account_deleted", "username", username, "assignments_removed", n)
	return n, nil
}

// AccountStoreForSeed defines the store interface needed by SeedAdmin.
type AccountStoreForSeed interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, a account.Account) error
}

// SeedAdminInput carries the trainer's initial credentials.
type SeedAdminInput struct {
	Username string
	Password string
	Name     string
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	AccountStore AccountStoreForSeed
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSeedAdmin creates the admin account if no accounts exist.
// PRE: Database is initialized
// POST: Admin account created if count == 0
func ExecuteSeedAdmin(ctx context.Context, input SeedAdminInput, deps SeedAdminDeps) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	acct, err := newAccount(input.Username, input.Name, "", account.RoleAdmin, input.Password, deps.GenerateID, deps.Now)
	if err != nil {
		return err
	}
	if err := deps.AccountStore.Create(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "username", acct.Username)
	return nil
}
