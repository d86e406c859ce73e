package orchestrators

import (
	"context"
	"errors"
	"testing"

	"kinesis/internal/adapters/storage"
	"kinesis/internal/domain/account"
)

type recordingProvisioner struct {
	emails []string
	err    error
}

func (p *recordingProvisioner) Provision(_ context.Context, email, _ string) error {
	p.emails = append(p.emails, email)
	return p.err
}

func createDeps(store *mockAccountStore, prov *recordingProvisioner) CreateClientAccountDeps {
	return CreateClientAccountDeps{
		AccountStore: store,
		Provisioner:  prov,
		EmailDomain:  "kinesis.local",
		GenerateID:   seqIDs(),
		Now:          fixedNow,
	}
}

// TestExecuteCreateClientAccount_Valid tests creating and provisioning a client.
func TestExecuteCreateClientAccount_Valid(t *testing.T) {
	store := newMockAccountStore()
	prov := &recordingProvisioner{}

	acct, err := ExecuteCreateClientAccount(context.Background(), CreateClientAccountInput{
		Username: "  Mario ",
		Name:     "Mario Rossi",
		Password: "secret1",
		Email:    "mario@example.com",
	}, createDeps(store, prov))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Username != "mario" || acct.Role != account.RoleClient {
		t.Errorf("account = %+v", acct)
	}
	if acct.PasswordHash == "" || acct.PasswordHash == "secret1" {
		t.Error("password must be stored as a hash")
	}
	stored, err := store.GetByUsername(context.Background(), "MARIO")
	if err != nil || stored.ID != acct.ID {
		t.Errorf("lookup = %+v, %v", stored, err)
	}
	if len(prov.emails) != 1 || prov.emails[0] != "mario@kinesis.local" {
		t.Errorf("provisioned = %v", prov.emails)
	}
}

// TestExecuteCreateClientAccount_Taken tests case-insensitive uniqueness.
func TestExecuteCreateClientAccount_Taken(t *testing.T) {
	store := newMockAccountStore(mustClient("mario", ""))
	prov := &recordingProvisioner{}
	_, err := ExecuteCreateClientAccount(context.Background(), CreateClientAccountInput{Username: "MARIO", Password: "secret1"}, createDeps(store, prov))
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("error = %v, want ErrUsernameTaken", err)
	}
	if len(prov.emails) != 0 {
		t.Error("no provisioning for a rejected account")
	}
}

// TestExecuteCreateClientAccount_DuplicateOnWrite tests the unique index backstop.
func TestExecuteCreateClientAccount_DuplicateOnWrite(t *testing.T) {
	store := newMockAccountStore()
	store.createErr = errors.Join(errors.New("insert account"), storage.ErrDuplicate)
	_, err := ExecuteCreateClientAccount(context.Background(), CreateClientAccountInput{Username: "mario", Password: "secret1"}, createDeps(store, &recordingProvisioner{}))
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("error = %v, want ErrUsernameTaken", err)
	}
}

// TestExecuteCreateClientAccount_ProvisioningFailureSwallowed tests the best-effort external step.
func TestExecuteCreateClientAccount_ProvisioningFailureSwallowed(t *testing.T) {
	store := newMockAccountStore()
	prov := &recordingProvisioner{err: errBoom}
	if _, err := ExecuteCreateClientAccount(context.Background(), CreateClientAccountInput{Username: "mario", Password: "secret1"}, createDeps(store, prov)); err != nil {
		t.Fatalf("provisioning failure must be swallowed, got %v", err)
	}
	if len(store.accounts) != 1 {
		t.Error("account record should be written")
	}
}

// TestExecuteCreateClientAccount_Invalid tests input validation.
func TestExecuteCreateClientAccount_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateClientAccountInput
		wantErr error
	}{
		{"empty username", CreateClientAccountInput{Password: "secret1"}, account.ErrEmptyUsername},
		{"bad chars", CreateClientAccountInput{Username: "ma rio", Password: "secret1"}, account.ErrInvalidUsername},
		{"short password", CreateClientAccountInput{Username: "mario", Password: "abc"}, account.ErrPasswordTooShort},
		{"bad email", CreateClientAccountInput{Username: "mario", Password: "secret1", Email: "nope"}, account.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockAccountStore()
			_, err := ExecuteCreateClientAccount(context.Background(), tt.input, createDeps(store, &recordingProvisioner{}))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(store.accounts) != 0 {
				t.Error("nothing should be written")
			}
		})
	}
}

// TestExecuteDeleteClientAccount_Cascade tests the delete-account cascade property.
func TestExecuteDeleteClientAccount_Cascade(t *testing.T) {
	accounts := newMockAccountStore(mustClient("bob", ""), mustClient("ann", ""))
	rows := &mockAssignmentStore{}
	for _, a := range []struct{ c, w string }{{"bob", "w1"}, {"bob", "w2"}, {"ann", "w1"}} {
		_ = rows.Create(context.Background(), assignmentFor(a.c, a.w))
	}
	deps := DeleteClientAccountDeps{AccountStore: accounts, AssignmentStore: rows}

	n, err := ExecuteDeleteClientAccount(context.Background(), "bob", deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	if _, err := accounts.GetByUsername(context.Background(), "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("account should be gone")
	}
	for _, a := range rows.rows {
		if a.ClientUsername == "bob" {
			t.Errorf("assignment %+v survived the cascade", a)
		}
	}
	if len(rows.rows) != 1 {
		t.Errorf("other clients' rows = %d, want 1", len(rows.rows))
	}
}

// TestExecuteDeleteClientAccount_Errors tests missing and non-client targets.
func TestExecuteDeleteClientAccount_Errors(t *testing.T) {
	admin := account.Account{ID: "acct-admin", Username: "admin", Role: account.RoleAdmin}
	deps := DeleteClientAccountDeps{AccountStore: newMockAccountStore(admin), AssignmentStore: &mockAssignmentStore{}}

	if _, err := ExecuteDeleteClientAccount(context.Background(), "ghost", deps); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing = %v, want ErrNotFound", err)
	}
	if _, err := ExecuteDeleteClientAccount(context.Background(), "admin", deps); !errors.Is(err, ErrNotClient) {
		t.Errorf("admin = %v, want ErrNotClient", err)
	}
}

// TestExecuteDeleteClientAccount_CascadeFailure tests that a failed unassign
// keeps the account, so the delete can be retried.
func TestExecuteDeleteClientAccount_CascadeFailure(t *testing.T) {
	accounts := newMockAccountStore(mustClient("bob", ""))
	rows := &mockAssignmentStore{}
	_ = rows.Create(context.Background(), assignmentFor("bob", "w1"))
	rows.deleteErr = errors.New("disk full")
	deps := DeleteClientAccountDeps{AccountStore: accounts, AssignmentStore: rows}

	if _, err := ExecuteDeleteClientAccount(context.Background(), "bob", deps); err == nil {
		t.Fatal("expected the cascade error")
	}
	if _, err := accounts.GetByUsername(context.Background(), "bob"); err != nil {
		t.Fatalf("account should survive a failed cascade: %v", err)
	}

	rows.deleteErr = nil
	n, err := ExecuteDeleteClientAccount(context.Background(), "bob", deps)
	if err != nil || n != 1 {
		t.Fatalf("retry = %d, %v; want 1, nil", n, err)
	}
	if _, err := accounts.GetByUsername(context.Background(), "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("account should be gone after the retry")
	}
}

// TestExecuteSeedAdmin tests seeding only into an empty store.
func TestExecuteSeedAdmin(t *testing.T) {
	store := newMockAccountStore()
	deps := SeedAdminDeps{AccountStore: store, GenerateID: seqIDs(), Now: fixedNow}
	input := SeedAdminInput{Username: "Trainer", Password: "kinesis-admin", Name: "Coach"}

	if err := ExecuteSeedAdmin(context.Background(), input, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	admin, err := store.GetByUsername(context.Background(), "trainer")
	if err != nil || !admin.IsAdmin() {
		t.Fatalf("admin = %+v, %v", admin, err)
	}

	if err := ExecuteSeedAdmin(context.Background(), input, deps); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if len(store.accounts) != 1 {
		t.Errorf("accounts = %d, want 1", len(store.accounts))
	}
}
