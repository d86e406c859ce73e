package orchestrators

import (
	"context"
	"errors"
	"testing"

	"kinesis/internal/adapters/storage"
	"kinesis/internal/domain/account"
)

func passwordFixture(t *testing.T) *mockAccountStore {
	t.Helper()
	acct := mustClient("mario", "")
	if err := acct.SetPassword("secret1"); err != nil {
		t.Fatal(err)
	}
	acct.FailedLogins = 2
	return newMockAccountStore(acct)
}

// TestExecuteChangePassword_Success tests that the new password replaces the old one.
func TestExecuteChangePassword_Success(t *testing.T) {
	store := passwordFixture(t)
	err := ExecuteChangePassword(context.Background(), ChangePasswordInput{
		AccountID:       "acct-mario",
		CurrentPassword: "secret1",
		NewPassword:     "better-secret",
	}, ChangePasswordDeps{AccountStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acct := store.accounts["acct-mario"]
	if acct.CheckPassword("better-secret") != nil {
		t.Error("new password should verify")
	}
	if acct.CheckPassword("secret1") == nil {
		t.Error("old password should no longer verify")
	}
	if acct.FailedLogins != 0 {
		t.Errorf("FailedLogins = %d, want 0", acct.FailedLogins)
	}
}

// TestExecuteChangePassword_Rejected tests every refusal leaves the hash alone.
func TestExecuteChangePassword_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		input   ChangePasswordInput
		wantErr error
	}{
		{"empty fields", ChangePasswordInput{AccountID: "acct-mario"}, ErrPasswordFieldsEmpty},
		{"wrong current", ChangePasswordInput{AccountID: "acct-mario", CurrentPassword: "nope123", NewPassword: "better-secret"}, ErrCurrentPasswordWrong},
		{"same password", ChangePasswordInput{AccountID: "acct-mario", CurrentPassword: "secret1", NewPassword: "secret1"}, ErrNewPasswordSame},
		{"too short", ChangePasswordInput{AccountID: "acct-mario", CurrentPassword: "secret1", NewPassword: "abc"}, account.ErrPasswordTooShort},
		{"unknown account", ChangePasswordInput{AccountID: "acct-luigi", CurrentPassword: "secret1", NewPassword: "better-secret"}, storage.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := passwordFixture(t)
			before := store.accounts["acct-mario"].PasswordHash

			err := ExecuteChangePassword(context.Background(), tt.input, ChangePasswordDeps{AccountStore: store})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if store.accounts["acct-mario"].PasswordHash != before {
				t.Error("password hash changed on a rejected request")
			}
		})
	}
}

// TestExecuteChangePassword_SaveError tests that a store failure surfaces.
func TestExecuteChangePassword_SaveError(t *testing.T) {
	store := passwordFixture(t)
	store.saveErr = storage.GatewayError("save account", errors.New("disk full"))

	err := ExecuteChangePassword(context.Background(), ChangePasswordInput{
		AccountID:       "acct-mario",
		CurrentPassword: "secret1",
		NewPassword:     "better-secret",
	}, ChangePasswordDeps{AccountStore: store})
	if !errors.Is(err, storage.ErrGatewayFailure) {
		t.Errorf("error = %v, want ErrGatewayFailure", err)
	}
}
