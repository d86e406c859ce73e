package projections

import (
	"context"

	"kinesis/internal/adapters/storage/account"
	domainAccount "kinesis/internal/domain/account"
)

// ClientSummary is one row of the trainer's client picker.
type ClientSummary struct {
	ID       string
	Username string
	Name     string
	Email    string
}

// GetClientListDeps holds dependencies for GetClientList.
type GetClientListDeps struct {
	AccountStore AccountStore
}

// QueryGetClientList lists every client account.
// POST: Only role client, ordered by username
// INVARIANT: Credentials never leave this projection
func QueryGetClientList(ctx context.Context, deps GetClientListDeps) ([]ClientSummary, error) {
	accounts, err := deps.AccountStore.List(ctx, account.ListFilter{Role: domainAccount.RoleClient})
	if err != nil {
		return nil, err
	}
	out := make([]ClientSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ClientSummary{
			ID:       a.ID,
			Username: a.Username,
			Name:     a.DisplayName(),
			Email:    a.Email,
		})
	}
	return out, nil
}
