package account

import (
	"context"

	domain "kinesis/internal/domain/account"
)

// Store persists Account state in the users table.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByUsername(ctx context.Context, username string) (domain.Account, error)
	Create(ctx context.Context, value domain.Account) error
	Save(ctx context.Context, value domain.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	Count(ctx context.Context) (int, error)
}

// ListFilter carries filtering parameters for List operations.
// A zero Limit returns every match.
type ListFilter struct {
	Limit  int
	Offset int
	Role   string
}
