package account

import (
	"context"
	"strings"

	"kinesis/internal/adapters/storage"
	domain "kinesis/internal/domain/account"
)

const columns = "id, username, name, role, password_hash, email, created_at, failed_logins, locked_until"

// SQLStore implements Store on any storage.SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new account store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM users WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if err != nil {
		return domain.Account{}, storage.GatewayError("get account", err)
	}
	return entity, nil
}

// GetByUsername retrieves an Account by username. The lookup is
// case-insensitive because usernames are stored normalised.
// PRE: username is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLStore) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM users WHERE username = ?",
		domain.NormalizeUsername(username))
	entity, err := scanAccount(row.Scan)
	if err != nil {
		return domain.Account{}, storage.GatewayError("get account by username", err)
	}
	return entity, nil
}

// Create inserts a new Account.
// PRE: entity has been validated
// POST: Entity is persisted; storage.ErrDuplicate if the id or username exists
func (s *SQLStore) Create(ctx context.Context, entity domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entity.ID,
		domain.NormalizeUsername(entity.Username),
		entity.Name,
		entity.Role,
		entity.PasswordHash,
		entity.Email,
		storage.FormatTime(entity.CreatedAt),
		entity.FailedLogins,
		storage.FormatTime(entity.LockedUntil),
	)
	return storage.GatewayError("create account", err)
}

// Save persists an Account (insert or update by id).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLStore) Save(ctx context.Context, entity domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"+
			` ON CONFLICT(id) DO UPDATE SET
			   name=excluded.name, role=excluded.role, password_hash=excluded.password_hash,
			   email=excluded.email, failed_logins=excluded.failed_logins, locked_until=excluded.locked_until`,
		entity.ID,
		domain.NormalizeUsername(entity.Username),
		entity.Name,
		entity.Role,
		entity.PasswordHash,
		entity.Email,
		storage.FormatTime(entity.CreatedAt),
		entity.FailedLogins,
		storage.FormatTime(entity.LockedUntil),
	)
	return storage.GatewayError("save account", err)
}

// Delete removes an Account.
// PRE: id is non-empty
// POST: Entity is removed; storage.ErrNotFound if it did not exist
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return storage.GatewayError("delete account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.GatewayError("delete account", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves Accounts ordered by username.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var qb strings.Builder
	var args []any

	qb.WriteString("SELECT " + columns + " FROM users")
	if filter.Role != "" {
		qb.WriteString(" WHERE role = ?")
		args = append(args, filter.Role)
	}
	qb.WriteString(" ORDER BY username ASC")
	if filter.Limit > 0 {
		qb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, storage.GatewayError("list accounts", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, storage.GatewayError("list accounts", err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.GatewayError("list accounts", err)
	}
	return out, nil
}

// Count returns the number of accounts.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, storage.GatewayError("count accounts", err)
	}
	return n, nil
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt, lockedUntil string
	err := scan(
		&entity.ID,
		&entity.Username,
		&entity.Name,
		&entity.Role,
		&entity.PasswordHash,
		&entity.Email,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	if entity.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Account{}, err
	}
	if entity.LockedUntil, err = storage.ParseTime(lockedUntil); err != nil {
		return domain.Account{}, err
	}
	return entity, nil
}
