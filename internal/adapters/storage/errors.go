package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Gateway errors shared by every store.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("record violates a unique index")
	ErrGatewayFailure = errors.New("persistence gateway failure")
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// GatewayError classifies a driver error for op. sql.ErrNoRows becomes
// ErrNotFound, a unique index rejection becomes ErrDuplicate, and anything
// else is wrapped with ErrGatewayFailure, keeping the cause in the chain.
func GatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrGatewayFailure) || errors.Is(err, ErrDuplicate) {
		return err
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrGatewayFailure, err)
}

// IsUniqueViolation reports whether err came from a unique index rejecting
// a write, for either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
