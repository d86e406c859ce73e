package assignment

import (
	"context"

	"kinesis/internal/adapters/storage"
	domain "kinesis/internal/domain/assignment"
)

const columns = "id, client_username, workout_id, assigned_at"

// SQLStore implements Store on any storage.SQLDB.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new assignment store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts an assignment.
// PRE: a has been validated
// POST: Assignment persisted, or storage.ErrDuplicate for an existing pair
func (s *SQLStore) Create(ctx context.Context, a domain.Assignment) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO client_workouts ("+columns+") VALUES (?, ?, ?, ?)",
		a.ID, a.ClientUsername, a.WorkoutID, storage.FormatTime(a.AssignedAt))
	return storage.GatewayError("create assignment", err)
}

// FindByPair queries by client and workout together.
func (s *SQLStore) FindByPair(ctx context.Context, clientUsername, workoutID string) ([]domain.Assignment, error) {
	return s.query(ctx, "find assignment",
		"SELECT "+columns+" FROM client_workouts WHERE client_username = ? AND workout_id = ?",
		clientUsername, workoutID)
}

// ListByClient returns a client's assignments ordered by assigned_at.
func (s *SQLStore) ListByClient(ctx context.Context, clientUsername string) ([]domain.Assignment, error) {
	return s.query(ctx, "list assignments",
		"SELECT "+columns+" FROM client_workouts WHERE client_username = ? ORDER BY assigned_at ASC, id ASC",
		clientUsername)
}

// DeleteByClient removes every row for the client.
// POST: no assignment references clientUsername; returns rows removed
func (s *SQLStore) DeleteByClient(ctx context.Context, clientUsername string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM client_workouts WHERE client_username = ?", clientUsername)
	if err != nil {
		return 0, storage.GatewayError("delete assignments", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storage.GatewayError("delete assignments", err)
	}
	return int(n), nil
}

func (s *SQLStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.GatewayError(op, err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		var assignedAt string
		if err := rows.Scan(&a.ID, &a.ClientUsername, &a.WorkoutID, &assignedAt); err != nil {
			return nil, storage.GatewayError(op, err)
		}
		if a.AssignedAt, err = storage.ParseTime(assignedAt); err != nil {
			return nil, storage.GatewayError(op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.GatewayError(op, err)
	}
	return out, nil
}
