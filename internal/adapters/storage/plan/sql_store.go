package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"kinesis/internal/adapters/storage"
	domain "kinesis/internal/domain/plan"
)

const columns = "id, name, days, created_at, updated_at, created_by"

// SQLStore implements Store on any storage.SQLDB. Days are stored as a JSON
// object keyed by day number.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new plan store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts a new plan.
// PRE: p.ID is set, p.Content() has been validated
// POST: Plan is persisted
func (s *SQLStore) Create(ctx context.Context, p domain.Plan) error {
	days, err := encodeDays(p.Days)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO workouts ("+columns+") VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, days, storage.FormatTime(p.CreatedAt), storage.FormatTime(p.UpdatedAt), p.CreatedBy)
	return storage.GatewayError("create plan", err)
}

// Update overwrites the content of an existing plan. It is a conditional
// write: a missing row is reported, never created.
// PRE: p.ID is set, p.Content() has been validated
// POST: Plan content and updated_at replaced, or storage.ErrNotFound
func (s *SQLStore) Update(ctx context.Context, p domain.Plan) error {
	days, err := encodeDays(p.Days)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE workouts SET name = ?, days = ?, updated_at = ? WHERE id = ?",
		p.Name, days, storage.FormatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return storage.GatewayError("update plan", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.GatewayError("update plan", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a plan.
// PRE: id is non-empty
// POST: Returns the plan or storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Plan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM workouts WHERE id = ?", id)
	p, err := scanPlan(row.Scan)
	if err != nil {
		return domain.Plan{}, storage.GatewayError("get plan", err)
	}
	return p, nil
}

// List returns all plans ordered by created_at descending.
func (s *SQLStore) List(ctx context.Context) ([]domain.Plan, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM workouts ORDER BY created_at DESC")
	if err != nil {
		return nil, storage.GatewayError("list plans", err)
	}
	defer rows.Close()

	var out []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, storage.GatewayError("list plans", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.GatewayError("list plans", err)
	}
	return out, nil
}

// Delete removes a plan.
// PRE: id is non-empty
// POST: Plan removed, or storage.ErrNotFound
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM workouts WHERE id = ?", id)
	if err != nil {
		return storage.GatewayError("delete plan", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.GatewayError("delete plan", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// encodeDays renders days as {"1": [...], "2": [...]}. Empty days are kept
// as [] rather than null.
func encodeDays(days domain.Days) (string, error) {
	doc := make(map[string][]domain.Entry, len(days))
	for day, entries := range days {
		if entries == nil {
			entries = []domain.Entry{}
		}
		doc[strconv.Itoa(day)] = entries
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode plan days: %w", err)
	}
	return string(b), nil
}

func decodeDays(raw string) (domain.Days, error) {
	var doc map[string][]domain.Entry
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode plan days: %w", err)
	}
	days := make(domain.Days, len(doc))
	for key, entries := range doc {
		day, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("decode plan days: bad day key %q", key)
		}
		if entries == nil {
			entries = []domain.Entry{}
		}
		days[day] = entries
	}
	return days, nil
}

func scanPlan(scan func(dest ...any) error) (domain.Plan, error) {
	var p domain.Plan
	var days, createdAt, updatedAt string
	if err := scan(&p.ID, &p.Name, &days, &createdAt, &updatedAt, &p.CreatedBy); err != nil {
		return domain.Plan{}, err
	}
	var err error
	if p.Days, err = decodeDays(days); err != nil {
		return domain.Plan{}, err
	}
	if p.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Plan{}, err
	}
	if p.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return domain.Plan{}, err
	}
	return p, nil
}
