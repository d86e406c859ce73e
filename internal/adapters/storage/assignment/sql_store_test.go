package assignment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kinesis/internal/adapters/storage"
	store "kinesis/internal/adapters/storage/assignment"
	"kinesis/internal/adapters/storage/storagetest"
	domain "kinesis/internal/domain/assignment"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *store.SQLStore {
	t.Helper()
	return store.NewSQLStore(storagetest.OpenDB(t))
}

func assign(id, client, workout string, at time.Time) domain.Assignment {
	return domain.Assignment{ID: id, ClientUsername: client, WorkoutID: workout, AssignedAt: at}
}

// TestSQLStore_CreateAndFind tests the conjunctive pair query.
func TestSQLStore_CreateAndFind(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, assign("a1", "bob", "w1", fixedNow)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	hits, err := s.FindByPair(ctx, "bob", "w1")
	if err != nil {
		t.Fatalf("FindByPair() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a1" || !hits[0].AssignedAt.Equal(fixedNow) {
		t.Errorf("FindByPair() = %+v", hits)
	}

	for _, pair := range [][2]string{{"bob", "w2"}, {"alice", "w1"}} {
		hits, err := s.FindByPair(ctx, pair[0], pair[1])
		if err != nil || len(hits) != 0 {
			t.Errorf("FindByPair(%v) = %v, %v, want none", pair, hits, err)
		}
	}
}

// TestSQLStore_Create_DuplicatePair tests the unique index on the pair.
func TestSQLStore_Create_DuplicatePair(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, assign("a1", "bob", "w1", fixedNow)); err != nil {
		t.Fatal(err)
	}
	err := s.Create(ctx, assign("a2", "bob", "w1", fixedNow.Add(time.Second)))
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicate", err)
	}
}

// TestSQLStore_ListAndDeleteByClient tests per-client listing and the cascade helper.
func TestSQLStore_ListAndDeleteByClient(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rows := []domain.Assignment{
		assign("a2", "bob", "w2", fixedNow.Add(time.Minute)),
		assign("a1", "bob", "w1", fixedNow),
		assign("a3", "alice", "w1", fixedNow),
	}
	for _, a := range rows {
		if err := s.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	bob, err := s.ListByClient(ctx, "bob")
	if err != nil {
		t.Fatalf("ListByClient() error = %v", err)
	}
	if len(bob) != 2 || bob[0].WorkoutID != "w1" || bob[1].WorkoutID != "w2" {
		t.Errorf("ListByClient(bob) = %+v", bob)
	}

	n, err := s.DeleteByClient(ctx, "bob")
	if err != nil || n != 2 {
		t.Fatalf("DeleteByClient() = %d, %v, want 2", n, err)
	}
	if left, _ := s.ListByClient(ctx, "bob"); len(left) != 0 {
		t.Errorf("bob still has %d assignments", len(left))
	}
	if alice, _ := s.ListByClient(ctx, "alice"); len(alice) != 1 {
		t.Errorf("alice lost assignments: %+v", alice)
	}
	if n, _ := s.DeleteByClient(ctx, "nobody"); n != 0 {
		t.Errorf("DeleteByClient(nobody) = %d, want 0", n)
	}
}
