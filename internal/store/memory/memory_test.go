package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"divvy/internal/core"
	"divvy/internal/store"
)

func expense(id, groupID string, cents int64, payer string) core.Expense {
	return core.Expense{
		ID:        id,
		Cost:      core.Money{Cents: cents},
		GroupID:   groupID,
		CreatedBy: core.User{ID: payer},
		Shares:    core.EqualShare(core.Money{Cents: cents}, payer, []string{payer}),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.GetExpense(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	e := expense("e1", "g1", 1000, "u1")
	if err := s.CreateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetExpense(ctx, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Cost.Cents != 1000 || len(got.Shares) != 1 {
		t.Errorf("unexpected expense: %+v", got)
	}

	// Mutating the returned value must not leak into the store.
	got.Shares[0].UserID = "tampered"
	again, _ := s.GetExpense(ctx, "e1")
	if again.Shares[0].UserID != "u1" {
		t.Error("store returned aliased share slice")
	}

	got.Description = "groceries"
	got.Shares[0].UserID = "u1"
	if err := s.ReplaceExpense(ctx, got); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceExpense(ctx, expense("nope", "g1", 1, "u1")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListExpensesFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, id := range []string{"a", "b", "c", "d"} {
		_ = s.CreateExpense(ctx, expense(id, "g1", int64(100*(i+1)), "u1"))
	}
	_ = s.CreateExpense(ctx, expense("other", "g2", 100, "u1"))

	now := time.Now()
	if err := s.SetExpenseDeleted(ctx, "b", &now); err != nil {
		t.Fatal(err)
	}

	out, err := s.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 live expenses in g1, got %d", len(out))
	}

	out, _ = s.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1", Limit: 2, Offset: 1})
	if len(out) != 2 || out[0].ID != "c" || out[1].ID != "d" {
		t.Errorf("pagination wrong: %+v", out)
	}

	out, _ = s.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1", IncludeDeleted: true})
	if len(out) != 4 {
		t.Errorf("expected 4 with deleted, got %d", len(out))
	}

	// Restore clears the marker.
	if err := s.SetExpenseDeleted(ctx, "b", nil); err != nil {
		t.Fatal(err)
	}
	out, _ = s.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1"})
	if len(out) != 4 {
		t.Errorf("expected 4 after restore, got %d", len(out))
	}
}

func TestGroupShares(t *testing.T) {
	ctx := context.Background()
	s := New()
	e1 := expense("e1", "g1", 1000, "u1")
	e1.Shares = core.EqualShare(e1.Cost, "u1", []string{"u1", "u2"})
	_ = s.CreateExpense(ctx, e1)
	_ = s.CreateExpense(ctx, expense("e2", "g1", 500, "u2"))
	_ = s.CreateExpense(ctx, expense("e3", "g2", 999, "u3"))

	shares, err := s.GroupShares(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}

	now := time.Now()
	_ = s.SetExpenseDeleted(ctx, "e1", &now)
	shares, _ = s.GroupShares(ctx, "g1")
	if len(shares) != 1 {
		t.Errorf("deleted expense shares should be excluded, got %d", len(shares))
	}

	user, _ := s.UserShares(ctx, "u2")
	if len(user) != 1 || user[0].UserID != "u2" {
		t.Errorf("unexpected user shares: %+v", user)
	}
}

func TestGroups(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateGroup(ctx, core.Group{ID: "g1", Name: "trip", Members: []core.User{{ID: "a"}, {ID: "b"}}})
	_ = s.CreateGroup(ctx, core.Group{ID: "g2", Name: "flat", Members: []core.User{{ID: "b"}}})

	if _, err := s.GetGroup(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	g, err := s.GetGroup(ctx, "g1")
	if err != nil || g.Name != "trip" {
		t.Fatalf("get group: %v %+v", err, g)
	}

	mine, _ := s.ListGroupsForUser(ctx, "b")
	if len(mine) != 2 {
		t.Errorf("expected 2 groups for b, got %d", len(mine))
	}
	mine, _ = s.ListGroupsForUser(ctx, "a")
	if len(mine) != 1 || mine[0].ID != "g1" {
		t.Errorf("expected g1 for a, got %+v", mine)
	}

	ids, _ := s.ListGroupIDs(ctx)
	if len(ids) != 2 {
		t.Errorf("expected 2 group ids, got %v", ids)
	}
}

func TestRecurrenceTracking(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := expense("e1", "g1", 1000, "u1")
	e.RepeatInterval = core.Monthly
	_ = s.CreateExpense(ctx, e)
	_ = s.CreateExpense(ctx, expense("e2", "g1", 500, "u1"))

	rep, err := s.ListRepeating(ctx)
	if err != nil || len(rep) != 1 || rep[0].ID != "e1" {
		t.Fatalf("repeating: %v %+v", err, rep)
	}

	last, _ := s.LastMaterialized(ctx, "e1")
	if !last.IsZero() {
		t.Errorf("expected zero last materialization, got %v", last)
	}
	at := time.Now()
	if err := s.MarkMaterialized(ctx, "e1", at); err != nil {
		t.Fatal(err)
	}
	last, _ = s.LastMaterialized(ctx, "e1")
	if !last.Equal(at) {
		t.Errorf("expected %v, got %v", at, last)
	}
}
