package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"divvy/internal/core"
	"divvy/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testExpense(id, groupID string, cents int64, interval core.RepeatInterval) core.Expense {
	now := time.Now().UTC().Truncate(time.Second)
	cost := core.Money{Cents: cents}
	return core.Expense{
		ID:             id,
		Cost:           cost,
		Description:    "dinner",
		CurrencyCode:   "EUR",
		GroupID:        groupID,
		Date:           now,
		RepeatInterval: interval,
		CreatedBy:      core.User{ID: "alice", FirstName: "Alice"},
		CreatedAt:      now,
		UpdatedAt:      now,
		Shares:         core.EqualShare(cost, "alice", []string{"alice", "bob"}),
	}
}

func TestExpenseLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	g := core.Group{
		ID:                "g1",
		Name:              "trip",
		SimplifyByDefault: true,
		Members:           []core.User{{ID: "alice", FirstName: "Alice"}, {ID: "bob"}},
		UpdatedAt:         time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	e := testExpense("e1", "g1", 4200, core.Never)
	if err := repo.CreateExpense(ctx, e); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	got, err := repo.GetExpense(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Cost.Cents != 4200 {
		t.Errorf("Cost = %d, want 4200", got.Cost.Cents)
	}
	if got.CreatedBy.ID != "alice" || got.CreatedBy.FirstName != "Alice" {
		t.Errorf("CreatedBy = %+v", got.CreatedBy)
	}
	if len(got.Shares) != 2 {
		t.Fatalf("len(Shares) = %d, want 2", len(got.Shares))
	}
	if got.Shares[1].UserID != "alice" {
		t.Errorf("share order not preserved: %+v", got.Shares)
	}

	if _, err := repo.GetExpense(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetExpense(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListExpensesFiltersAndPaginates(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"e1", "e2", "e3"} {
		e := testExpense(id, "g1", 1000, core.Never)
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense(%s) error = %v", id, err)
		}
	}

	at := base.Add(time.Hour)
	if err := repo.SetExpenseDeleted(ctx, "e2", &at); err != nil {
		t.Fatalf("SetExpenseDeleted() error = %v", err)
	}

	list, err := repo.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1"})
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 live expenses", len(list))
	}
	if list[0].ID != "e1" || list[1].ID != "e3" {
		t.Errorf("order = %s, %s, want e1, e3", list[0].ID, list[1].ID)
	}

	all, err := repo.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1", IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListExpenses(all) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3 with deleted", len(all))
	}

	page, err := repo.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListExpenses(page) error = %v", err)
	}
	if len(page) != 1 || page[0].ID != "e3" {
		t.Errorf("page = %+v, want [e3]", page)
	}

	// Restore clears the marker.
	if err := repo.SetExpenseDeleted(ctx, "e2", nil); err != nil {
		t.Fatalf("restore error = %v", err)
	}
	list, _ = repo.ListExpenses(ctx, store.ListExpensesRequest{GroupID: "g1"})
	if len(list) != 3 {
		t.Errorf("len = %d after restore, want 3", len(list))
	}

	if err := repo.SetExpenseDeleted(ctx, "missing", &at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetExpenseDeleted(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReplaceExpenseSwapsShares(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	e := testExpense("e1", "g1", 4200, core.Never)
	if err := repo.CreateExpense(ctx, e); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	e.Cost = core.Money{Cents: 6000}
	e.Shares = core.EqualShare(e.Cost, "alice", []string{"alice", "bob", "carol"})
	e.UpdatedAt = e.UpdatedAt.Add(time.Minute)
	if err := repo.ReplaceExpense(ctx, e); err != nil {
		t.Fatalf("ReplaceExpense() error = %v", err)
	}

	got, err := repo.GetExpense(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Cost.Cents != 6000 {
		t.Errorf("Cost = %d, want 6000", got.Cost.Cents)
	}
	if len(got.Shares) != 3 {
		t.Errorf("len(Shares) = %d, want 3 after replace", len(got.Shares))
	}

	if err := repo.ReplaceExpense(ctx, testExpense("missing", "g1", 100, core.Never)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ReplaceExpense(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGroupQueries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	groups := []core.Group{
		{ID: "g1", Name: "trip", Members: []core.User{{ID: "alice"}, {ID: "bob"}}, UpdatedAt: time.Now().UTC()},
		{ID: "g2", Name: "flat", Members: []core.User{{ID: "alice"}}, UpdatedAt: time.Now().UTC()},
		{ID: "g3", Name: "other", Members: []core.User{{ID: "carol"}}, UpdatedAt: time.Now().UTC()},
	}
	for _, g := range groups {
		if err := repo.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup(%s) error = %v", g.ID, err)
		}
	}

	got, err := repo.GetGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGroup() error = %v", err)
	}
	if len(got.Members) != 2 || got.Members[0].ID != "alice" {
		t.Errorf("members = %+v", got.Members)
	}

	mine, err := repo.ListGroupsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListGroupsForUser() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("len = %d, want 2", len(mine))
	}

	ids, err := repo.ListGroupIDs(ctx)
	if err != nil {
		t.Fatalf("ListGroupIDs() error = %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("ids = %v, want 3", ids)
	}

	if _, err := repo.GetGroup(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetGroup(missing) error = %v, want ErrNotFound", err)
	}
}

func TestShareQueriesExcludeDeleted(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.CreateExpense(ctx, testExpense("e1", "g1", 1000, core.Never)); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if err := repo.CreateExpense(ctx, testExpense("e2", "g1", 5000, core.Never)); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	at := time.Now().UTC()
	if err := repo.SetExpenseDeleted(ctx, "e2", &at); err != nil {
		t.Fatalf("SetExpenseDeleted() error = %v", err)
	}

	shares, err := repo.GroupShares(ctx, "g1")
	if err != nil {
		t.Fatalf("GroupShares() error = %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("len = %d, want 2 (only live expense)", len(shares))
	}

	balance := core.AggregateShares("g1", shares)
	alice, _ := balance.FindMember("alice")
	if alice.PaidShare.Cents != 1000 {
		t.Errorf("alice paid = %d, want 1000", alice.PaidShare.Cents)
	}

	userShares, err := repo.UserShares(ctx, "bob")
	if err != nil {
		t.Fatalf("UserShares() error = %v", err)
	}
	if len(userShares) != 1 {
		t.Errorf("bob shares = %d, want 1", len(userShares))
	}
}

func TestSnapshotsAndRecurrence(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	b := core.GroupBalance{GroupID: "g1", Members: []core.MemberBalance{
		{UserID: "alice", PaidShare: core.Money{Cents: 1000}, NetBalance: core.Money{Cents: 500}},
		{UserID: "bob", OwedShare: core.Money{Cents: 500}, NetBalance: core.Money{Cents: -500}},
	}}
	if err := repo.SaveSnapshot(ctx, b, time.Now().UTC()); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	if err := repo.CreateExpense(ctx, testExpense("tmpl", "g1", 2000, core.Weekly)); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if err := repo.CreateExpense(ctx, testExpense("plain", "g1", 2000, core.Never)); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	repeating, err := repo.ListRepeating(ctx)
	if err != nil {
		t.Fatalf("ListRepeating() error = %v", err)
	}
	if len(repeating) != 1 || repeating[0].ID != "tmpl" {
		t.Errorf("repeating = %+v, want [tmpl]", repeating)
	}

	last, err := repo.LastMaterialized(ctx, "tmpl")
	if err != nil {
		t.Fatalf("LastMaterialized() error = %v", err)
	}
	if !last.IsZero() {
		t.Errorf("last = %v, want zero before first materialization", last)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.MarkMaterialized(ctx, "tmpl", at); err != nil {
		t.Fatalf("MarkMaterialized() error = %v", err)
	}
	last, err = repo.LastMaterialized(ctx, "tmpl")
	if err != nil {
		t.Fatalf("LastMaterialized() error = %v", err)
	}
	if !last.Equal(at) {
		t.Errorf("last = %v, want %v", last, at)
	}

	if err := repo.MarkMaterialized(ctx, "missing", at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("MarkMaterialized(missing) error = %v, want ErrNotFound", err)
	}
}
