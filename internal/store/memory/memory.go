// Package memory is the in-process store. It backs tests and the default
// DATA_BACKEND=memory configuration.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"divvy/internal/core"
	"divvy/internal/store"
)

type Store struct {
	mu           sync.Mutex
	expenses     map[string]core.Expense
	expenseOrder []string
	groups       map[string]core.Group
	groupOrder   []string
	materialized map[string]time.Time
	snapshots    []Snapshot
}

// Ensure interface conformance
var (
	_ store.ExpenseStore    = (*Store)(nil)
	_ store.GroupStore      = (*Store)(nil)
	_ store.ShareReader     = (*Store)(nil)
	_ store.SnapshotWriter  = (*Store)(nil)
	_ store.RecurrenceStore = (*Store)(nil)
)

// Snapshot is a stored balance snapshot, kept for inspection in tests.
type Snapshot struct {
	Balance core.GroupBalance
	TakenAt time.Time
}

func New() *Store {
	return &Store{
		expenses:     make(map[string]core.Expense),
		groups:       make(map[string]core.Group),
		materialized: make(map[string]time.Time),
	}
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.expenses[e.ID]; !exists {
		s.expenseOrder = append(s.expenseOrder, e.ID)
	}
	s.expenses[e.ID] = cloneExpense(e)
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	return cloneExpense(e), nil
}

func (s *Store) ListExpenses(_ context.Context, req store.ListExpensesRequest) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := req.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	var out []core.Expense
	skipped := int64(0)
	for _, id := range s.expenseOrder {
		e := s.expenses[id]
		if req.GroupID != "" && e.GroupID != req.GroupID {
			continue
		}
		if e.Deleted() && !req.IncludeDeleted {
			continue
		}
		if skipped < req.Offset {
			skipped++
			continue
		}
		out = append(out, cloneExpense(e))
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ReplaceExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return store.ErrNotFound
	}
	s.expenses[e.ID] = cloneExpense(e)
	return nil
}

func (s *Store) SetExpenseDeleted(_ context.Context, id string, deletedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return store.ErrNotFound
	}
	if deletedAt != nil {
		t := *deletedAt
		e.DeletedAt = &t
	} else {
		e.DeletedAt = nil
	}
	s.expenses[id] = e
	return nil
}

func (s *Store) CreateGroup(_ context.Context, g core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[g.ID]; !exists {
		s.groupOrder = append(s.groupOrder, g.ID)
	}
	s.groups[g.ID] = cloneGroup(g)
	return nil
}

func (s *Store) GetGroup(_ context.Context, id string) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, store.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (s *Store) ListGroupsForUser(_ context.Context, userID string) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Group
	for _, id := range s.groupOrder {
		g := s.groups[id]
		for _, m := range g.Members {
			if m.ID == userID {
				out = append(out, cloneGroup(g))
				break
			}
		}
	}
	return out, nil
}

func (s *Store) ListGroupIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string(nil), s.groupOrder...)
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) GroupShares(_ context.Context, groupID string) ([]core.UserShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.UserShare
	for _, id := range s.expenseOrder {
		e := s.expenses[id]
		if e.GroupID != groupID || e.Deleted() {
			continue
		}
		out = append(out, append([]core.UserShare(nil), e.Shares...)...)
	}
	return out, nil
}

func (s *Store) UserShares(_ context.Context, userID string) ([]core.UserShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.UserShare
	for _, id := range s.expenseOrder {
		e := s.expenses[id]
		if e.Deleted() {
			continue
		}
		for _, sh := range e.Shares {
			if sh.UserID == userID {
				out = append(out, sh)
			}
		}
	}
	return out, nil
}

func (s *Store) SaveSnapshot(_ context.Context, b core.GroupBalance, takenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, Snapshot{Balance: b, TakenAt: takenAt})
	return nil
}

// Snapshots returns a copy of all stored snapshots, oldest first.
func (s *Store) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.snapshots...)
}

func (s *Store) ListRepeating(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, id := range s.expenseOrder {
		e := s.expenses[id]
		if !e.Deleted() && e.RepeatInterval.Repeats() {
			out = append(out, cloneExpense(e))
		}
	}
	return out, nil
}

func (s *Store) LastMaterialized(_ context.Context, expenseID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materialized[expenseID], nil
}

func (s *Store) MarkMaterialized(_ context.Context, expenseID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materialized[expenseID] = at
	return nil
}

func (s *Store) Close() error { return nil }

func cloneExpense(e core.Expense) core.Expense {
	e.Shares = append([]core.UserShare(nil), e.Shares...)
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		e.DeletedAt = &t
	}
	return e
}

func cloneGroup(g core.Group) core.Group {
	g.Members = append([]core.User(nil), g.Members...)
	return g
}
