// Package store defines the persistence ports of the service and their
// shared error contract. Adapters live in the subpackages memory and sqlite.
package store

import (
	"context"
	"errors"
	"time"

	"divvy/internal/core"
)

// ErrNotFound is returned when a referenced expense or group does not exist.
var ErrNotFound = errors.New("not found")

// ListExpensesRequest filters an expense listing. Soft-deleted expenses are
// excluded unless IncludeDeleted is set. A zero Limit means the default of 20.
type ListExpensesRequest struct {
	GroupID        string
	Limit          int64
	Offset         int64
	IncludeDeleted bool
}

// DefaultListLimit caps expense listings when the caller provides no limit.
const DefaultListLimit = 20

type (
	ExpenseStore interface {
		// CreateExpense writes the expense and its shares in one atomic step.
		CreateExpense(ctx context.Context, e core.Expense) error

		GetExpense(ctx context.Context, id string) (core.Expense, error)

		ListExpenses(ctx context.Context, req ListExpensesRequest) ([]core.Expense, error)

		// ReplaceExpense overwrites the stored expense, shares included,
		// keyed by e.ID. Returns ErrNotFound for unknown ids.
		ReplaceExpense(ctx context.Context, e core.Expense) error

		// SetExpenseDeleted sets or clears the soft-delete marker.
		SetExpenseDeleted(ctx context.Context, id string, deletedAt *time.Time) error
	}

	GroupStore interface {
		CreateGroup(ctx context.Context, g core.Group) error
		GetGroup(ctx context.Context, id string) (core.Group, error)
		ListGroupsForUser(ctx context.Context, userID string) ([]core.Group, error)
		ListGroupIDs(ctx context.Context) ([]string, error)
	}

	// ShareReader feeds the balance aggregator. Both methods skip shares of
	// soft-deleted expenses.
	ShareReader interface {
		GroupShares(ctx context.Context, groupID string) ([]core.UserShare, error)
		UserShares(ctx context.Context, userID string) ([]core.UserShare, error)
	}

	// SnapshotWriter persists worker-computed balance snapshots.
	SnapshotWriter interface {
		SaveSnapshot(ctx context.Context, b core.GroupBalance, takenAt time.Time) error
	}

	// RecurrenceStore tracks repeating expenses and their materializations.
	RecurrenceStore interface {
		// ListRepeating returns non-deleted expenses whose interval repeats.
		ListRepeating(ctx context.Context) ([]core.Expense, error)
		LastMaterialized(ctx context.Context, expenseID string) (time.Time, error)
		MarkMaterialized(ctx context.Context, expenseID string, at time.Time) error
	}
)
