// Package services provides business logic and orchestration on top of the
// store ports. Services validate input, assemble domain objects, and publish
// expense events; persistence and transport stay behind interfaces.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/store"
)

// EventPublisher publishes expense lifecycle events. The AMQP client
// satisfies it; tests use a recording double.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error
}

// CreateExpenseSpec carries the client-supplied fields of a new expense.
type CreateExpenseSpec struct {
	Cost           string              `json:"cost"`
	Description    string              `json:"description"`
	CurrencyCode   string              `json:"currencyCode"`
	GroupID        string              `json:"groupId"`
	RepeatInterval core.RepeatInterval `json:"repeatInterval"`
	User           core.User           `json:"user"`
}

// UpdateExpenseSpec is a partial patch. Nil fields keep the stored value.
// A JSON null is indistinguishable from an absent field and also keeps it.
type UpdateExpenseSpec struct {
	Cost           *string              `json:"cost"`
	Description    *string              `json:"description"`
	CurrencyCode   *string              `json:"currencyCode"`
	GroupID        *string              `json:"groupId"`
	Date           *time.Time           `json:"date"`
	RepeatInterval *core.RepeatInterval `json:"repeatInterval"`
	Users          []core.UserShare     `json:"users"`
}

// ExpenseService orchestrates expense operations across the store and AMQP.
type ExpenseService struct {
	expenses  store.ExpenseStore
	groups    store.GroupStore
	publisher EventPublisher
	now       func() time.Time
}

func NewExpenseService(expenses store.ExpenseStore, groups store.GroupStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		expenses:  expenses,
		groups:    groups,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create validates the spec, splits the cost equally across the group
// roster, and persists the expense. The payer is always part of the split
// even when the roster omits them; a group with no members yields a
// payer-only split.
func (s *ExpenseService) Create(ctx context.Context, spec CreateExpenseSpec) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(spec.Cost)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse cost: %w", err)
	}

	group, err := s.groups.GetGroup(ctx, spec.GroupID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("resolve group %q: %w", spec.GroupID, err)
	}

	roster := group.MemberIDs()
	if !containsID(roster, spec.User.ID) {
		roster = append(roster, spec.User.ID)
	}

	now := s.now().UTC()
	e := core.Expense{
		ID:             uuid.NewString(),
		Cost:           core.Money{Cents: cents},
		Description:    spec.Description,
		CurrencyCode:   spec.CurrencyCode,
		GroupID:        spec.GroupID,
		Date:           now,
		RepeatInterval: spec.RepeatInterval,
		CreatedBy:      spec.User,
		CreatedAt:      now,
		UpdatedAt:      now,
		Shares:         core.EqualShare(core.Money{Cents: cents}, spec.User.ID, roster),
	}
	if e.RepeatInterval == "" {
		e.RepeatInterval = core.Never
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.expenses.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, e, amqp.ActionCreated)
	return e, nil
}

// Get returns the expense, soft-deleted or not.
func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.expenses.GetExpense(ctx, id)
}

// List returns the group's non-deleted expenses, paginated.
func (s *ExpenseService) List(ctx context.Context, req store.ListExpensesRequest) ([]core.Expense, error) {
	if strings.TrimSpace(req.GroupID) == "" {
		return nil, core.ErrEmptyGroupID
	}
	return s.expenses.ListExpenses(ctx, req)
}

// Update applies a partial patch. A cost change recomputes the equal split
// over the participant set frozen in the stored shares; an explicit users
// patch replaces the shares verbatim. A group change moves the expense
// without touching its shares. UpdatedAt is always refreshed.
func (s *ExpenseService) Update(ctx context.Context, id string, patch UpdateExpenseSpec) (core.Expense, error) {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	if patch.Cost != nil {
		cents, err := core.ParseDecimalToCents(*patch.Cost)
		if err != nil {
			return core.Expense{}, fmt.Errorf("parse cost: %w", err)
		}
		e.Cost = core.Money{Cents: cents}
		e.Shares = core.EqualShare(e.Cost, e.CreatedBy.ID, shareUserIDs(e.Shares))
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.CurrencyCode != nil {
		e.CurrencyCode = *patch.CurrencyCode
	}
	if patch.GroupID != nil {
		if _, err := s.groups.GetGroup(ctx, *patch.GroupID); err != nil {
			return core.Expense{}, fmt.Errorf("resolve group %q: %w", *patch.GroupID, err)
		}
		e.GroupID = *patch.GroupID
	}
	if patch.Date != nil {
		e.Date = patch.Date.UTC()
	}
	if patch.RepeatInterval != nil {
		e.RepeatInterval = *patch.RepeatInterval
	}
	if patch.Users != nil {
		e.Shares = patch.Users
	}
	e.UpdatedAt = s.now().UTC()

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.expenses.ReplaceExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, e, amqp.ActionUpdated)
	return e, nil
}

// Delete soft deletes an expense. Deleting twice is a no-op.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if e.Deleted() {
		return nil
	}

	now := s.now().UTC()
	if err := s.expenses.SetExpenseDeleted(ctx, id, &now); err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}

	s.publish(ctx, e, amqp.ActionDeleted)
	return nil
}

// Restore clears the soft-delete marker. Restoring a live expense is a no-op.
func (s *ExpenseService) Restore(ctx context.Context, id string) (core.Expense, error) {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if !e.Deleted() {
		return e, nil
	}

	if err := s.expenses.SetExpenseDeleted(ctx, id, nil); err != nil {
		return core.Expense{}, fmt.Errorf("restore expense: %w", err)
	}
	e.DeletedAt = nil

	s.publish(ctx, e, amqp.ActionRestored)
	return e, nil
}

// publish sends an expense event without failing the request. The store is
// the source of truth; a lost event is picked up by the worker's periodic
// pass.
func (s *ExpenseService) publish(ctx context.Context, e core.Expense, action string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping expense event",
			"expense_id", e.ID, "action", action)
		return
	}

	msg := amqp.NewExpenseEventMessage(e.ID, e.GroupID, action)
	if err := s.publisher.PublishExpenseEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", e.ID, "action", action, "error", err)
	}
}

// IsValidationError reports whether the error comes from input validation
// rather than from the store or infrastructure.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrAmountRange,
		core.ErrEmptyGroupID,
		core.ErrEmptyUserID,
		core.ErrEmptyGroupName,
		core.ErrBadInterval,
		core.ErrDescriptionTooLong,
		core.ErrGroupNameTooLong,
		core.ErrDuplicateMember,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func shareUserIDs(shares []core.UserShare) []string {
	ids := make([]string, 0, len(shares))
	for _, sh := range shares {
		ids = append(ids, sh.UserID)
	}
	return ids
}
