package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/store"
)

// RecurringProcessor materializes new expense instances from repeating
// templates. The worker drives it once per pass.
type RecurringProcessor struct {
	recurrences store.RecurrenceStore
	expenses    store.ExpenseStore
	publisher   EventPublisher
}

func NewRecurringProcessor(recurrences store.RecurrenceStore, expenses store.ExpenseStore, publisher EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{
		recurrences: recurrences,
		expenses:    expenses,
		publisher:   publisher,
	}
}

// ProcessDue walks every repeating expense and materializes the ones whose
// interval has elapsed. One failing template does not stop the pass.
// Returns the number of expenses created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	templates, err := p.recurrences.ListRepeating(ctx)
	if err != nil {
		return 0, fmt.Errorf("list repeating expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing repeating expenses",
		"total", len(templates), "processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, tmpl := range templates {
		checker, err := GetDuenessChecker(tmpl.RepeatInterval)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping repeating expense",
				"expense_id", tmpl.ID, "error", err)
			continue
		}

		lastExecution, err := p.recurrences.LastMaterialized(ctx, tmpl.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load last materialization",
				"expense_id", tmpl.ID, "error", err)
			continue
		}
		// A template that never materialized falls back to its own date,
		// so a freshly created weekly expense waits a week.
		if lastExecution.IsZero() {
			lastExecution = tmpl.Date
		}

		if !checker.IsDue(lastExecution, now, tmpl.Date) {
			continue
		}

		instance := p.materialize(tmpl, now)
		if err := p.expenses.CreateExpense(ctx, instance); err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from repeating template",
				"template_id", tmpl.ID, "error", err)
			continue
		}

		if err := p.recurrences.MarkMaterialized(ctx, tmpl.ID, now); err != nil {
			slog.ErrorContext(ctx, "Failed to record materialization",
				"template_id", tmpl.ID, "error", err)
			// The instance exists; worst case the next pass creates a
			// duplicate rather than losing the expense.
		}

		p.publishCreated(ctx, instance)
		processed++
		slog.InfoContext(ctx, "Created expense from repeating template",
			"template_id", tmpl.ID, "expense_id", instance.ID,
			"interval", tmpl.RepeatInterval, "amount_cents", instance.Cost.Cents)
	}

	slog.InfoContext(ctx, "Repeating expense pass complete",
		"processed", processed, "total_checked", len(templates))
	return processed, nil
}

// materialize clones a template as a one-off expense dated now, with shares
// recomputed over the template's participant set.
func (p *RecurringProcessor) materialize(tmpl core.Expense, now time.Time) core.Expense {
	now = now.UTC()
	return core.Expense{
		ID:             uuid.NewString(),
		Cost:           tmpl.Cost,
		Description:    tmpl.Description,
		CurrencyCode:   tmpl.CurrencyCode,
		GroupID:        tmpl.GroupID,
		Date:           now,
		RepeatInterval: core.Never,
		CreatedBy:      tmpl.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		Shares:         core.EqualShare(tmpl.Cost, tmpl.CreatedBy.ID, shareUserIDs(tmpl.Shares)),
	}
}

func (p *RecurringProcessor) publishCreated(ctx context.Context, e core.Expense) {
	if p.publisher == nil {
		return
	}
	msg := amqp.NewExpenseEventMessage(e.ID, e.GroupID, amqp.ActionCreated)
	if err := p.publisher.PublishExpenseEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", e.ID, "error", err)
	}
}
