// Package worker keeps balance snapshots, the ledger mirror, and repeating
// expenses up to date in the background.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/ledger"
	"divvy/internal/services"
	"divvy/internal/store"
)

// EventConsumer delivers expense events to a handler. The AMQP client
// satisfies it.
type EventConsumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(*amqp.ExpenseEventMessage) error) error
}

// BalanceWorker recomputes group balances when expense events arrive and on
// a periodic pass that also covers lost messages and repeating expenses.
type BalanceWorker struct {
	shares    store.ShareReader
	snapshots store.SnapshotWriter
	groups    store.GroupStore
	recurring *services.RecurringProcessor
	mirror    ledger.Mirror
	batchSize int
	now       func() time.Time
}

func NewBalanceWorker(shares store.ShareReader, snapshots store.SnapshotWriter, groups store.GroupStore, recurring *services.RecurringProcessor, mirror ledger.Mirror, batchSize int) *BalanceWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BalanceWorker{
		shares:    shares,
		snapshots: snapshots,
		groups:    groups,
		recurring: recurring,
		mirror:    mirror,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// HandleExpenseEvent re-snapshots the group an event points at. Returning
// an error makes the consumer requeue the message.
func (w *BalanceWorker) HandleExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	slog.InfoContext(ctx, "Processing expense event",
		"expense_id", msg.ExpenseID, "group_id", msg.GroupID, "action", msg.Action)
	return w.SnapshotGroup(ctx, msg.GroupID)
}

// SnapshotGroup aggregates the group's live shares, stores a snapshot, and
// mirrors the balance when a ledger is configured.
func (w *BalanceWorker) SnapshotGroup(ctx context.Context, groupID string) error {
	shares, err := w.shares.GroupShares(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load group shares: %w", err)
	}

	balance := core.AggregateShares(groupID, shares)
	if err := w.snapshots.SaveSnapshot(ctx, balance, w.now().UTC()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if w.mirror != nil {
		if err := w.mirror.MirrorGroupBalance(ctx, balance); err != nil {
			// The snapshot is stored; the next pass retries the mirror.
			slog.ErrorContext(ctx, "Failed to mirror group balance",
				"group_id", groupID, "error", err)
		}
	}

	return nil
}

// RunPass snapshots every group and materializes due repeating expenses.
// Groups are processed concurrently, at most batchSize at a time.
func (w *BalanceWorker) RunPass(ctx context.Context) error {
	ids, err := w.groups.ListGroupIDs(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.batchSize)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := w.SnapshotGroup(gctx, id); err != nil {
				slog.ErrorContext(gctx, "Failed to snapshot group",
					"group_id", id, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if w.recurring != nil {
		if _, err := w.recurring.ProcessDue(ctx, w.now()); err != nil {
			slog.ErrorContext(ctx, "Repeating expense pass failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "Worker pass complete", "groups", len(ids))
	return nil
}

// Run consumes expense events and runs periodic passes until the context is
// cancelled. A nil consumer leaves only the periodic path active.
func (w *BalanceWorker) Run(ctx context.Context, consumer EventConsumer, interval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeExpenseEvents(gctx, func(msg *amqp.ExpenseEventMessage) error {
				return w.HandleExpenseEvent(gctx, msg)
			})
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("consume expense events: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := w.RunPass(gctx); err != nil {
					slog.ErrorContext(gctx, "Worker pass failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
