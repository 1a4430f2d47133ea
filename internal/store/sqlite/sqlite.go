// Package sqlite persists groups, expenses, shares and balance snapshots
// in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"divvy/internal/core"
	"divvy/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// Ensure interface conformance
var (
	_ store.ExpenseStore    = (*Repository)(nil)
	_ store.GroupStore      = (*Repository)(nil)
	_ store.ShareReader     = (*Repository)(nil)
	_ store.SnapshotWriter  = (*Repository)(nil)
	_ store.RecurrenceStore = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection, for readiness probes.
func (r *Repository) Ping() error {
	return r.db.Ping()
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, cost_cents, description, currency_code, group_id,
			date, repeat_interval, created_by_id, created_by_name,
			created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Cost.Cents, e.Description, e.CurrencyCode, e.GroupID,
		e.Date, intervalOrNever(e.RepeatInterval), e.CreatedBy.ID, e.CreatedBy.FirstName,
		e.CreatedAt, e.UpdatedAt, nullTime(e.DeletedAt))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	if err := insertShares(ctx, tx, e.ID, e.Shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"group_id", e.GroupID,
		"cost_cents", e.Cost.Cents,
		"shares", len(e.Shares))
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, expenseColumns+` WHERE id = ?`, id))
	if err != nil {
		return core.Expense{}, err
	}
	e.Shares, err = r.expenseShares(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, req store.ListExpensesRequest) ([]core.Expense, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	query := expenseColumns + ` WHERE group_id = ?`
	if !req.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY created_at, id LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, req.GroupID, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	for i := range out {
		if out[i].Shares, err = r.expenseShares(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repository) ReplaceExpense(ctx context.Context, e core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET cost_cents = ?, description = ?, currency_code = ?, group_id = ?,
			date = ?, repeat_interval = ?, updated_at = ?, deleted_at = ?
		WHERE id = ?`,
		e.Cost.Cents, e.Description, e.CurrencyCode, e.GroupID,
		e.Date, intervalOrNever(e.RepeatInterval), e.UpdatedAt, nullTime(e.DeletedAt),
		e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = ?`, e.ID); err != nil {
		return fmt.Errorf("clear shares: %w", err)
	}
	if err := insertShares(ctx, tx, e.ID, e.Shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repository) SetExpenseDeleted(ctx context.Context, id string, deletedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ? WHERE id = ?`, nullTime(deletedAt), id)
	if err != nil {
		return fmt.Errorf("set deleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateGroup(ctx context.Context, g core.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, group_type, simplify_by_default, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.GroupType, g.SimplifyByDefault, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	for i, m := range g.Members {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id, first_name, email, position)
			VALUES (?, ?, ?, ?, ?)`,
			g.ID, m.ID, m.FirstName, m.Email, i)
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Group saved", "id", g.ID, "name", g.Name, "members", len(g.Members))
	return nil
}

func (r *Repository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	var g core.Group
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, group_type, simplify_by_default, updated_at
		FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.GroupType, &g.SimplifyByDefault, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, store.ErrNotFound
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	g.Members, err = r.groupMembers(ctx, id)
	if err != nil {
		return core.Group{}, err
	}
	return g, nil
}

func (r *Repository) ListGroupsForUser(ctx context.Context, userID string) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups for user: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups for user: %w", err)
	}

	var out []core.Group
	for _, id := range ids {
		g, err := r.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *Repository) ListGroupIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list group ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) GroupShares(ctx context.Context, groupID string) ([]core.UserShare, error) {
	return r.queryShares(ctx, `
		SELECT s.user_id, s.paid_cents, s.owed_cents, s.net_cents
		FROM expense_shares s
		JOIN expenses e ON e.id = s.expense_id
		WHERE e.group_id = ? AND e.deleted_at IS NULL
		ORDER BY e.created_at, s.position`, groupID)
}

func (r *Repository) UserShares(ctx context.Context, userID string) ([]core.UserShare, error) {
	return r.queryShares(ctx, `
		SELECT s.user_id, s.paid_cents, s.owed_cents, s.net_cents
		FROM expense_shares s
		JOIN expenses e ON e.id = s.expense_id
		WHERE s.user_id = ? AND e.deleted_at IS NULL
		ORDER BY e.created_at, s.position`, userID)
}

func (r *Repository) SaveSnapshot(ctx context.Context, b core.GroupBalance, takenAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range b.Members {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO balance_snapshots (group_id, user_id, paid_cents, owed_cents, net_cents, taken_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			b.GroupID, m.UserID, m.PaidShare.Cents, m.OwedShare.Cents, m.NetBalance.Cents, takenAt)
		if err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}
	return tx.Commit()
}

func (r *Repository) ListRepeating(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		expenseColumns+` WHERE repeat_interval != 'never' AND deleted_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list repeating: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list repeating: %w", err)
	}
	for i := range out {
		if out[i].Shares, err = r.expenseShares(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repository) LastMaterialized(ctx context.Context, expenseID string) (time.Time, error) {
	var t sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT last_materialized_at FROM expenses WHERE id = ?`, expenseID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last materialized: %w", err)
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

func (r *Repository) MarkMaterialized(ctx context.Context, expenseID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET last_materialized_at = ? WHERE id = ?`, at, expenseID)
	if err != nil {
		return fmt.Errorf("mark materialized: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

const expenseColumns = `
	SELECT id, cost_cents, description, currency_code, group_id, date,
		repeat_interval, created_by_id, created_by_name,
		created_at, updated_at, deleted_at
	FROM expenses`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		interval string
		deleted  sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Cost.Cents, &e.Description, &e.CurrencyCode, &e.GroupID,
		&e.Date, &interval, &e.CreatedBy.ID, &e.CreatedBy.FirstName,
		&e.CreatedAt, &e.UpdatedAt, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, store.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.RepeatInterval = core.RepeatInterval(interval)
	if deleted.Valid {
		t := deleted.Time
		e.DeletedAt = &t
	}
	return e, nil
}

func (r *Repository) groupMembers(ctx context.Context, groupID string) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, first_name, email
		FROM group_members WHERE group_id = ? ORDER BY position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.Email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repository) expenseShares(ctx context.Context, expenseID string) ([]core.UserShare, error) {
	return r.queryShares(ctx, `
		SELECT user_id, paid_cents, owed_cents, net_cents
		FROM expense_shares WHERE expense_id = ? ORDER BY position`, expenseID)
}

func (r *Repository) queryShares(ctx context.Context, query string, arg any) ([]core.UserShare, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()

	var out []core.UserShare
	for rows.Next() {
		var s core.UserShare
		if err := rows.Scan(&s.UserID, &s.PaidShare.Cents, &s.OwedShare.Cents, &s.NetBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func insertShares(ctx context.Context, tx *sql.Tx, expenseID string, shares []core.UserShare) error {
	for i, s := range shares {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expense_shares (expense_id, user_id, paid_cents, owed_cents, net_cents, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			expenseID, s.UserID, s.PaidShare.Cents, s.OwedShare.Cents, s.NetBalance.Cents, i)
		if err != nil {
			return fmt.Errorf("insert share %s: %w", s.UserID, err)
		}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func intervalOrNever(r core.RepeatInterval) string {
	if r == "" {
		return string(core.Never)
	}
	return string(r)
}
