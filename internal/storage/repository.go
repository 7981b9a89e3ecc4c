// Package storage provides the SQLite-backed settlement store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"saldo/internal/core"
	"saldo/internal/settlement"
)

var _ settlement.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetByMonth implements settlement.Store.
func (r *SQLiteRepository) GetByMonth(ctx context.Context, householdID string, month core.Month) (*core.Settlement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, household_id, month, total_cents, is_settled, completed_at,
		        sync_version, created_at, updated_at
		 FROM settlements WHERE household_id = ? AND month = ?`,
		householdID, month.String(),
	)
	st, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settlement.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}

	if err := r.loadChildren(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Upsert implements settlement.Store: one row per (household, month), the
// sync version incremented on every write and pending_sync raised for the
// export worker.
func (r *SQLiteRepository) Upsert(ctx context.Context, st *core.Settlement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var existingID string
	var existingVersion, createdAt int64
	err = tx.QueryRowContext(ctx,
		"SELECT id, sync_version, created_at FROM settlements WHERE household_id = ? AND month = ?",
		st.HouseholdID, st.Month.String(),
	).Scan(&existingID, &existingVersion, &createdAt)

	switch {
	case err == nil:
		st.ID = existingID
		st.SyncVersion = existingVersion + 1
		st.CreatedAt = time.Unix(createdAt, 0).UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE settlements
			 SET total_cents = ?, is_settled = ?, completed_at = ?,
			     sync_version = ?, pending_sync = 1, sync_error = 0, updated_at = ?
			 WHERE id = ?`,
			st.Total.Cents, boolToInt(st.IsSettled), completedAtValue(st.CompletedAt),
			st.SyncVersion, now.Unix(), st.ID,
		)
		if err != nil {
			return fmt.Errorf("update settlement: %w", err)
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM member_balances WHERE settlement_id = ?", st.ID); err != nil {
			return fmt.Errorf("clear member balances: %w", err)
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM transfers WHERE settlement_id = ?", st.ID); err != nil {
			return fmt.Errorf("clear transfers: %w", err)
		}

	case errors.Is(err, sql.ErrNoRows):
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		st.SyncVersion = 1
		st.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO settlements
			 (id, household_id, month, total_cents, is_settled, completed_at,
			  sync_version, pending_sync, sync_error, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)`,
			st.ID, st.HouseholdID, st.Month.String(), st.Total.Cents,
			boolToInt(st.IsSettled), completedAtValue(st.CompletedAt),
			st.SyncVersion, now.Unix(), now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}

	default:
		return fmt.Errorf("lookup settlement: %w", err)
	}

	st.UpdatedAt = now

	for i, b := range st.Balances {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO member_balances
			 (settlement_id, position, member_id, paid_cents, owed_cents, balance_cents)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			st.ID, i, b.MemberID, b.Paid.Cents, b.Owed.Cents, b.Balance.Cents,
		)
		if err != nil {
			return fmt.Errorf("insert member balance: %w", err)
		}
	}
	for i, t := range st.Transfers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transfers
			 (settlement_id, position, from_member, to_member, amount_cents)
			 VALUES (?, ?, ?, ?, ?)`,
			st.ID, i, t.From, t.To, t.Amount.Cents,
		)
		if err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Settlement saved",
		"id", st.ID,
		"household", st.HouseholdID,
		"month", st.Month.String(),
		"total_cents", st.Total.Cents,
		"sync_version", st.SyncVersion)

	return nil
}

// ListByHousehold implements settlement.Store.
func (r *SQLiteRepository) ListByHousehold(ctx context.Context, householdID string) ([]core.Settlement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, household_id, month, total_cents, is_settled, completed_at,
		        sync_version, created_at, updated_at
		 FROM settlements WHERE household_id = ? ORDER BY month DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var out []core.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}

	for i := range out {
		if err := r.loadChildren(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetPendingSync implements settlement.Store.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]settlement.PendingSettlement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, household_id, month, sync_version
		 FROM settlements WHERE pending_sync = 1
		 ORDER BY updated_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending settlements: %w", err)
	}
	defer rows.Close()

	var out []settlement.PendingSettlement
	for rows.Next() {
		var p settlement.PendingSettlement
		var monthStr string
		if err := rows.Scan(&p.ID, &p.HouseholdID, &monthStr, &p.SyncVersion); err != nil {
			return nil, fmt.Errorf("scan pending settlement: %w", err)
		}
		if p.Month, err = core.ParseMonth(monthStr); err != nil {
			return nil, fmt.Errorf("parse stored month %q: %w", monthStr, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending settlements: %w", err)
	}
	return out, nil
}

// MarkSynced implements settlement.Store.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE settlements SET pending_sync = 0, sync_error = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark settlement synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return settlement.ErrNotFound
	}
	slog.InfoContext(ctx, "Settlement marked as synced", "id", id)
	return nil
}

// MarkSyncError implements settlement.Store. The row stays pending so the
// periodic pass retries it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE settlements SET sync_error = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark settlement sync error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return settlement.ErrNotFound
	}
	slog.WarnContext(ctx, "Settlement marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*core.Settlement, error) {
	var st core.Settlement
	var monthStr string
	var isSettled int
	var completedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&st.ID, &st.HouseholdID, &monthStr, &st.Total.Cents,
		&isSettled, &completedAt, &st.SyncVersion, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if st.Month, err = core.ParseMonth(monthStr); err != nil {
		return nil, fmt.Errorf("parse stored month %q: %w", monthStr, err)
	}
	st.IsSettled = isSettled != 0
	if completedAt.Valid {
		st.CompletedAt = time.Unix(completedAt.Int64, 0).UTC()
	}
	st.CreatedAt = time.Unix(createdAt, 0).UTC()
	st.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &st, nil
}

func (r *SQLiteRepository) loadChildren(ctx context.Context, st *core.Settlement) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id, paid_cents, owed_cents, balance_cents
		 FROM member_balances WHERE settlement_id = ? ORDER BY position`,
		st.ID,
	)
	if err != nil {
		return fmt.Errorf("get member balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b core.MemberBalance
		if err := rows.Scan(&b.MemberID, &b.Paid.Cents, &b.Owed.Cents, &b.Balance.Cents); err != nil {
			return fmt.Errorf("scan member balance: %w", err)
		}
		st.Balances = append(st.Balances, b)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate member balances: %w", err)
	}

	trows, err := r.db.QueryContext(ctx,
		`SELECT from_member, to_member, amount_cents
		 FROM transfers WHERE settlement_id = ? ORDER BY position`,
		st.ID,
	)
	if err != nil {
		return fmt.Errorf("get transfers: %w", err)
	}
	defer trows.Close()

	for trows.Next() {
		var t core.BalanceTransfer
		if err := trows.Scan(&t.From, &t.To, &t.Amount.Cents); err != nil {
			return fmt.Errorf("scan transfer: %w", err)
		}
		st.Transfers = append(st.Transfers, t)
	}
	if err := trows.Err(); err != nil {
		return fmt.Errorf("iterate transfers: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func completedAtValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
