package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"saldo/internal/core"
	"saldo/internal/settlement"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "saldo.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testSettlement() *core.Settlement {
	return &core.Settlement{
		HouseholdID: "h1",
		Month:       core.Month{Year: 2026, Month: time.March},
		Total:       core.Money{Cents: 30000},
		Balances: []core.MemberBalance{
			{MemberID: "alice", Paid: core.Money{Cents: 15000}, Owed: core.Money{Cents: 10000}, Balance: core.Money{Cents: 5000}},
			{MemberID: "bob", Paid: core.Money{Cents: 0}, Owed: core.Money{Cents: 10000}, Balance: core.Money{Cents: -10000}},
			{MemberID: "carol", Paid: core.Money{Cents: 15000}, Owed: core.Money{Cents: 10000}, Balance: core.Money{Cents: 5000}},
		},
		Transfers: []core.BalanceTransfer{
			{From: "bob", To: "alice", Amount: core.Money{Cents: 5000}},
			{From: "bob", To: "carol", Amount: core.Money{Cents: 5000}},
		},
	}
}

func TestUpsertAndGetByMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := testSettlement()
	if err := repo.Upsert(ctx, st); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if st.ID == "" {
		t.Error("Upsert() did not assign an ID")
	}
	if st.SyncVersion != 1 {
		t.Errorf("SyncVersion = %d, want 1", st.SyncVersion)
	}

	got, err := repo.GetByMonth(ctx, "h1", st.Month)
	if err != nil {
		t.Fatalf("GetByMonth() error = %v", err)
	}
	if got.Total.Cents != 30000 {
		t.Errorf("Total = %d cents, want 30000", got.Total.Cents)
	}
	if len(got.Balances) != 3 {
		t.Fatalf("len(Balances) = %d, want 3", len(got.Balances))
	}
	if got.Balances[0].MemberID != "alice" || got.Balances[0].Balance.Cents != 5000 {
		t.Errorf("Balances[0] = %+v, want alice +5000", got.Balances[0])
	}
	if len(got.Transfers) != 2 {
		t.Fatalf("len(Transfers) = %d, want 2", len(got.Transfers))
	}
	if got.Transfers[0].From != "bob" || got.Transfers[0].To != "alice" {
		t.Errorf("Transfers[0] = %+v, want bob->alice", got.Transfers[0])
	}
}

func TestUpsertReplacesExistingMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := testSettlement()
	if err := repo.Upsert(ctx, st); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	firstID := st.ID

	recalc := testSettlement()
	recalc.Total = core.Money{Cents: 36000}
	recalc.Transfers = recalc.Transfers[:1]
	if err := repo.Upsert(ctx, recalc); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	if recalc.ID != firstID {
		t.Errorf("recalculation changed ID from %s to %s", firstID, recalc.ID)
	}
	if recalc.SyncVersion != 2 {
		t.Errorf("SyncVersion = %d, want 2", recalc.SyncVersion)
	}

	list, err := repo.ListByHousehold(ctx, "h1")
	if err != nil {
		t.Fatalf("ListByHousehold() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if list[0].Total.Cents != 36000 {
		t.Errorf("Total = %d cents, want 36000", list[0].Total.Cents)
	}
	if len(list[0].Transfers) != 1 {
		t.Errorf("len(Transfers) = %d, want 1 after replace", len(list[0].Transfers))
	}
}

func TestGetByMonthNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByMonth(context.Background(), "h1", core.Month{Year: 2026, Month: time.January})
	if !errors.Is(err, settlement.ErrNotFound) {
		t.Errorf("GetByMonth() error = %v, want ErrNotFound", err)
	}
}

func TestCompletionFieldsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := testSettlement()
	st.IsSettled = true
	st.CompletedAt = time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Upsert(ctx, st); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByMonth(ctx, "h1", st.Month)
	if err != nil {
		t.Fatalf("GetByMonth() error = %v", err)
	}
	if !got.IsSettled {
		t.Error("IsSettled = false, want true")
	}
	if !got.CompletedAt.Equal(st.CompletedAt) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, st.CompletedAt)
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := testSettlement()
	if err := repo.Upsert(ctx, st); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].ID != st.ID || pending[0].HouseholdID != "h1" {
		t.Errorf("pending[0] = %+v, want settlement %s", pending[0], st.ID)
	}
	if pending[0].Month != st.Month {
		t.Errorf("pending month = %v, want %v", pending[0].Month, st.Month)
	}

	if err := repo.MarkSyncError(ctx, st.ID); err != nil {
		t.Fatalf("MarkSyncError() error = %v", err)
	}
	pending, err = repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync() after error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("len(pending) = %d after sync error, want 1 (still pending)", len(pending))
	}

	if err := repo.MarkSynced(ctx, st.ID); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	pending, err = repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync() after synced = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d after MarkSynced, want 0", len(pending))
	}

	if err := repo.MarkSynced(ctx, "missing"); !errors.Is(err, settlement.ErrNotFound) {
		t.Errorf("MarkSynced(missing) error = %v, want ErrNotFound", err)
	}
}
