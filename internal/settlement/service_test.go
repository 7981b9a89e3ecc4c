package settlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"saldo/internal/core"
	hhmem "saldo/internal/household/memory"
	"saldo/internal/settlement"
	stmem "saldo/internal/settlement/memory"
)

type recordingPublisher struct {
	published []string // "household/month@version"
}

func (p *recordingPublisher) PublishSettlementSync(_ context.Context, s *core.Settlement) error {
	p.published = append(p.published, s.HouseholdID+"/"+s.Month.String())
	return nil
}

func seedHousehold(t *testing.T) *hhmem.Store {
	t.Helper()
	hh := hhmem.New()
	hh.AddMember("h1", core.Member{ID: "a", Name: "Alice"})
	hh.AddMember("h1", core.Member{ID: "b", Name: "Bob"})
	hh.AddMember("h1", core.Member{ID: "c", Name: "Carla"})
	hh.AddExpense("h1", core.Expense{
		ID: "e1", Amount: core.Money{Cents: 15000}, PaidBy: "a",
		OccurredAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	hh.AddExpense("h1", core.Expense{
		ID: "e2", Amount: core.Money{Cents: 15000}, PaidBy: "c",
		OccurredAt: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	return hh
}

func march(t *testing.T) core.Month {
	t.Helper()
	m, err := core.ParseMonth("2026-03")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestGetMonthSettlementComputesAndPersists(t *testing.T) {
	hh := seedHousehold(t)
	store := stmem.New()
	pub := &recordingPublisher{}
	svc := settlement.NewService(store, hh, hh, hh, pub)
	ctx := context.Background()

	st, err := svc.GetMonthSettlement(ctx, "h1", march(t))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if st.Total.Cents != 30000 {
		t.Fatalf("total: expected 30000, got %d", st.Total.Cents)
	}
	if st.ID == "" || st.SyncVersion != 1 {
		t.Fatalf("expected stored record with version 1, got id=%q version=%d", st.ID, st.SyncVersion)
	}
	if len(st.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %+v", st.Transfers)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 sync message, got %d", len(pub.published))
	}

	stored, err := store.GetByMonth(ctx, "h1", march(t))
	if err != nil {
		t.Fatalf("expected stored record, got %v", err)
	}
	if stored.ID != st.ID {
		t.Fatalf("stored id %q != returned id %q", stored.ID, st.ID)
	}
}

// Two saves for the same month keep one record; the second write wins and the
// version increments.
func TestGetMonthSettlementUpsert(t *testing.T) {
	hh := seedHousehold(t)
	store := stmem.New()
	svc := settlement.NewService(store, hh, hh, hh, nil)
	ctx := context.Background()

	first, err := svc.GetMonthSettlement(ctx, "h1", march(t))
	if err != nil {
		t.Fatal(err)
	}

	// New expense arrives; recalculation overwrites the stored record.
	hh.AddExpense("h1", core.Expense{
		ID: "e3", Amount: core.Money{Cents: 6000}, PaidBy: "b",
		OccurredAt: time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
	})

	second, err := svc.GetMonthSettlement(ctx, "h1", march(t))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second record: %q vs %q", second.ID, first.ID)
	}
	if second.SyncVersion != first.SyncVersion+1 {
		t.Fatalf("expected version %d, got %d", first.SyncVersion+1, second.SyncVersion)
	}
	if second.Total.Cents != 36000 {
		t.Fatalf("expected recomputed total 36000, got %d", second.Total.Cents)
	}

	history, err := svc.History(ctx, "h1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("expected exactly one stored record, got %d", len(history))
	}
}

func TestCompleteFreezesMonth(t *testing.T) {
	hh := seedHousehold(t)
	store := stmem.New()
	svc := settlement.NewService(store, hh, hh, hh, nil)
	ctx := context.Background()

	completed, err := svc.Complete(ctx, "h1", march(t))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !completed.IsSettled || completed.CompletedAt.IsZero() {
		t.Fatalf("expected settled record, got %+v", completed)
	}
	frozenTotal := completed.Total.Cents

	// Later expenses must not change the frozen month.
	hh.AddExpense("h1", core.Expense{
		ID: "e9", Amount: core.Money{Cents: 99900}, PaidBy: "b",
		OccurredAt: time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
	})

	got, err := svc.GetMonthSettlement(ctx, "h1", march(t))
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Cents != frozenTotal {
		t.Fatalf("completed month was recomputed: %d != %d", got.Total.Cents, frozenTotal)
	}
	if got.SyncVersion != completed.SyncVersion {
		t.Fatalf("completed month was rewritten: version %d != %d", got.SyncVersion, completed.SyncVersion)
	}

	// Completing again is a no-op.
	again, err := svc.Complete(ctx, "h1", march(t))
	if err != nil {
		t.Fatal(err)
	}
	if again.SyncVersion != completed.SyncVersion || !again.CompletedAt.Equal(completed.CompletedAt) {
		t.Fatalf("second Complete modified the record: %+v vs %+v", again, completed)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	hh := seedHousehold(t)
	store := stmem.New()
	svc := settlement.NewService(store, hh, hh, hh, nil)
	ctx := context.Background()

	st, err := svc.Preview(ctx, "h1", march(t))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if st.ID != "" || st.SyncVersion != 0 {
		t.Fatalf("preview must not assign storage fields, got %+v", st)
	}
	if _, err := store.GetByMonth(ctx, "h1", march(t)); !errors.Is(err, settlement.ErrNotFound) {
		t.Fatalf("preview persisted a record: %v", err)
	}
}

func TestGetMonthSettlementNoMembers(t *testing.T) {
	hh := hhmem.New()
	svc := settlement.NewService(stmem.New(), hh, hh, hh, nil)
	if _, err := svc.GetMonthSettlement(context.Background(), "ghost", march(t)); !errors.Is(err, core.ErrNoMembers) {
		t.Fatalf("expected ErrNoMembers, got %v", err)
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	hh := seedHousehold(t)
	store := stmem.New()
	svc := settlement.NewService(store, hh, hh, hh, nil)
	ctx := context.Background()

	st, err := svc.GetMonthSettlement(ctx, "h1", march(t))
	if err != nil {
		t.Fatal(err)
	}

	pending, err := store.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != st.ID {
		t.Fatalf("expected the saved settlement pending, got %+v", pending)
	}

	if err := store.MarkSynced(ctx, st.ID); err != nil {
		t.Fatal(err)
	}
	pending, err = store.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending settlements, got %+v", pending)
	}
}
