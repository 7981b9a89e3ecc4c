// Package memory provides an in-memory settlement store for development and
// tests. Semantics match the SQLite store: upsert by (household, month) with
// a version that increments on every write.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/settlement"
)

var _ settlement.Store = (*Store)(nil)

type record struct {
	settlement core.Settlement
	pending    bool
	syncError  bool
}

type Store struct {
	mu      sync.Mutex
	records map[string]*record // key householdID + "/" + month
}

func New() *Store {
	return &Store{records: make(map[string]*record)}
}

func key(householdID string, month core.Month) string {
	return householdID + "/" + month.String()
}

func (s *Store) GetByMonth(_ context.Context, householdID string, month core.Month) (*core.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key(householdID, month)]
	if !ok {
		return nil, settlement.ErrNotFound
	}
	out := cloneSettlement(rec.settlement)
	return &out, nil
}

func (s *Store) Upsert(_ context.Context, st *core.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	k := key(st.HouseholdID, st.Month)
	if rec, ok := s.records[k]; ok {
		st.ID = rec.settlement.ID
		st.SyncVersion = rec.settlement.SyncVersion + 1
		st.CreatedAt = rec.settlement.CreatedAt
	} else {
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		st.SyncVersion = 1
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	s.records[k] = &record{settlement: cloneSettlement(*st), pending: true}
	return nil
}

func (s *Store) ListByHousehold(_ context.Context, householdID string) ([]core.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Settlement
	for _, rec := range s.records {
		if rec.settlement.HouseholdID == householdID {
			out = append(out, cloneSettlement(rec.settlement))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.String() > out[j].Month.String()
	})
	return out, nil
}

func (s *Store) GetPendingSync(_ context.Context, limit int) ([]settlement.PendingSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []settlement.PendingSettlement
	for _, rec := range s.records {
		if !rec.pending {
			continue
		}
		out = append(out, settlement.PendingSettlement{
			ID:          rec.settlement.ID,
			HouseholdID: rec.settlement.HouseholdID,
			Month:       rec.settlement.Month,
			SyncVersion: rec.settlement.SyncVersion,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.settlement.ID == id {
			rec.pending = false
			rec.syncError = false
			return nil
		}
	}
	return settlement.ErrNotFound
}

func (s *Store) MarkSyncError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.settlement.ID == id {
			rec.syncError = true
			return nil
		}
	}
	return settlement.ErrNotFound
}

func (s *Store) Close() error { return nil }

func cloneSettlement(st core.Settlement) core.Settlement {
	out := st
	out.Balances = append([]core.MemberBalance(nil), st.Balances...)
	out.Transfers = append([]core.BalanceTransfer(nil), st.Transfers...)
	return out
}
