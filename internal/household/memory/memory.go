// Package memory provides an in-memory household backend for development and
// tests, optionally seeded from JSON files.
package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"saldo/internal/core"
)

type Store struct {
	mu       sync.Mutex
	members  map[string][]core.Member       // householdID -> members
	expenses map[string][]core.Expense      // householdID -> all expenses
	shares   map[string][]core.PaymentShare // householdID -> explicit shares
}

func New() *Store {
	return &Store{
		members:  make(map[string][]core.Member),
		expenses: make(map[string][]core.Expense),
		shares:   make(map[string][]core.PaymentShare),
	}
}

// seedFile mirrors the JSON layout of the seed files in the data directory.
type seedFile struct {
	Households []struct {
		ID      string `json:"id"`
		Members []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"members"`
		Shares []struct {
			MemberID   string  `json:"member_id"`
			Percentage float64 `json:"percentage"`
		} `json:"shares"`
		Expenses []struct {
			ID         string    `json:"id"`
			Amount     string    `json:"amount"`
			PaidBy     string    `json:"paid_by"`
			OccurredAt time.Time `json:"occurred_at"`
		} `json:"expenses"`
	} `json:"households"`
}

// NewFromDir seeds a store from base/households.json if present. A missing or
// unreadable file yields an empty store, which is fine for development.
func NewFromDir(base string) *Store {
	s := New()

	path := filepath.Join(base, "households.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("No household seed file, starting empty", "path", path, "error", err)
		return s
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		slog.Warn("Failed to parse household seed file", "path", path, "error", err)
		return s
	}

	for _, h := range seed.Households {
		for _, m := range h.Members {
			s.AddMember(h.ID, core.Member{ID: m.ID, Name: m.Name})
		}
		shares := make([]core.PaymentShare, 0, len(h.Shares))
		for _, sh := range h.Shares {
			shares = append(shares, core.PaymentShare{MemberID: sh.MemberID, Percentage: sh.Percentage})
		}
		if len(shares) > 0 {
			s.SetShares(h.ID, shares)
		}
		for _, e := range h.Expenses {
			centsVal, err := core.ParseDecimalToCents(e.Amount)
			if err != nil {
				slog.Warn("Skipping seed expense with invalid amount",
					"household", h.ID, "expense", e.ID, "amount", e.Amount)
				continue
			}
			s.AddExpense(h.ID, core.Expense{
				ID:         e.ID,
				Amount:     core.Money{Cents: centsVal},
				PaidBy:     e.PaidBy,
				OccurredAt: e.OccurredAt,
			})
		}
	}

	slog.Info("Seeded household store", "path", path, "households", len(seed.Households))
	return s
}

func (s *Store) AddMember(householdID string, m core.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[householdID] = append(s.members[householdID], m)
}

func (s *Store) AddExpense(householdID string, e core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[householdID] = append(s.expenses[householdID], e)
}

func (s *Store) SetShares(householdID string, shares []core.PaymentShare) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[householdID] = append([]core.PaymentShare(nil), shares...)
}

// ListMembers implements household.MemberDirectory.
func (s *Store) ListMembers(_ context.Context, householdID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Member(nil), s.members[householdID]...), nil
}

// ListExpenses implements household.ExpenseSource.
func (s *Store) ListExpenses(_ context.Context, householdID string, month core.Month) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses[householdID] {
		if month.Contains(e.OccurredAt) {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetShares implements household.ShareConfig.
func (s *Store) GetShares(_ context.Context, householdID string) ([]core.PaymentShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PaymentShare(nil), s.shares[householdID]...), nil
}
