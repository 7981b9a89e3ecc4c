// Package settlement orchestrates the monthly balance lifecycle: load the
// stored record, recompute from current expenses and shares, persist, and
// freeze completed months.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/core"
	"saldo/internal/household"
)

// Service is the facade callers use. A month moves through
// computed -> persisted -> completed; once completed it is frozen and served
// from storage unchanged.
type Service struct {
	store     Store
	expenses  household.ExpenseSource
	members   household.MemberDirectory
	shares    household.ShareConfig
	publisher SyncPublisher // optional
}

func NewService(store Store, expenses household.ExpenseSource, members household.MemberDirectory, shares household.ShareConfig, publisher SyncPublisher) *Service {
	return &Service{
		store:     store,
		expenses:  expenses,
		members:   members,
		shares:    shares,
		publisher: publisher,
	}
}

// GetMonthSettlement returns the settlement for a household and month.
// A completed month is returned from storage as last saved. Any other state
// recomputes from the current expense and share inputs, overwrites the stored
// record, and returns the fresh result.
func (s *Service) GetMonthSettlement(ctx context.Context, householdID string, month core.Month) (*core.Settlement, error) {
	existing, err := s.store.GetByMonth(ctx, householdID, month)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load settlement: %w", err)
	}
	if existing != nil && existing.IsSettled {
		return existing, nil
	}

	fresh, err := s.compute(ctx, householdID, month)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		fresh.ID = existing.ID
	}

	if err := s.store.Upsert(ctx, fresh); err != nil {
		return nil, fmt.Errorf("save settlement: %w", err)
	}
	s.publish(ctx, fresh)
	return fresh, nil
}

// Preview computes a report without persisting anything.
func (s *Service) Preview(ctx context.Context, householdID string, month core.Month) (*core.Settlement, error) {
	return s.compute(ctx, householdID, month)
}

// Complete closes the month: CompletedAt is set, the record is saved, and no
// further automatic recomputation happens. Completing an already-completed
// month is a no-op returning the frozen record.
func (s *Service) Complete(ctx context.Context, householdID string, month core.Month) (*core.Settlement, error) {
	existing, err := s.store.GetByMonth(ctx, householdID, month)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load settlement: %w", err)
	}
	if existing != nil && existing.IsSettled {
		return existing, nil
	}

	target := existing
	if target == nil {
		target, err = s.compute(ctx, householdID, month)
		if err != nil {
			return nil, err
		}
	}

	target.IsSettled = true
	target.CompletedAt = time.Now().UTC()

	if err := s.store.Upsert(ctx, target); err != nil {
		return nil, fmt.Errorf("save completed settlement: %w", err)
	}
	slog.InfoContext(ctx, "Settlement completed",
		"household", householdID,
		"month", month.String(),
		"total_cents", target.Total.Cents,
		"sync_version", target.SyncVersion)
	s.publish(ctx, target)
	return target, nil
}

// History returns all stored settlements of a household, newest month first.
func (s *Service) History(ctx context.Context, householdID string) ([]core.Settlement, error) {
	list, err := s.store.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return list, nil
}

func (s *Service) compute(ctx context.Context, householdID string, month core.Month) (*core.Settlement, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}

	members, err := s.members.ListMembers(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		return nil, core.ErrNoMembers
	}

	expenses, err := s.expenses.ListExpenses(ctx, householdID, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	shares, err := s.shares.GetShares(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("get shares: %w", err)
	}
	// Non-summing explicit shares are passed through unchanged, but worth a
	// warning: the resulting balances will not net to zero.
	if err := core.ValidateShares(members, shares); err != nil {
		slog.WarnContext(ctx, "Share configuration failed validation, using as-is",
			"household", householdID, "error", err)
	}

	report, err := core.CalculateMonthlyBalance(expenses, members, shares)
	if err != nil {
		return nil, fmt.Errorf("calculate balances: %w", err)
	}

	if sum := core.SumBalances(report.Balances); sum < -core.BalanceEpsilonCents*int64(len(members)) ||
		sum > core.BalanceEpsilonCents*int64(len(members)) {
		slog.WarnContext(ctx, "Balances do not net to zero",
			"household", householdID, "month", month.String(), "sum_cents", sum)
	}

	return &core.Settlement{
		HouseholdID: householdID,
		Month:       month,
		Total:       report.Total,
		Balances:    report.Balances,
		Transfers:   report.Transfers,
	}, nil
}

func (s *Service) publish(ctx context.Context, st *core.Settlement) {
	if s.publisher == nil {
		return
	}
	// The settlement is already saved locally; a failed publish only delays
	// the export, which the worker's periodic pass recovers.
	if err := s.publisher.PublishSettlementSync(ctx, st); err != nil {
		slog.ErrorContext(ctx, "Failed to publish settlement sync message",
			"household", st.HouseholdID, "month", st.Month.String(), "error", err)
	}
}
