// Package household defines the ports through which the settlement engine
// reaches its collaborators: the expense ledger, the member directory and the
// configured split ratios. Storage and validation of those records belong to
// the collaborators, not to this module.
package household

import (
	"context"

	"saldo/internal/core"
)

type (
	// ExpenseSource lists the validated shared expenses of a household for
	// one month.
	ExpenseSource interface {
		ListExpenses(ctx context.Context, householdID string, month core.Month) ([]core.Expense, error)
	}

	// MemberDirectory lists the members of a household.
	MemberDirectory interface {
		ListMembers(ctx context.Context, householdID string) ([]core.Member, error)
	}

	// ShareConfig returns the configured split percentages of a household.
	// An empty result means no explicit configuration: equal split applies.
	ShareConfig interface {
		GetShares(ctx context.Context, householdID string) ([]core.PaymentShare, error)
	}
)
