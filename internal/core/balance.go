package core

import (
	"github.com/shopspring/decimal"
)

// CalculateMonthlyBalance folds the expense list and the share table into
// per-member paid/owed/balance figures. It is a pure function: same inputs,
// same output, member order following the input member list.
//
// Owed amounts are accumulated as decimal cents (amount × percentage / 100)
// and rounded to whole cents only once, at the end, so many small expenses do
// not compound rounding drift.
//
// Inputs are assumed validated by the caller: amounts positive, every payer a
// known member. The function does not defend against violations.
func CalculateMonthlyBalance(expenses []Expense, members []Member, shares []PaymentShare) (MonthlyBalanceReport, error) {
	resolved, err := ResolveShares(members, shares)
	if err != nil {
		return MonthlyBalanceReport{}, err
	}

	paid := make(map[string]int64, len(members))
	owed := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		paid[m.ID] = 0
		owed[m.ID] = decimal.Zero
	}

	hundred := decimal.NewFromInt(100)
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
		paid[e.PaidBy] += e.Amount.Cents

		amount := e.Amount.Decimal()
		for _, m := range members {
			share := amount.Mul(resolved[m.ID]).Div(hundred)
			owed[m.ID] = owed[m.ID].Add(share)
		}
	}

	report := MonthlyBalanceReport{
		Total:    Money{Cents: total},
		Balances: make([]MemberBalance, 0, len(members)),
	}
	for _, m := range members {
		owedCents := owed[m.ID].Round(0).IntPart()
		report.Balances = append(report.Balances, MemberBalance{
			MemberID: m.ID,
			Paid:     Money{Cents: paid[m.ID]},
			Owed:     Money{Cents: owedCents},
			Balance:  Money{Cents: paid[m.ID] - owedCents},
		})
	}

	report.Transfers = CalculateTransfers(BalanceMap(report.Balances))
	return report, nil
}

// BalanceMap extracts a memberID -> balance map from computed balances.
func BalanceMap(balances []MemberBalance) map[string]Money {
	out := make(map[string]Money, len(balances))
	for _, b := range balances {
		out[b.MemberID] = b.Balance
	}
	return out
}

// SumBalances returns the sum of all balances in cents. For any valid expense
// set and share table the result is within BalanceEpsilonCents times the
// member count of zero.
func SumBalances(balances []MemberBalance) int64 {
	var sum int64
	for _, b := range balances {
		sum += b.Balance.Cents
	}
	return sum
}
