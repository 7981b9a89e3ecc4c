package core

import (
	"sort"
)

// CalculateTransfers turns a balance vector into an ordered list of
// point-to-point transfers that brings every balance to within
// BalanceEpsilonCents of zero.
//
// The algorithm is greedy two-pointer matching: debtors sorted most-negative
// first, creditors sorted largest first, repeatedly transferring
// min(|debtor|, creditor) between the heads and advancing whoever reaches
// zero. Equal magnitudes are ordered by member ID so the output is
// deterministic. The greedy strategy is near-minimal in transfer count; it is
// kept as-is rather than replaced with an exact minimum-cardinality solver
// because callers and stored settlements depend on its output shape.
//
// An input that does not sum to ~0 leaves one residual party unmatched once
// the other side is exhausted; that residue is a caller-precondition
// violation and is not absorbed here.
func CalculateTransfers(balances map[string]Money) []BalanceTransfer {
	type party struct {
		id    string
		cents int64
	}

	var debtors, creditors []party
	for id, m := range balances {
		switch {
		case m.Cents < -BalanceEpsilonCents:
			debtors = append(debtors, party{id: id, cents: m.Cents})
		case m.Cents > BalanceEpsilonCents:
			creditors = append(creditors, party{id: id, cents: m.Cents})
		}
	}

	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].cents != debtors[j].cents {
			return debtors[i].cents < debtors[j].cents
		}
		return debtors[i].id < debtors[j].id
	})
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].cents != creditors[j].cents {
			return creditors[i].cents > creditors[j].cents
		}
		return creditors[i].id < creditors[j].id
	})

	var transfers []BalanceTransfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		owes := -debtors[i].cents
		due := creditors[j].cents

		amount := owes
		if due < amount {
			amount = due
		}
		if amount > 0 {
			transfers = append(transfers, BalanceTransfer{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: Money{Cents: amount},
			})
		}

		debtors[i].cents += amount
		creditors[j].cents -= amount

		if -debtors[i].cents <= BalanceEpsilonCents {
			i++
		}
		if creditors[j].cents <= BalanceEpsilonCents {
			j++
		}
	}

	return transfers
}

// ApplyTransfers returns a copy of the balance vector with all transfers
// applied: each transfer credits the sender and debits the receiver.
func ApplyTransfers(balances map[string]Money, transfers []BalanceTransfer) map[string]Money {
	out := make(map[string]Money, len(balances))
	for id, m := range balances {
		out[id] = m
	}
	for _, t := range transfers {
		out[t.From] = Money{Cents: out[t.From].Cents + t.Amount.Cents}
		out[t.To] = Money{Cents: out[t.To].Cents - t.Amount.Cents}
	}
	return out
}
