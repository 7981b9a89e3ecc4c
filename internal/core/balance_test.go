package core

import (
	"reflect"
	"testing"
	"time"
)

func expense(id string, cents int64, paidBy string) Expense {
	return Expense{
		ID:         id,
		Amount:     Money{Cents: cents},
		PaidBy:     paidBy,
		OccurredAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func balanceByMember(t *testing.T, report MonthlyBalanceReport, id string) MemberBalance {
	t.Helper()
	for _, b := range report.Balances {
		if b.MemberID == id {
			return b
		}
	}
	t.Fatalf("no balance for member %q", id)
	return MemberBalance{}
}

// Equal split, 3 members: A pays 150, C pays 150, B pays nothing.
func TestCalculateMonthlyBalanceEqualSplit(t *testing.T) {
	ms := members("a", "b", "c")
	es := []Expense{
		expense("e1", 15000, "a"),
		expense("e2", 15000, "c"),
	}

	report, err := CalculateMonthlyBalance(es, ms, nil)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	if report.Total.Cents != 30000 {
		t.Fatalf("total: expected 30000, got %d", report.Total.Cents)
	}

	a := balanceByMember(t, report, "a")
	b := balanceByMember(t, report, "b")
	c := balanceByMember(t, report, "c")

	if a.Paid.Cents != 15000 || b.Paid.Cents != 0 || c.Paid.Cents != 15000 {
		t.Fatalf("paid: got a=%d b=%d c=%d", a.Paid.Cents, b.Paid.Cents, c.Paid.Cents)
	}
	for _, bal := range report.Balances {
		if diff := bal.Owed.Cents - 10000; diff < -BalanceEpsilonCents || diff > BalanceEpsilonCents {
			t.Fatalf("owed for %s: expected ~10000, got %d", bal.MemberID, bal.Owed.Cents)
		}
	}
	if a.Balance.Cents != 5000 || b.Balance.Cents != -10000 || c.Balance.Cents != 5000 {
		t.Fatalf("balances: got a=%d b=%d c=%d", a.Balance.Cents, b.Balance.Cents, c.Balance.Cents)
	}

	// B owes both creditors 50.00; A before C on the creditor tie.
	want := []BalanceTransfer{
		{From: "b", To: "a", Amount: Money{Cents: 5000}},
		{From: "b", To: "c", Amount: Money{Cents: 5000}},
	}
	if !reflect.DeepEqual(report.Transfers, want) {
		t.Fatalf("transfers: expected %+v, got %+v", want, report.Transfers)
	}
}

// Custom shares: A 60%, B 40%; single expense of 100 paid by A.
func TestCalculateMonthlyBalanceCustomShares(t *testing.T) {
	ms := members("a", "b")
	shares := []PaymentShare{
		{MemberID: "a", Percentage: 60},
		{MemberID: "b", Percentage: 40},
	}
	es := []Expense{expense("e1", 10000, "a")}

	report, err := CalculateMonthlyBalance(es, ms, shares)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	a := balanceByMember(t, report, "a")
	b := balanceByMember(t, report, "b")
	if a.Owed.Cents != 6000 || b.Owed.Cents != 4000 {
		t.Fatalf("owed: expected a=6000 b=4000, got a=%d b=%d", a.Owed.Cents, b.Owed.Cents)
	}
	if a.Balance.Cents != 4000 || b.Balance.Cents != -4000 {
		t.Fatalf("balances: expected a=+4000 b=-4000, got a=%d b=%d", a.Balance.Cents, b.Balance.Cents)
	}

	want := []BalanceTransfer{{From: "b", To: "a", Amount: Money{Cents: 4000}}}
	if !reflect.DeepEqual(report.Transfers, want) {
		t.Fatalf("transfers: expected %+v, got %+v", want, report.Transfers)
	}
}

func TestCalculateMonthlyBalanceZeroSum(t *testing.T) {
	cases := []struct {
		name     string
		members  []Member
		shares   []PaymentShare
		expenses []Expense
	}{
		{
			name:    "three way uneven payments",
			members: members("a", "b", "c"),
			expenses: []Expense{
				expense("e1", 9999, "a"),
				expense("e2", 1, "b"),
				expense("e3", 12345, "c"),
				expense("e4", 333, "a"),
			},
		},
		{
			name:    "custom shares",
			members: members("a", "b", "c"),
			shares: []PaymentShare{
				{MemberID: "a", Percentage: 50},
				{MemberID: "b", Percentage: 30},
				{MemberID: "c", Percentage: 20},
			},
			expenses: []Expense{
				expense("e1", 777, "b"),
				expense("e2", 10300, "a"),
			},
		},
		{
			name:     "no expenses",
			members:  members("a", "b"),
			expenses: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report, err := CalculateMonthlyBalance(tc.expenses, tc.members, tc.shares)
			if err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			sum := SumBalances(report.Balances)
			limit := BalanceEpsilonCents * int64(len(tc.members))
			if sum < -limit || sum > limit {
				t.Fatalf("balances sum to %d cents, want ~0", sum)
			}
		})
	}
}

// Accumulating in decimal and rounding once must not drift even across many
// small expenses whose individual shares are fractions of a cent.
func TestCalculateMonthlyBalanceNoRoundingDrift(t *testing.T) {
	ms := members("a", "b", "c")
	var es []Expense
	for i := 0; i < 1000; i++ {
		es = append(es, expense("e", 1, "a")) // 1000 × 0.01 paid by A
	}

	report, err := CalculateMonthlyBalance(es, ms, nil)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// Each member owes exactly 1000/3 cents -> 333.33.. cents, rounded once.
	a := balanceByMember(t, report, "a")
	if a.Owed.Cents != 333 {
		t.Fatalf("owed for a: expected 333, got %d", a.Owed.Cents)
	}
	sum := SumBalances(report.Balances)
	if sum < -BalanceEpsilonCents*3 || sum > BalanceEpsilonCents*3 {
		t.Fatalf("balances sum to %d cents, want ~0", sum)
	}
}

func TestCalculateMonthlyBalanceIdempotent(t *testing.T) {
	ms := members("a", "b", "c")
	shares := []PaymentShare{
		{MemberID: "a", Percentage: 33.33},
		{MemberID: "b", Percentage: 33.33},
		{MemberID: "c", Percentage: 33.34},
	}
	es := []Expense{
		expense("e1", 15000, "a"),
		expense("e2", 15000, "c"),
	}

	first, err := CalculateMonthlyBalance(es, ms, shares)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	second, err := CalculateMonthlyBalance(es, ms, shares)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different reports:\n%+v\n%+v", first, second)
	}
}

func TestCalculateMonthlyBalanceNoMembers(t *testing.T) {
	if _, err := CalculateMonthlyBalance(nil, nil, nil); err == nil {
		t.Fatal("expected error for empty member list")
	}
}
