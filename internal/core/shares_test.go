package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func members(ids ...string) []Member {
	out := make([]Member, len(ids))
	for i, id := range ids {
		out[i] = Member{ID: id, Name: id}
	}
	return out
}

func TestResolveSharesEqualSplit(t *testing.T) {
	resolved, err := ResolveShares(members("a", "b", "c"), nil)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(resolved) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(resolved))
	}
	sum := decimal.Zero
	for _, pct := range resolved {
		sum = sum.Add(pct)
	}
	// 3 × (100/3) must come back to 100 within rounding tolerance.
	diff := sum.Sub(decimal.NewFromInt(100)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(ShareSumTolerance)) {
		t.Fatalf("equal split sums to %s, want ~100", sum)
	}
}

func TestResolveSharesExplicit(t *testing.T) {
	shares := []PaymentShare{
		{MemberID: "a", Percentage: 60},
		{MemberID: "b", Percentage: 40},
	}
	resolved, err := ResolveShares(members("a", "b"), shares)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !resolved["a"].Equal(decimal.NewFromInt(60)) {
		t.Fatalf("a: expected 60, got %s", resolved["a"])
	}
	if !resolved["b"].Equal(decimal.NewFromInt(40)) {
		t.Fatalf("b: expected 40, got %s", resolved["b"])
	}
}

func TestResolveSharesPartialFallsBackToEqual(t *testing.T) {
	// Only one of three members configured: the others get 100/3 each.
	shares := []PaymentShare{{MemberID: "a", Percentage: 50}}
	resolved, err := ResolveShares(members("a", "b", "c"), shares)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !resolved["a"].Equal(decimal.NewFromInt(50)) {
		t.Fatalf("a: expected explicit 50, got %s", resolved["a"])
	}
	equal := decimal.NewFromInt(100).Div(decimal.NewFromInt(3))
	if !resolved["b"].Equal(equal) || !resolved["c"].Equal(equal) {
		t.Fatalf("b/c: expected %s each, got %s / %s", equal, resolved["b"], resolved["c"])
	}
}

func TestResolveSharesNoMembers(t *testing.T) {
	if _, err := ResolveShares(nil, nil); err == nil {
		t.Fatal("expected error for empty member list")
	}
}

func TestValidateShares(t *testing.T) {
	ms := members("a", "b")
	cases := []struct {
		name   string
		shares []PaymentShare
		ok     bool
	}{
		{"empty config is valid", nil, true},
		{"sums to 100", []PaymentShare{{MemberID: "a", Percentage: 60}, {MemberID: "b", Percentage: 40}}, true},
		{"within tolerance", []PaymentShare{{MemberID: "a", Percentage: 33.33}, {MemberID: "b", Percentage: 66.67}}, true},
		{"does not sum", []PaymentShare{{MemberID: "a", Percentage: 60}, {MemberID: "b", Percentage: 60}}, false},
		{"unknown member", []PaymentShare{{MemberID: "zz", Percentage: 100}}, false},
		{"negative percentage", []PaymentShare{{MemberID: "a", Percentage: -10}, {MemberID: "b", Percentage: 110}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateShares(ms, tc.shares)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
