package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ShareSumTolerance is the allowed deviation of explicit percentages from 100.
const ShareSumTolerance = 0.01

// ResolveShares turns a possibly-partial share configuration into a complete
// table covering every member exactly once. A member with an explicit share
// keeps it; everyone else gets the equal split 100/len(members). Explicit
// shares that do not sum to 100 are passed through unchanged; callers that
// want to enforce the sum use ValidateShares first.
func ResolveShares(members []Member, shares []PaymentShare) (map[string]decimal.Decimal, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	explicit := make(map[string]decimal.Decimal, len(shares))
	for _, s := range shares {
		explicit[s.MemberID] = decimal.NewFromFloat(s.Percentage)
	}

	equal := decimal.NewFromInt(100).Div(decimal.NewFromInt(int64(len(members))))

	resolved := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		if pct, ok := explicit[m.ID]; ok {
			resolved[m.ID] = pct
		} else {
			resolved[m.ID] = equal
		}
	}
	return resolved, nil
}

// ValidateShares checks an explicit share configuration against a member
// list: every referenced member must exist and the percentages must sum to
// 100 within ShareSumTolerance. An empty configuration is valid (equal split
// applies).
func ValidateShares(members []Member, shares []PaymentShare) error {
	if len(shares) == 0 {
		return nil
	}

	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}

	sum := 0.0
	for _, s := range shares {
		if err := s.Validate(); err != nil {
			return err
		}
		if !known[s.MemberID] {
			return fmt.Errorf("%w: share for %q", ErrUnknownMember, s.MemberID)
		}
		sum += s.Percentage
	}

	if math.Abs(sum-100) > ShareSumTolerance {
		return fmt.Errorf("%w: shares sum to %.2f, want 100", ErrInvalidAmount, sum)
	}
	return nil
}
