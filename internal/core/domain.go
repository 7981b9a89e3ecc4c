package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Month identifies a calendar month, the settlement period.
	Month struct {
		Year  int
		Month time.Month
	}

	// Member is a household member. Owned by the household directory;
	// immutable within a calculation.
	Member struct {
		ID   string
		Name string
	}

	// Expense is a shared expense paid by one member. Read-only input.
	Expense struct {
		ID         string
		Amount     Money
		PaidBy     string // member ID
		OccurredAt time.Time
	}

	// PaymentShare is a configured percentage of responsibility for one
	// member. Percentages across a household should sum to 100.
	PaymentShare struct {
		MemberID   string
		Percentage float64
	}

	// MemberBalance is a member's computed position for a period.
	// Balance = Paid - Owed; positive means the member is owed money.
	MemberBalance struct {
		MemberID string
		Paid     Money
		Owed     Money
		Balance  Money
	}

	// BalanceTransfer is a single payment instruction from a debtor to a
	// creditor.
	BalanceTransfer struct {
		From   string // debtor member ID
		To     string // creditor member ID
		Amount Money
	}

	// MonthlyBalanceReport is the computed, ephemeral result of one balance
	// calculation.
	MonthlyBalanceReport struct {
		Total     Money
		Balances  []MemberBalance
		Transfers []BalanceTransfer
	}

	// Settlement is the persisted record of a month's balances and the
	// transfers suggested to zero them. One record per (household, month).
	Settlement struct {
		ID          string
		HouseholdID string
		Month       Month
		Total       Money
		Balances    []MemberBalance
		Transfers   []BalanceTransfer
		IsSettled   bool
		CompletedAt time.Time // zero until the month is closed
		SyncVersion int64     // incremented by the store on every write
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrNoMembers     = errors.New("household has no members")
	ErrUnknownMember = errors.New("unknown member reference")
	ErrEmptyMemberID = errors.New("empty member id")
)

// BalanceEpsilonCents is the tolerance, in cents, within which a balance is
// considered settled. Rounding of percentage shares can leave residues of at
// most one cent per member.
const BalanceEpsilonCents int64 = 1

// ParseMonth parses a period in "YYYY-MM" form.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) Validate() error {
	if m.Year < 1 || m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	return nil
}

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

func (mb Member) Validate() error {
	if strings.TrimSpace(mb.ID) == "" {
		return ErrEmptyMemberID
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.PaidBy) == "" {
		return fmt.Errorf("%w: expense %q has no payer", ErrUnknownMember, e.ID)
	}
	return nil
}

func (ps PaymentShare) Validate() error {
	if strings.TrimSpace(ps.MemberID) == "" {
		return ErrEmptyMemberID
	}
	if ps.Percentage < 0 || ps.Percentage > 100 {
		return fmt.Errorf("%w: percentage %.2f out of range", ErrInvalidAmount, ps.Percentage)
	}
	return nil
}
