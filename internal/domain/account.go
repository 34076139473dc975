package domain

import (
	"strings"
	"time"
)

// MaxNameLength bounds account and fund names.
const MaxNameLength = 255

// AccountType selects the debit/credit sign convention for an account.
type AccountType string

const (
	// AccountTypeStandard is an asset-like account: debits increase it.
	AccountTypeStandard AccountType = "standard"
	// AccountTypeDebt tracks an amount owed: credits increase it.
	AccountTypeDebt AccountType = "debt"
	// AccountTypeInvestment behaves like a standard account but admits
	// market-value drift via change-in-value events.
	AccountTypeInvestment AccountType = "investment"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeStandard, AccountTypeDebt, AccountTypeInvestment:
		return true
	}

	return false
}

// legSign returns the multiplier applied to a transaction leg's amounts.
func (t AccountType) legSign(side LegSide) int {
	increase := side == LegSideDebit
	if t == AccountTypeDebt {
		increase = side == LegSideCredit
	}

	if increase {
		return 1
	}

	return -1
}

// Account owns its added-event reference and the checkpoints derived from
// closed periods. Names are globally unique.
type Account struct {
	ID           string
	Name         string
	Type         AccountType
	AddedEventID string
	AddedDate    time.Time
	AddedPeriod  PeriodKey
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateAccountName checks an account name is non-empty and within bounds.
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return ErrInvalidAccountName
	}

	return nil
}

// SignedLegAmounts applies the account type's sign convention for side to a
// set of positive transaction amounts, yielding the balance deltas the leg
// event carries.
func (a *Account) SignedLegAmounts(side LegSide, amounts FundAmounts) FundAmounts {
	if a.Type.legSign(side) > 0 {
		return amounts.Clone()
	}

	return amounts.Negate()
}

// AccountBalanceCheckpoint is the account's settled fund balances at the
// start of a period. Created exactly once per (account, closed period) and
// never mutated; corrections are new rows.
type AccountBalanceCheckpoint struct {
	ID        string
	AccountID string
	Period    PeriodKey
	Balances  FundAmounts
	CreatedAt time.Time
}

// NewAccountBalanceCheckpoint enforces the non-negative sum invariant.
func NewAccountBalanceCheckpoint(id, accountID string, period PeriodKey, balances FundAmounts, now time.Time) (*AccountBalanceCheckpoint, error) {
	if balances.Total().IsNegative() {
		return nil, ErrInvalidAccountBalance
	}

	return &AccountBalanceCheckpoint{
		ID:        id,
		AccountID: accountID,
		Period:    period,
		Balances:  balances.Clone(),
		CreatedAt: now,
	}, nil
}
