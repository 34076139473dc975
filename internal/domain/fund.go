package domain

import (
	"strings"
	"time"
)

// Fund is a named sub-ledger within an account (e.g. "Cash", "Savings").
// Immutable once referenced by balance events; a fund in use cannot be
// deleted.
type Fund struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// NewFund validates the name and creates a fund.
func NewFund(id, name string, now time.Time) (*Fund, error) {
	if err := ValidateFundName(name); err != nil {
		return nil, err
	}

	return &Fund{ID: id, Name: strings.TrimSpace(name), CreatedAt: now}, nil
}

// ValidateFundName checks a fund name is non-empty and within bounds.
func ValidateFundName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return ErrInvalidFundName
	}

	return nil
}
