package domain

import "github.com/shopspring/decimal"

// AccountBalance is a computed, never persisted, view of an account's fund
// balances at one point in its event order. Settled amounts are posted and
// authoritative; pending amounts come from added-but-unposted transaction
// legs.
type AccountBalance struct {
	AccountID string
	Settled   FundAmounts
	Pending   FundAmounts
}

// NewAccountBalance returns the empty balance for an account.
func NewAccountBalance(accountID string) AccountBalance {
	return AccountBalance{AccountID: accountID}
}

// Balance is the settled total across funds.
func (b AccountBalance) Balance() decimal.Decimal {
	return b.Settled.Total()
}

// BalanceIncludingPending adds pending changes to the settled total.
func (b AccountBalance) BalanceIncludingPending() decimal.Decimal {
	return b.Settled.Total().Add(b.Pending.Total())
}

// SettledFor returns the settled amount for one fund.
func (b AccountBalance) SettledFor(fundID string) decimal.Decimal {
	return b.Settled.Amount(fundID)
}

// PendingFor returns the pending amount for one fund.
func (b AccountBalance) PendingFor(fundID string) decimal.Decimal {
	return b.Pending.Amount(fundID)
}

// AvailableFor is the amount of a fund that may be spent without risking a
// negative balance: pending decreases count against it, pending increases
// do not.
func (b AccountBalance) AvailableFor(fundID string) decimal.Decimal {
	settled := b.Settled.Amount(fundID)

	withPending := settled.Add(b.Pending.Amount(fundID))
	if withPending.LessThan(settled) {
		return withPending
	}

	return settled
}

// Available is the account-level counterpart of AvailableFor.
func (b AccountBalance) Available() decimal.Decimal {
	settled := b.Balance()

	withPending := b.BalanceIncludingPending()
	if withPending.LessThan(settled) {
		return withPending
	}

	return settled
}

// Equal compares settled and pending amounts fund by fund.
func (b AccountBalance) Equal(other AccountBalance) bool {
	return b.AccountID == other.AccountID &&
		b.Settled.Equal(other.Settled) &&
		b.Pending.Equal(other.Pending)
}

// Clone returns an independent copy.
func (b AccountBalance) Clone() AccountBalance {
	return AccountBalance{
		AccountID: b.AccountID,
		Settled:   b.Settled.Clone(),
		Pending:   b.Pending.Clone(),
	}
}
