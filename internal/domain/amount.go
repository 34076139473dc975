package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FundAmount is a signed quantity of money attributed to one fund.
type FundAmount struct {
	FundID string
	Amount decimal.Decimal
}

// FundAmounts is a normalized set of per-fund amounts: sorted by fund ID,
// at most one entry per fund, zero entries removed. Keeping the set
// normalized makes apply followed by reverse restore the exact same value.
type FundAmounts []FundAmount

// NewFundAmounts builds a normalized set from arbitrary entries.
// Entries for the same fund are summed.
func NewFundAmounts(entries ...FundAmount) FundAmounts {
	byFund := make(map[string]decimal.Decimal, len(entries))
	for _, e := range entries {
		byFund[e.FundID] = byFund[e.FundID].Add(e.Amount)
	}

	return fromMap(byFund)
}

// Amount returns the amount for a fund, zero if absent.
func (fa FundAmounts) Amount(fundID string) decimal.Decimal {
	for _, e := range fa {
		if e.FundID == fundID {
			return e.Amount
		}
	}

	return decimal.Zero
}

// Add returns a new set with delta added to one fund.
func (fa FundAmounts) Add(fundID string, delta decimal.Decimal) FundAmounts {
	byFund := fa.toMap()
	byFund[fundID] = byFund[fundID].Add(delta)

	return fromMap(byFund)
}

// Merge returns a new set with every entry of other added.
func (fa FundAmounts) Merge(other FundAmounts) FundAmounts {
	byFund := fa.toMap()
	for _, e := range other {
		byFund[e.FundID] = byFund[e.FundID].Add(e.Amount)
	}

	return fromMap(byFund)
}

// Subtract returns a new set with every entry of other removed.
func (fa FundAmounts) Subtract(other FundAmounts) FundAmounts {
	byFund := fa.toMap()
	for _, e := range other {
		byFund[e.FundID] = byFund[e.FundID].Sub(e.Amount)
	}

	return fromMap(byFund)
}

// Negate returns a new set with every amount sign-flipped.
func (fa FundAmounts) Negate() FundAmounts {
	out := make(FundAmounts, len(fa))
	for i, e := range fa {
		out[i] = FundAmount{FundID: e.FundID, Amount: e.Amount.Neg()}
	}

	return out
}

// Total sums all amounts across funds.
func (fa FundAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range fa {
		total = total.Add(e.Amount)
	}

	return total
}

// Equal reports whether both sets carry identical per-fund amounts.
func (fa FundAmounts) Equal(other FundAmounts) bool {
	if len(fa) != len(other) {
		return false
	}

	for i := range fa {
		if fa[i].FundID != other[i].FundID || !fa[i].Amount.Equal(other[i].Amount) {
			return false
		}
	}

	return true
}

// Clone returns an independent copy.
func (fa FundAmounts) Clone() FundAmounts {
	out := make(FundAmounts, len(fa))
	copy(out, fa)

	return out
}

// FundIDs lists the funds present in the set, in order.
func (fa FundAmounts) FundIDs() []string {
	ids := make([]string, len(fa))
	for i, e := range fa {
		ids[i] = e.FundID
	}

	return ids
}

func (fa FundAmounts) toMap() map[string]decimal.Decimal {
	byFund := make(map[string]decimal.Decimal, len(fa))
	for _, e := range fa {
		byFund[e.FundID] = e.Amount
	}

	return byFund
}

func fromMap(byFund map[string]decimal.Decimal) FundAmounts {
	out := make(FundAmounts, 0, len(byFund))
	for fundID, amount := range byFund {
		if amount.IsZero() {
			continue
		}

		out = append(out, FundAmount{FundID: fundID, Amount: amount})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FundID < out[j].FundID })

	return out
}
