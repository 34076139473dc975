package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind tags the closed set of balance event variants. Every switch
// over kinds must be exhaustive and fail on anything else.
type EventKind string

const (
	EventKindAccountAdded   EventKind = "account_added"
	EventKindTransactionLeg EventKind = "transaction_leg"
	EventKindFundConversion EventKind = "fund_conversion"
	EventKindChangeInValue  EventKind = "change_in_value"
)

// LegSide is the double-entry side of a transaction leg.
type LegSide string

const (
	LegSideDebit  LegSide = "debit"
	LegSideCredit LegSide = "credit"
)

// LegStatus distinguishes a recorded-but-unsettled leg from its settled
// counterpart. Both are separate events in the account's event order.
type LegStatus string

const (
	LegStatusAdded  LegStatus = "added"
	LegStatusPosted LegStatus = "posted"
)

// TransactionLeg carries one side of a transaction. Amounts are signed
// balance deltas: the account type's debit/credit convention is applied
// when the leg is created, so replay never needs the account.
type TransactionLeg struct {
	TransactionID string
	Side          LegSide
	Status        LegStatus
	Amounts       FundAmounts
}

// FundConversion moves an amount between two funds of the same account.
type FundConversion struct {
	FromFundID string
	ToFundID   string
	Amount     decimal.Decimal
}

// ChangeInValue applies a single signed amount directly to one fund.
type ChangeInValue struct {
	FundID string
	Amount decimal.Decimal
}

// BalanceEvent is one entry in the global balance event order. Exactly one
// variant payload is set, selected by Kind.
type BalanceEvent struct {
	ID        string
	AccountID string
	Period    PeriodKey
	Date      time.Time
	Sequence  int
	Kind      EventKind

	Opening    FundAmounts     // EventKindAccountAdded
	Leg        *TransactionLeg // EventKindTransactionLeg
	Conversion *FundConversion // EventKindFundConversion
	Change     *ChangeInValue  // EventKindChangeInValue

	CreatedAt time.Time
}

// Apply returns the balance after this event. It is the exact inverse of
// Reverse for every variant.
func (e *BalanceEvent) Apply(b AccountBalance) (AccountBalance, error) {
	out := b.Clone()

	switch e.Kind {
	case EventKindAccountAdded:
		out.Settled = out.Settled.Merge(e.Opening)
	case EventKindTransactionLeg:
		switch e.Leg.Status {
		case LegStatusAdded:
			out.Pending = out.Pending.Merge(e.Leg.Amounts)
		case LegStatusPosted:
			out.Pending = out.Pending.Subtract(e.Leg.Amounts)
			out.Settled = out.Settled.Merge(e.Leg.Amounts)
		default:
			return b, fmt.Errorf("unknown leg status %q", e.Leg.Status)
		}
	case EventKindFundConversion:
		out.Settled = out.Settled.Add(e.Conversion.FromFundID, e.Conversion.Amount.Neg())
		out.Settled = out.Settled.Add(e.Conversion.ToFundID, e.Conversion.Amount)
	case EventKindChangeInValue:
		out.Settled = out.Settled.Add(e.Change.FundID, e.Change.Amount)
	default:
		return b, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	return out, nil
}

// Reverse returns the balance before this event was applied.
func (e *BalanceEvent) Reverse(b AccountBalance) (AccountBalance, error) {
	out := b.Clone()

	switch e.Kind {
	case EventKindAccountAdded:
		out.Settled = out.Settled.Subtract(e.Opening)
	case EventKindTransactionLeg:
		switch e.Leg.Status {
		case LegStatusAdded:
			out.Pending = out.Pending.Subtract(e.Leg.Amounts)
		case LegStatusPosted:
			out.Pending = out.Pending.Merge(e.Leg.Amounts)
			out.Settled = out.Settled.Subtract(e.Leg.Amounts)
		default:
			return b, fmt.Errorf("unknown leg status %q", e.Leg.Status)
		}
	case EventKindFundConversion:
		out.Settled = out.Settled.Add(e.Conversion.FromFundID, e.Conversion.Amount)
		out.Settled = out.Settled.Add(e.Conversion.ToFundID, e.Conversion.Amount.Neg())
	case EventKindChangeInValue:
		out.Settled = out.Settled.Add(e.Change.FundID, e.Change.Amount.Neg())
	default:
		return b, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	return out, nil
}

// ValidToApply checks the variant-specific sufficiency and sign rules
// against the balance at the event's position. Pending decreases count
// against available funds, pending increases do not.
func (e *BalanceEvent) ValidToApply(b AccountBalance) error {
	switch e.Kind {
	case EventKindAccountAdded:
		if len(e.Opening) == 0 {
			return ErrInvalidFundAmount
		}

		for _, fa := range e.Opening {
			if fa.Amount.IsNegative() {
				return fmt.Errorf("%w: opening amount for fund %s is negative", ErrInvalidFundAmount, fa.FundID)
			}
		}

		return nil

	case EventKindTransactionLeg:
		return e.validLegToApply(b)

	case EventKindFundConversion:
		c := e.Conversion
		if c.FromFundID == c.ToFundID || !c.Amount.IsPositive() {
			return ErrInvalidFundAmount
		}

		if b.AvailableFor(c.FromFundID).LessThan(c.Amount) {
			return fmt.Errorf("%w: fund %s", ErrInvalidFundBalance, c.FromFundID)
		}

		return nil

	case EventKindChangeInValue:
		c := e.Change
		if c.Amount.IsZero() {
			return ErrInvalidFundAmount
		}

		if c.Amount.IsNegative() {
			// The account-wide shortfall is reported before the fund-specific
			// refinement.
			if b.Available().Add(c.Amount).IsNegative() {
				return ErrInvalidAccountBalance
			}

			if b.AvailableFor(c.FundID).Add(c.Amount).IsNegative() {
				return fmt.Errorf("%w: fund %s", ErrInvalidFundBalance, c.FundID)
			}
		}

		return nil

	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func (e *BalanceEvent) validLegToApply(b AccountBalance) error {
	leg := e.Leg
	if len(leg.Amounts) == 0 {
		return ErrInvalidFundAmount
	}

	for _, fa := range leg.Amounts {
		if fa.Amount.IsZero() {
			return ErrInvalidFundAmount
		}
	}

	switch leg.Status {
	case LegStatusAdded:
		// The pending decrease must not exceed what is available once all
		// pending decreases are counted.
		for _, fa := range leg.Amounts {
			if !fa.Amount.IsNegative() {
				continue
			}

			settled := b.SettledFor(fa.FundID)
			pending := b.PendingFor(fa.FundID)
			if settled.Add(pending).Add(fa.Amount).IsNegative() {
				return fmt.Errorf("%w: fund %s", ErrInvalidFundBalance, fa.FundID)
			}
		}

		if total := leg.Amounts.Total(); total.IsNegative() &&
			b.BalanceIncludingPending().Add(total).IsNegative() {
			return ErrInvalidAccountBalance
		}

		return nil

	case LegStatusPosted:
		// Settling tightens the constraint: the decrease now counts against
		// the settled balance alone.
		for _, fa := range leg.Amounts {
			if !fa.Amount.IsNegative() {
				continue
			}

			if b.SettledFor(fa.FundID).Add(fa.Amount).IsNegative() {
				return fmt.Errorf("%w: fund %s", ErrInvalidFundBalance, fa.FundID)
			}
		}

		if b.Balance().Add(leg.Amounts.Total()).IsNegative() {
			return ErrInvalidAccountBalance
		}

		return nil

	default:
		return fmt.Errorf("unknown leg status %q", leg.Status)
	}
}
