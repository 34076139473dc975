package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccountBalance_Totals(t *testing.T) {
	b := AccountBalance{
		AccountID: "acc-1",
		Settled:   NewFundAmounts(amt("cash", "1000"), amt("savings", "500")),
		Pending:   NewFundAmounts(amt("cash", "-200"), amt("savings", "300")),
	}

	if !b.Balance().Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Balance() = %s, want 1500", b.Balance())
	}

	if !b.BalanceIncludingPending().Equal(decimal.NewFromInt(1600)) {
		t.Errorf("BalanceIncludingPending() = %s, want 1600", b.BalanceIncludingPending())
	}
}

func TestAccountBalance_AvailableAsymmetry(t *testing.T) {
	b := AccountBalance{
		AccountID: "acc-1",
		Settled:   NewFundAmounts(amt("cash", "1000"), amt("savings", "500")),
		Pending:   NewFundAmounts(amt("cash", "-200"), amt("savings", "300")),
	}

	// Pending decrease reduces what is available.
	if !b.AvailableFor("cash").Equal(decimal.NewFromInt(800)) {
		t.Errorf("AvailableFor(cash) = %s, want 800", b.AvailableFor("cash"))
	}

	// Pending increase is not counted until settled.
	if !b.AvailableFor("savings").Equal(decimal.NewFromInt(500)) {
		t.Errorf("AvailableFor(savings) = %s, want 500", b.AvailableFor("savings"))
	}

	if !b.Available().Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Available() = %s, want 1500", b.Available())
	}
}

func TestAccountBalance_CloneIsIndependent(t *testing.T) {
	b := AccountBalance{
		AccountID: "acc-1",
		Settled:   NewFundAmounts(amt("cash", "1000")),
	}

	c := b.Clone()
	c.Settled = c.Settled.Add("cash", decimal.NewFromInt(500))

	if !b.SettledFor("cash").Equal(decimal.NewFromInt(1000)) {
		t.Error("mutating the clone changed the original")
	}
}
