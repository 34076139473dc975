package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func amt(fund string, v string) FundAmount {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}

	return FundAmount{FundID: fund, Amount: d}
}

func TestNewFundAmounts_Normalizes(t *testing.T) {
	fa := NewFundAmounts(
		amt("savings", "100"),
		amt("cash", "50"),
		amt("cash", "25"),
		amt("bonds", "10"),
		amt("bonds", "-10"),
	)

	if len(fa) != 2 {
		t.Fatalf("expected 2 entries after normalization, got %d", len(fa))
	}

	if fa[0].FundID != "cash" || fa[1].FundID != "savings" {
		t.Fatalf("expected sorted fund IDs, got %v", fa.FundIDs())
	}

	if !fa.Amount("cash").Equal(decimal.NewFromInt(75)) {
		t.Errorf("cash = %s, want 75", fa.Amount("cash"))
	}

	if !fa.Amount("bonds").IsZero() {
		t.Errorf("zero entry for bonds should be dropped")
	}
}

func TestFundAmounts_MergeSubtractRoundTrip(t *testing.T) {
	base := NewFundAmounts(amt("cash", "1500"), amt("savings", "1500"))
	delta := NewFundAmounts(amt("cash", "-100"), amt("bonds", "40"))

	merged := base.Merge(delta)
	back := merged.Subtract(delta)

	if !back.Equal(base) {
		t.Errorf("merge then subtract should restore base: got %v, want %v", back, base)
	}
}

func TestFundAmounts_Total(t *testing.T) {
	fa := NewFundAmounts(amt("cash", "10.50"), amt("savings", "-0.50"))
	if !fa.Total().Equal(decimal.NewFromInt(10)) {
		t.Errorf("Total() = %s, want 10", fa.Total())
	}
}

func TestFundAmounts_Negate(t *testing.T) {
	fa := NewFundAmounts(amt("cash", "10"), amt("savings", "-4"))

	neg := fa.Negate()
	if !neg.Amount("cash").Equal(decimal.NewFromInt(-10)) || !neg.Amount("savings").Equal(decimal.NewFromInt(4)) {
		t.Errorf("Negate() = %v", neg)
	}

	if !fa.Amount("cash").Equal(decimal.NewFromInt(10)) {
		t.Errorf("Negate must not mutate the receiver")
	}
}

func TestFundAmounts_CloneIsIndependent(t *testing.T) {
	fa := NewFundAmounts(amt("cash", "10"))

	c := fa.Clone()
	c[0].Amount = decimal.NewFromInt(99)

	if !fa.Amount("cash").Equal(decimal.NewFromInt(10)) {
		t.Errorf("mutating the clone changed the original")
	}
}
