package postgres

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

func TestFundAmountsJSONRoundTrip(t *testing.T) {
	amounts := domain.NewFundAmounts(
		domain.FundAmount{FundID: "cash", Amount: decimal.RequireFromString("1234.56")},
		domain.FundAmount{FundID: "savings", Amount: decimal.RequireFromString("-0.01")},
	)

	data, err := fundAmountsToJSON(amounts)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := fundAmountsFromJSON(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !decoded.Equal(amounts) {
		t.Fatalf("round trip mismatch: %v != %v", decoded, amounts)
	}
}

func TestFundAmountsFromJSONEmpty(t *testing.T) {
	decoded, err := fundAmountsFromJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(decoded) != 0 {
		t.Fatalf("expected no amounts, got %v", decoded)
	}
}

func TestFundAmountsFromJSONRejectsGarbage(t *testing.T) {
	if _, err := fundAmountsFromJSON([]byte(`{"cash": "not-a-number"}`)); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, value := range []string{"0", "1", "-1", "1234.5678", "-0.000001", "99999999999999.99"} {
		d := decimal.RequireFromString(value)

		got := numericToDecimal(decimalToNumeric(d))
		if !got.Equal(d) {
			t.Fatalf("round trip mismatch for %s: got %s", value, got)
		}
	}
}
