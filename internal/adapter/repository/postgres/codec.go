package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories can
// run reads on the pool and writes inside the caller's transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// unwrap returns the pgx transaction behind a usecase.Transaction, or the
// fallback querier when no transaction is in flight.
func unwrap(tx usecase.Transaction, fallback dbtx) dbtx {
	if tx == nil {
		return fallback
	}

	return tx.(*Tx).PgxTx()
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timeToPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: domain.DateOnly(t), Valid: true}
}

// fundAmountsToJSON encodes amounts as a {fundID: "amount"} object. Decimal
// values travel as strings so no precision is lost in transit.
func fundAmountsToJSON(amounts domain.FundAmounts) ([]byte, error) {
	m := make(map[string]string, len(amounts))
	for _, fa := range amounts {
		m[fa.FundID] = fa.Amount.String()
	}

	return json.Marshal(m)
}

func fundAmountsFromJSON(data []byte) (domain.FundAmounts, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode fund amounts: %w", err)
	}

	out := make([]domain.FundAmount, 0, len(m))
	for fundID, value := range m {
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("decode fund amount for %s: %w", fundID, err)
		}

		out = append(out, domain.FundAmount{FundID: fundID, Amount: amount})
	}

	return domain.NewFundAmounts(out...), nil
}
