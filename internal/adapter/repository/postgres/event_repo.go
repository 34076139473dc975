package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/usecase"
)

const eventColumns = `id, account_id, period_year, period_month, event_date, sequence, kind,
	amounts, transaction_id, leg_side, leg_status,
	conversion_from, conversion_to, conversion_amount,
	change_fund, change_amount, created_at`

// EventRepository implements usecase.BalanceEventRepository. Events are
// append-only; the only delete path removes a whole account's history.
type EventRepository struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// WithMetrics enables counters for recorded events and write errors.
func (r *EventRepository) WithMetrics(m *metrics.Metrics) *EventRepository {
	r.metrics = m

	return r
}

// Create appends a balance event.
func (r *EventRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.BalanceEvent) error {
	var (
		amounts                      []byte
		transactionID                *string
		legSide, legStatus           *string
		conversionFrom, conversionTo *string
		conversionAmount             pgtype.Numeric
		changeFund                   *string
		changeAmount                 pgtype.Numeric
		err                          error
	)

	switch event.Kind {
	case domain.EventKindAccountAdded:
		amounts, err = fundAmountsToJSON(event.Opening)
	case domain.EventKindTransactionLeg:
		amounts, err = fundAmountsToJSON(event.Leg.Amounts)
		transactionID = &event.Leg.TransactionID
		legSide = strPtr(string(event.Leg.Side))
		legStatus = strPtr(string(event.Leg.Status))
	case domain.EventKindFundConversion:
		conversionFrom = &event.Conversion.FromFundID
		conversionTo = &event.Conversion.ToFundID
		conversionAmount = decimalToNumeric(event.Conversion.Amount)
	case domain.EventKindChangeInValue:
		changeFund = &event.Change.FundID
		changeAmount = decimalToNumeric(event.Change.Amount)
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}

	if err != nil {
		return err
	}

	_, err = unwrap(tx, r.pool).Exec(ctx,
		`INSERT INTO balance_events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		event.ID,
		event.AccountID,
		event.Period.Year,
		int(event.Period.Month),
		timeToPgDate(event.Date),
		event.Sequence,
		string(event.Kind),
		amounts,
		transactionID,
		legSide,
		legStatus,
		conversionFrom,
		conversionTo,
		conversionAmount,
		changeFund,
		changeAmount,
		timeToPgTimestamptz(event.CreatedAt))

	if r.metrics != nil {
		if err != nil {
			r.metrics.DBErrors.WithLabelValues("event_insert").Inc()
		} else {
			r.metrics.EventsRecorded.WithLabelValues(string(event.Kind)).Inc()
		}
	}

	return err
}

// GetByID retrieves an event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.BalanceEvent, error) {
	event, err := scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM balance_events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBalanceEventNotFound
		}

		return nil, err
	}

	return event, nil
}

// ListByAccountFromPeriod lists an account's events dated no later than
// through that the checkpoint for the given period does not already cover:
// events recorded against that period or later, plus events recorded against
// an earlier period but dated into it or beyond. The adjacency window lets an
// event's date and period key sit in different months, so both axes matter.
func (r *EventRepository) ListByAccountFromPeriod(ctx context.Context, accountID string, from domain.PeriodKey, through time.Time) ([]*domain.BalanceEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM balance_events
		 WHERE account_id = $1
		   AND ((period_year, period_month) >= ($2, $3) OR event_date >= $4)
		   AND event_date <= $5
		 ORDER BY event_date, period_year, period_month, sequence`,
		accountID, from.Year, int(from.Month), timeToPgDate(from.Start()), timeToPgDate(through))
}

// ListByAccountAndPeriod lists an account's events recorded against exactly
// one period, regardless of their dates.
func (r *EventRepository) ListByAccountAndPeriod(ctx context.Context, accountID string, key domain.PeriodKey) ([]*domain.BalanceEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM balance_events
		 WHERE account_id = $1 AND period_year = $2 AND period_month = $3
		 ORDER BY event_date, sequence`,
		accountID, key.Year, int(key.Month))
}

// ListByAccountInDateRange lists an account's events dated in [from, to].
func (r *EventRepository) ListByAccountInDateRange(ctx context.Context, accountID string, from, to time.Time) ([]*domain.BalanceEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM balance_events
		 WHERE account_id = $1 AND event_date BETWEEN $2 AND $3
		 ORDER BY event_date, period_year, period_month, sequence`,
		accountID, timeToPgDate(from), timeToPgDate(to))
}

// ListUnpostedLegsBefore lists added legs covered by the checkpoint for the
// given period (recorded against an earlier period and dated before its first
// day) whose posted counterpart is absent or not itself covered. These are
// the pending changes that survive a checkpoint boundary.
func (r *EventRepository) ListUnpostedLegsBefore(ctx context.Context, accountID string, before domain.PeriodKey) ([]*domain.BalanceEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM balance_events e
		 WHERE e.account_id = $1
		   AND e.kind = 'transaction_leg'
		   AND e.leg_status = 'added'
		   AND (e.period_year, e.period_month) < ($2, $3)
		   AND e.event_date < $4
		   AND NOT EXISTS (
		     SELECT 1 FROM balance_events p
		     WHERE p.kind = 'transaction_leg'
		       AND p.leg_status = 'posted'
		       AND p.transaction_id = e.transaction_id
		       AND p.leg_side = e.leg_side
		       AND (p.period_year, p.period_month) < ($2, $3)
		       AND p.event_date < $4
		   )
		 ORDER BY e.event_date, e.period_year, e.period_month, e.sequence`,
		accountID, before.Year, int(before.Month), timeToPgDate(before.Start()))
}

// CountUnpostedLegsInPeriod counts added legs recorded against the period
// with no posted counterpart anywhere.
func (r *EventRepository) CountUnpostedLegsInPeriod(ctx context.Context, key domain.PeriodKey) (int, error) {
	var count int

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM balance_events e
		 WHERE e.kind = 'transaction_leg'
		   AND e.leg_status = 'added'
		   AND e.period_year = $1 AND e.period_month = $2
		   AND NOT EXISTS (
		     SELECT 1 FROM balance_events p
		     WHERE p.kind = 'transaction_leg'
		       AND p.leg_status = 'posted'
		       AND p.transaction_id = e.transaction_id
		       AND p.leg_side = e.leg_side
		   )`,
		key.Year, int(key.Month)).Scan(&count)

	return count, err
}

// CountByPeriod counts events recorded against a period.
func (r *EventRepository) CountByPeriod(ctx context.Context, key domain.PeriodKey) (int, error) {
	var count int

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM balance_events WHERE period_year = $1 AND period_month = $2`,
		key.Year, int(key.Month)).Scan(&count)

	return count, err
}

// CountByAccount counts an account's events.
func (r *EventRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM balance_events WHERE account_id = $1`, accountID).Scan(&count)

	return count, err
}

// AccountIDsWithEventsThrough lists the accounts that have any event
// recorded against the given period or earlier.
func (r *EventRepository) AccountIDsWithEventsThrough(ctx context.Context, key domain.PeriodKey) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT account_id FROM balance_events
		 WHERE (period_year, period_month) <= ($1, $2)
		 ORDER BY account_id`,
		key.Year, int(key.Month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// MaxSequenceOnDate returns the highest sequence used by any event on the
// given date, zero when the date is empty.
func (r *EventRepository) MaxSequenceOnDate(ctx context.Context, date time.Time) (int, error) {
	var max int

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM balance_events WHERE event_date = $1`,
		timeToPgDate(date)).Scan(&max)

	return max, err
}

// HasPostedCounterpart reports whether the leg identified by transaction and
// side has already been posted.
func (r *EventRepository) HasPostedCounterpart(ctx context.Context, transactionID string, side domain.LegSide) (bool, error) {
	var exists bool

	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM balance_events
		   WHERE kind = 'transaction_leg'
		     AND leg_status = 'posted'
		     AND transaction_id = $1
		     AND leg_side = $2
		 )`,
		transactionID, string(side)).Scan(&exists)

	return exists, err
}

// ExistsForFund reports whether any event references the fund.
func (r *EventRepository) ExistsForFund(ctx context.Context, fundID string) (bool, error) {
	var exists bool

	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM balance_events
		   WHERE jsonb_exists(amounts, $1)
		      OR conversion_from = $1
		      OR conversion_to = $1
		      OR change_fund = $1
		 )`,
		fundID).Scan(&exists)

	return exists, err
}

// DeleteByAccount removes every event of an account.
func (r *EventRepository) DeleteByAccount(ctx context.Context, tx usecase.Transaction, accountID string) error {
	_, err := unwrap(tx, r.pool).Exec(ctx,
		`DELETE FROM balance_events WHERE account_id = $1`, accountID)

	return err
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.BalanceEvent, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.BalanceEvent

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.BalanceEvent, error) {
	var (
		event                        domain.BalanceEvent
		periodYear, periodMonth      int
		kind                         string
		amounts                      []byte
		transactionID                *string
		legSide, legStatus           *string
		conversionFrom, conversionTo *string
		conversionAmount             pgtype.Numeric
		changeFund                   *string
		changeAmount                 pgtype.Numeric
	)

	err := row.Scan(
		&event.ID,
		&event.AccountID,
		&periodYear,
		&periodMonth,
		&event.Date,
		&event.Sequence,
		&kind,
		&amounts,
		&transactionID,
		&legSide,
		&legStatus,
		&conversionFrom,
		&conversionTo,
		&conversionAmount,
		&changeFund,
		&changeAmount,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Period = domain.PeriodKey{Year: periodYear, Month: time.Month(periodMonth)}
	event.Kind = domain.EventKind(kind)

	switch event.Kind {
	case domain.EventKindAccountAdded:
		event.Opening, err = fundAmountsFromJSON(amounts)
		if err != nil {
			return nil, err
		}
	case domain.EventKindTransactionLeg:
		legAmounts, err := fundAmountsFromJSON(amounts)
		if err != nil {
			return nil, err
		}

		event.Leg = &domain.TransactionLeg{
			TransactionID: deref(transactionID),
			Side:          domain.LegSide(deref(legSide)),
			Status:        domain.LegStatus(deref(legStatus)),
			Amounts:       legAmounts,
		}
	case domain.EventKindFundConversion:
		event.Conversion = &domain.FundConversion{
			FromFundID: deref(conversionFrom),
			ToFundID:   deref(conversionTo),
			Amount:     numericToDecimal(conversionAmount),
		}
	case domain.EventKindChangeInValue:
		event.Change = &domain.ChangeInValue{
			FundID: deref(changeFund),
			Amount: numericToDecimal(changeAmount),
		}
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}

	return &event, nil
}

func strPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
