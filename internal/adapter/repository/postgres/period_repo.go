package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/usecase"
)

const periodColumns = `id, year, month, is_open, created_at, updated_at`

// PeriodRepository implements usecase.AccountingPeriodRepository.
type PeriodRepository struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewPeriodRepository creates a new PeriodRepository.
func NewPeriodRepository(pool *pgxpool.Pool) *PeriodRepository {
	return &PeriodRepository{pool: pool}
}

// WithMetrics enables the closed-period counter.
func (r *PeriodRepository) WithMetrics(m *metrics.Metrics) *PeriodRepository {
	r.metrics = m

	return r
}

// Create creates a new accounting period.
func (r *PeriodRepository) Create(ctx context.Context, tx usecase.Transaction, period *domain.AccountingPeriod) error {
	_, err := unwrap(tx, r.pool).Exec(ctx,
		`INSERT INTO accounting_periods (`+periodColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		period.ID,
		period.Year,
		int(period.Month),
		period.IsOpen,
		timeToPgTimestamptz(period.CreatedAt),
		timeToPgTimestamptz(period.UpdatedAt))

	return err
}

// GetByID retrieves a period by ID.
func (r *PeriodRepository) GetByID(ctx context.Context, id string) (*domain.AccountingPeriod, error) {
	return r.get(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id = $1`, id)
}

// GetByKey retrieves the period for a calendar month.
func (r *PeriodRepository) GetByKey(ctx context.Context, key domain.PeriodKey) (*domain.AccountingPeriod, error) {
	return r.get(ctx,
		`SELECT `+periodColumns+` FROM accounting_periods WHERE year = $1 AND month = $2`,
		key.Year, int(key.Month))
}

// GetLatest retrieves the most recent period.
func (r *PeriodRepository) GetLatest(ctx context.Context) (*domain.AccountingPeriod, error) {
	return r.get(ctx,
		`SELECT `+periodColumns+` FROM accounting_periods ORDER BY year DESC, month DESC LIMIT 1`)
}

// GetOpen retrieves the single open period.
func (r *PeriodRepository) GetOpen(ctx context.Context) (*domain.AccountingPeriod, error) {
	return r.get(ctx,
		`SELECT `+periodColumns+` FROM accounting_periods WHERE is_open LIMIT 1`)
}

// Update updates a period's open flag.
func (r *PeriodRepository) Update(ctx context.Context, tx usecase.Transaction, period *domain.AccountingPeriod) error {
	tag, err := unwrap(tx, r.pool).Exec(ctx,
		`UPDATE accounting_periods SET is_open = $2, updated_at = $3 WHERE id = $1`,
		period.ID, period.IsOpen, timeToPgTimestamptz(period.UpdatedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountingPeriodNotFound
	}

	if !period.IsOpen && r.metrics != nil {
		r.metrics.PeriodsClosed.Inc()
	}

	return nil
}

// Delete removes a period.
func (r *PeriodRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	_, err := unwrap(tx, r.pool).Exec(ctx, `DELETE FROM accounting_periods WHERE id = $1`, id)

	return err
}

// List lists periods in chronological order with pagination.
func (r *PeriodRepository) List(ctx context.Context, limit, offset int) ([]*domain.AccountingPeriod, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+periodColumns+` FROM accounting_periods ORDER BY year, month LIMIT $1 OFFSET $2`,
		int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []*domain.AccountingPeriod

	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}

		periods = append(periods, period)
	}

	return periods, rows.Err()
}

func (r *PeriodRepository) get(ctx context.Context, query string, args ...any) (*domain.AccountingPeriod, error) {
	period, err := scanPeriod(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountingPeriodNotFound
		}

		return nil, err
	}

	return period, nil
}

func scanPeriod(row pgx.Row) (*domain.AccountingPeriod, error) {
	var (
		period domain.AccountingPeriod
		month  int
	)

	err := row.Scan(&period.ID, &period.Year, &month, &period.IsOpen, &period.CreatedAt, &period.UpdatedAt)
	if err != nil {
		return nil, err
	}

	period.Month = time.Month(month)

	return &period, nil
}
