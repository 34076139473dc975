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

const checkpointColumns = `id, account_id, period_year, period_month, balances, created_at`

// CheckpointRepository implements usecase.CheckpointRepository. Checkpoints
// are immutable; the unique (account, period) index rejects rewrites.
type CheckpointRepository struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(pool *pgxpool.Pool) *CheckpointRepository {
	return &CheckpointRepository{pool: pool}
}

// WithMetrics enables the created-checkpoint counter.
func (r *CheckpointRepository) WithMetrics(m *metrics.Metrics) *CheckpointRepository {
	r.metrics = m

	return r
}

// Create persists a checkpoint.
func (r *CheckpointRepository) Create(ctx context.Context, tx usecase.Transaction, checkpoint *domain.AccountBalanceCheckpoint) error {
	balances, err := fundAmountsToJSON(checkpoint.Balances)
	if err != nil {
		return err
	}

	_, err = unwrap(tx, r.pool).Exec(ctx,
		`INSERT INTO account_balance_checkpoints (`+checkpointColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		checkpoint.ID,
		checkpoint.AccountID,
		checkpoint.Period.Year,
		int(checkpoint.Period.Month),
		balances,
		timeToPgTimestamptz(checkpoint.CreatedAt))

	if err == nil && r.metrics != nil {
		r.metrics.CheckpointsCreated.Inc()
	}

	return err
}

// GetByAccountAndPeriod retrieves the checkpoint at the start of a period.
func (r *CheckpointRepository) GetByAccountAndPeriod(ctx context.Context, accountID string, key domain.PeriodKey) (*domain.AccountBalanceCheckpoint, error) {
	return r.get(ctx,
		`SELECT `+checkpointColumns+` FROM account_balance_checkpoints
		 WHERE account_id = $1 AND period_year = $2 AND period_month = $3`,
		accountID, key.Year, int(key.Month))
}

// GetLatestThrough retrieves the most recent checkpoint at or before the
// given period.
func (r *CheckpointRepository) GetLatestThrough(ctx context.Context, accountID string, key domain.PeriodKey) (*domain.AccountBalanceCheckpoint, error) {
	return r.get(ctx,
		`SELECT `+checkpointColumns+` FROM account_balance_checkpoints
		 WHERE account_id = $1 AND (period_year, period_month) <= ($2, $3)
		 ORDER BY period_year DESC, period_month DESC
		 LIMIT 1`,
		accountID, key.Year, int(key.Month))
}

// ListByAccount lists an account's checkpoints in chronological order.
func (r *CheckpointRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.AccountBalanceCheckpoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+checkpointColumns+` FROM account_balance_checkpoints
		 WHERE account_id = $1
		 ORDER BY period_year, period_month`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []*domain.AccountBalanceCheckpoint

	for rows.Next() {
		checkpoint, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}

		checkpoints = append(checkpoints, checkpoint)
	}

	return checkpoints, rows.Err()
}

// DeleteByAccount removes every checkpoint of an account.
func (r *CheckpointRepository) DeleteByAccount(ctx context.Context, tx usecase.Transaction, accountID string) error {
	_, err := unwrap(tx, r.pool).Exec(ctx,
		`DELETE FROM account_balance_checkpoints WHERE account_id = $1`, accountID)

	return err
}

func (r *CheckpointRepository) get(ctx context.Context, query string, args ...any) (*domain.AccountBalanceCheckpoint, error) {
	checkpoint, err := scanCheckpoint(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCheckpointNotFound
		}

		return nil, err
	}

	return checkpoint, nil
}

func scanCheckpoint(row pgx.Row) (*domain.AccountBalanceCheckpoint, error) {
	var (
		checkpoint  domain.AccountBalanceCheckpoint
		year, month int
		balances    []byte
	)

	err := row.Scan(&checkpoint.ID, &checkpoint.AccountID, &year, &month, &balances, &checkpoint.CreatedAt)
	if err != nil {
		return nil, err
	}

	checkpoint.Period = domain.PeriodKey{Year: year, Month: time.Month(month)}

	checkpoint.Balances, err = fundAmountsFromJSON(balances)
	if err != nil {
		return nil, err
	}

	return &checkpoint, nil
}
