package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// FundRepository implements usecase.FundRepository.
type FundRepository struct {
	pool *pgxpool.Pool
}

// NewFundRepository creates a new FundRepository.
func NewFundRepository(pool *pgxpool.Pool) *FundRepository {
	return &FundRepository{pool: pool}
}

// Create creates a new fund.
func (r *FundRepository) Create(ctx context.Context, tx usecase.Transaction, fund *domain.Fund) error {
	_, err := unwrap(tx, r.pool).Exec(ctx,
		`INSERT INTO funds (id, name, created_at) VALUES ($1, $2, $3)`,
		fund.ID, fund.Name, timeToPgTimestamptz(fund.CreatedAt))

	return err
}

// GetByID retrieves a fund by ID.
func (r *FundRepository) GetByID(ctx context.Context, id string) (*domain.Fund, error) {
	return r.get(ctx, `SELECT id, name, created_at FROM funds WHERE id = $1`, id)
}

// GetByName retrieves a fund by its unique name.
func (r *FundRepository) GetByName(ctx context.Context, name string) (*domain.Fund, error) {
	return r.get(ctx, `SELECT id, name, created_at FROM funds WHERE name = $1`, name)
}

// Delete removes a fund.
func (r *FundRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	_, err := unwrap(tx, r.pool).Exec(ctx, `DELETE FROM funds WHERE id = $1`, id)

	return err
}

// List lists funds ordered by name with pagination.
func (r *FundRepository) List(ctx context.Context, limit, offset int) ([]*domain.Fund, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at FROM funds ORDER BY name LIMIT $1 OFFSET $2`,
		int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var funds []*domain.Fund

	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			return nil, err
		}

		funds = append(funds, fund)
	}

	return funds, rows.Err()
}

func (r *FundRepository) get(ctx context.Context, query string, arg any) (*domain.Fund, error) {
	fund, err := scanFund(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFundNotFound
		}

		return nil, err
	}

	return fund, nil
}

func scanFund(row pgx.Row) (*domain.Fund, error) {
	var fund domain.Fund
	if err := row.Scan(&fund.ID, &fund.Name, &fund.CreatedAt); err != nil {
		return nil, err
	}

	return &fund, nil
}
