package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/fundledger/internal/domain"
)

// FundUseCase handles fund management.
type FundUseCase struct {
	txManager TransactionManager
	fundRepo  FundRepository
	eventRepo BalanceEventRepository
	idGen     IDGenerator
}

// NewFundUseCase creates a new FundUseCase.
func NewFundUseCase(
	txManager TransactionManager,
	fundRepo FundRepository,
	eventRepo BalanceEventRepository,
	idGen IDGenerator,
) *FundUseCase {
	return &FundUseCase{
		txManager: txManager,
		fundRepo:  fundRepo,
		eventRepo: eventRepo,
		idGen:     idGen,
	}
}

// CreateFund creates a fund with a unique name.
func (uc *FundUseCase) CreateFund(ctx context.Context, name string) (*domain.Fund, error) {
	fund, err := domain.NewFund(uc.idGen.Generate(), name, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	_, err = uc.fundRepo.GetByName(ctx, fund.Name)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %q already exists", domain.ErrInvalidFundName, fund.Name)
	case !errors.Is(err, domain.ErrFundNotFound):
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.fundRepo.Create(ctx, tx, fund); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return fund, nil
}

// GetFund retrieves a fund by ID.
func (uc *FundUseCase) GetFund(ctx context.Context, id string) (*domain.Fund, error) {
	return uc.fundRepo.GetByID(ctx, id)
}

// GetFundByName retrieves a fund by name.
func (uc *FundUseCase) GetFundByName(ctx context.Context, name string) (*domain.Fund, error) {
	return uc.fundRepo.GetByName(ctx, name)
}

// ListFunds lists funds with pagination.
func (uc *FundUseCase) ListFunds(ctx context.Context, limit, offset int) ([]*domain.Fund, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	if limit > maxPageSize {
		limit = maxPageSize
	}

	return uc.fundRepo.List(ctx, limit, offset)
}

// DeleteFund removes a fund no balance event references.
func (uc *FundUseCase) DeleteFund(ctx context.Context, id string) error {
	fund, err := uc.fundRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := uc.eventRepo.ExistsForFund(ctx, fund.ID)
	if err != nil {
		return err
	}

	if inUse {
		return fmt.Errorf("%w: %q", domain.ErrFundStillInUse, fund.Name)
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.fundRepo.Delete(ctx, tx, fund.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
