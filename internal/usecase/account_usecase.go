package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/fundledger/internal/domain"
)

// AccountUseCase handles account queries and maintenance. Account creation
// lives in EventUseCase.AddAccount because it records the added-event.
type AccountUseCase struct {
	txManager      TransactionManager
	accountRepo    AccountRepository
	eventRepo      BalanceEventRepository
	checkpointRepo CheckpointRepository
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	eventRepo BalanceEventRepository,
	checkpointRepo CheckpointRepository,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:      txManager,
		accountRepo:    accountRepo,
		eventRepo:      eventRepo,
		checkpointRepo: checkpointRepo,
	}
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// GetAccountByName retrieves an account by its unique name.
func (uc *AccountUseCase) GetAccountByName(ctx context.Context, name string) (*domain.Account, error) {
	return uc.accountRepo.GetByName(ctx, name)
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	if limit > maxPageSize {
		limit = maxPageSize
	}

	return uc.accountRepo.List(ctx, limit, offset)
}

// RenameAccount changes an account's globally unique name.
func (uc *AccountUseCase) RenameAccount(ctx context.Context, id, name string) (*domain.Account, error) {
	if err := domain.ValidateAccountName(name); err != nil {
		return nil, err
	}

	existing, err := uc.accountRepo.GetByName(ctx, name)
	switch {
	case err == nil && existing.ID != id:
		return nil, fmt.Errorf("%w: %q already exists", domain.ErrInvalidAccountName, name)
	case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	account.Name = name
	account.UpdatedAt = time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Update(ctx, tx, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return account, nil
}

// DeleteAccount removes an account that carries no history beyond its
// added-event, along with that event and any checkpoints.
func (uc *AccountUseCase) DeleteAccount(ctx context.Context, id string) error {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	count, err := uc.eventRepo.CountByAccount(ctx, account.ID)
	if err != nil {
		return err
	}

	if count > 1 {
		return fmt.Errorf("%w: account %s has balance events", domain.ErrUnableToDelete, account.Name)
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.eventRepo.DeleteByAccount(ctx, tx, account.ID); err != nil {
		return err
	}

	if err := uc.checkpointRepo.DeleteByAccount(ctx, tx, account.ID); err != nil {
		return err
	}

	if err := uc.accountRepo.Delete(ctx, tx, account.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
