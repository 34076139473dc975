package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/fundledger/internal/domain"
)

// PeriodUseCase orchestrates the accounting period lifecycle: sequential
// gap-free adds, fully-settled closes that checkpoint every affected
// account, and deletion of the trailing empty period.
type PeriodUseCase struct {
	txManager      TransactionManager
	periodRepo     AccountingPeriodRepository
	eventRepo      BalanceEventRepository
	checkpointRepo CheckpointRepository
	balances       *BalanceService
	idGen          IDGenerator
}

// NewPeriodUseCase creates a new PeriodUseCase.
func NewPeriodUseCase(
	txManager TransactionManager,
	periodRepo AccountingPeriodRepository,
	eventRepo BalanceEventRepository,
	checkpointRepo CheckpointRepository,
	balances *BalanceService,
	idGen IDGenerator,
) *PeriodUseCase {
	return &PeriodUseCase{
		txManager:      txManager,
		periodRepo:     periodRepo,
		eventRepo:      eventRepo,
		checkpointRepo: checkpointRepo,
		balances:       balances,
		idGen:          idGen,
	}
}

// AddPeriod opens the period for (year, month). The very first period may be
// any valid month; afterwards only the month directly after the latest
// existing period is accepted, and only while no other period is open.
func (uc *PeriodUseCase) AddPeriod(ctx context.Context, year int, month time.Month) (*domain.AccountingPeriod, error) {
	key, err := domain.NewPeriodKey(year, month)
	if err != nil {
		return nil, err
	}

	_, err = uc.periodRepo.GetByKey(ctx, key)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateAccountingPeriod, key)
	case !errors.Is(err, domain.ErrAccountingPeriodNotFound):
		return nil, err
	}

	latest, err := uc.periodRepo.GetLatest(ctx)
	switch {
	case errors.Is(err, domain.ErrAccountingPeriodNotFound):
		// First period ever.
	case err != nil:
		return nil, err
	default:
		if latest.Key().Next() != key {
			return nil, fmt.Errorf("%w: latest is %s, got %s", domain.ErrNonSequentialAccountingPeriod, latest.Key(), key)
		}

		if latest.IsOpen {
			return nil, fmt.Errorf("%w: %s", domain.ErrEarlierAccountingPeriodStillOpen, latest.Key())
		}
	}

	period, err := domain.NewAccountingPeriod(uc.idGen.Generate(), year, month, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.periodRepo.Create(ctx, tx, period); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return period, nil
}

// ClosePeriod settles a period: it refuses while any transaction leg dated
// in the period is unposted, then computes each affected account's balance
// at the period end and persists it as the checkpoint for the next period.
func (uc *PeriodUseCase) ClosePeriod(ctx context.Context, periodID string) error {
	period, err := uc.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		return err
	}

	if !period.IsOpen {
		return fmt.Errorf("%w: %s", domain.ErrAccountingPeriodIsClosed, period.Key())
	}

	open, err := uc.periodRepo.GetOpen(ctx)
	if err != nil && !errors.Is(err, domain.ErrAccountingPeriodNotFound) {
		return err
	}

	if open != nil && open.ID != period.ID && open.Key().Before(period.Key()) {
		return fmt.Errorf("%w: %s", domain.ErrEarlierAccountingPeriodStillOpen, open.Key())
	}

	key := period.Key()

	pending, err := uc.eventRepo.CountUnpostedLegsInPeriod(ctx, key)
	if err != nil {
		return err
	}

	if pending > 0 {
		return fmt.Errorf("%w: %d unposted transaction legs in %s",
			domain.ErrAccountingPeriodHasPendingBalanceChanges, pending, key)
	}

	accountIDs, err := uc.eventRepo.AccountIDsWithEventsThrough(ctx, key)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, accountID := range accountIDs {
		end, err := uc.balances.BalanceAtDate(ctx, accountID, key.End())
		if err != nil {
			return err
		}

		checkpoint, err := domain.NewAccountBalanceCheckpoint(
			uc.idGen.Generate(), accountID, key.Next(), end.Settled, now)
		if err != nil {
			return fmt.Errorf("%w: account %s: %w", domain.ErrUnableToCloseAccountingPeriod, accountID, err)
		}

		if err := uc.checkpointRepo.Create(ctx, tx, checkpoint); err != nil {
			return err
		}
	}

	if err := period.Close(now); err != nil {
		return err
	}

	if err := uc.periodRepo.Update(ctx, tx, period); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeletePeriod removes the single most recent period, and only while no
// balance event is recorded against it.
func (uc *PeriodUseCase) DeletePeriod(ctx context.Context, periodID string) error {
	period, err := uc.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		return err
	}

	latest, err := uc.periodRepo.GetLatest(ctx)
	if err != nil {
		return err
	}

	if latest.ID != period.ID {
		return fmt.Errorf("%w: %s is not the most recent period", domain.ErrUnableToDeleteAccountingPeriod, period.Key())
	}

	count, err := uc.eventRepo.CountByPeriod(ctx, period.Key())
	if err != nil {
		return err
	}

	if count > 0 {
		return fmt.Errorf("%w: %s has %d events", domain.ErrAccountingPeriodHasBalanceEvents, period.Key(), count)
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.periodRepo.Delete(ctx, tx, period.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetPeriod retrieves a period by ID.
func (uc *PeriodUseCase) GetPeriod(ctx context.Context, id string) (*domain.AccountingPeriod, error) {
	return uc.periodRepo.GetByID(ctx, id)
}

// GetPeriodByKey retrieves the period for a calendar month.
func (uc *PeriodUseCase) GetPeriodByKey(ctx context.Context, year int, month time.Month) (*domain.AccountingPeriod, error) {
	key, err := domain.NewPeriodKey(year, month)
	if err != nil {
		return nil, err
	}

	return uc.periodRepo.GetByKey(ctx, key)
}

// ListPeriods lists periods with pagination.
func (uc *PeriodUseCase) ListPeriods(ctx context.Context, limit, offset int) ([]*domain.AccountingPeriod, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	if limit > maxPageSize {
		limit = maxPageSize
	}

	return uc.periodRepo.List(ctx, limit, offset)
}
