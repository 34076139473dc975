package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

// revisionTTL bounds how long cached balances stay addressable. Balance
// cache entries carry the revision in their key, so they expire with it.
const revisionTTL = 24 * time.Hour

// EventUseCase is the factory for every balance event variant. Each factory
// runs the date gate, assigns the global per-date sequence, checks the
// variant's validity against the balance at that point, and only then hands
// the event to the repository inside one unit of work.
type EventUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	fundRepo    FundRepository
	periodRepo  AccountingPeriodRepository
	eventRepo   BalanceEventRepository
	balances    *BalanceService
	idGen       IDGenerator
	cache       Cache // optional, rolled on every write
}

// NewEventUseCase creates a new EventUseCase. cache may be nil.
func NewEventUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	fundRepo FundRepository,
	periodRepo AccountingPeriodRepository,
	eventRepo BalanceEventRepository,
	balances *BalanceService,
	idGen IDGenerator,
	cache Cache,
) *EventUseCase {
	return &EventUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		fundRepo:    fundRepo,
		periodRepo:  periodRepo,
		eventRepo:   eventRepo,
		balances:    balances,
		idGen:       idGen,
		cache:       cache,
	}
}

// AddAccountInput creates an account together with its added-event.
type AddAccountInput struct {
	Name    string
	Type    domain.AccountType
	Date    time.Time
	Opening []domain.FundAmount
}

// AddAccount records a new account and its immutable added-event, the first
// entry in the account's event order.
func (uc *EventUseCase) AddAccount(ctx context.Context, input AddAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}

	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAccountType, input.Type)
	}

	_, err := uc.accountRepo.GetByName(ctx, input.Name)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %q already exists", domain.ErrInvalidAccountName, input.Name)
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, err
	}

	period, err := uc.openPeriod(ctx)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateEventDate(period, nil, input.Date); err != nil {
		return nil, err
	}

	opening := domain.NewFundAmounts(input.Opening...)
	if err := uc.fundsExist(ctx, opening.FundIDs()); err != nil {
		return nil, err
	}

	date := domain.DateOnly(input.Date)

	seq, err := uc.nextSequence(ctx, date)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	event := &domain.BalanceEvent{
		ID:        uc.idGen.Generate(),
		AccountID: uc.idGen.Generate(),
		Period:    period.Key(),
		Date:      date,
		Sequence:  seq,
		Kind:      domain.EventKindAccountAdded,
		Opening:   opening,
		CreatedAt: now,
	}

	if err := event.ValidToApply(domain.NewAccountBalance(event.AccountID)); err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:           event.AccountID,
		Name:         input.Name,
		Type:         input.Type,
		AddedEventID: event.ID,
		AddedDate:    date,
		AddedPeriod:  period.Key(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, err
	}

	if err := uc.eventRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.rollRevision(ctx, account.ID)

	return account, nil
}

// AddTransactionInput carries one transaction with up to two legs. Amounts
// are positive; the sign convention of each account type is applied per leg.
type AddTransactionInput struct {
	Date            time.Time
	Amounts         []domain.FundAmount
	DebitAccountID  string
	CreditAccountID string
}

// AddTransaction records the transaction's legs as added (pending) events.
// The two legs carry symmetric fund amounts.
func (uc *EventUseCase) AddTransaction(ctx context.Context, input AddTransactionInput) ([]*domain.BalanceEvent, error) {
	amounts := domain.NewFundAmounts(input.Amounts...)
	if len(amounts) == 0 {
		return nil, fmt.Errorf("%w: transaction has no amounts", domain.ErrInvalidFundAmount)
	}

	for _, fa := range amounts {
		if !fa.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: amount for fund %s must be positive", domain.ErrInvalidFundAmount, fa.FundID)
		}
	}

	if input.DebitAccountID == "" && input.CreditAccountID == "" {
		return nil, fmt.Errorf("%w: transaction needs at least one leg", domain.ErrInvalidFundAmount)
	}

	if err := uc.fundsExist(ctx, amounts.FundIDs()); err != nil {
		return nil, err
	}

	period, err := uc.openPeriod(ctx)
	if err != nil {
		return nil, err
	}

	date := domain.DateOnly(input.Date)
	transactionID := uc.idGen.Generate()
	now := time.Now().UTC()

	seq, err := uc.nextSequence(ctx, date)
	if err != nil {
		return nil, err
	}

	legs := []struct {
		side      domain.LegSide
		accountID string
	}{
		{domain.LegSideDebit, input.DebitAccountID},
		{domain.LegSideCredit, input.CreditAccountID},
	}

	var events []*domain.BalanceEvent

	for _, leg := range legs {
		if leg.accountID == "" {
			continue
		}

		account, err := uc.accountRepo.GetByID(ctx, leg.accountID)
		if err != nil {
			return nil, err
		}

		if err := domain.ValidateEventDate(period, account, date); err != nil {
			return nil, err
		}

		event := &domain.BalanceEvent{
			ID:        uc.idGen.Generate(),
			AccountID: account.ID,
			Period:    period.Key(),
			Date:      date,
			Sequence:  seq,
			Kind:      domain.EventKindTransactionLeg,
			Leg: &domain.TransactionLeg{
				TransactionID: transactionID,
				Side:          leg.side,
				Status:        domain.LegStatusAdded,
				Amounts:       account.SignedLegAmounts(leg.side, amounts),
			},
			CreatedAt: now,
		}
		seq++

		balance, err := uc.balances.BalanceAtDate(ctx, account.ID, date)
		if err != nil {
			return nil, err
		}

		if err := event.ValidToApply(balance); err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, event := range events {
		if err := uc.eventRepo.Create(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for _, event := range events {
		uc.rollRevision(ctx, event.AccountID)
	}

	return events, nil
}

// PostTransactionLegInput settles one added leg at PostedDate.
type PostTransactionLegInput struct {
	LegEventID string
	PostedDate time.Time
}

// PostTransactionLeg converts a pending leg into a settled one by recording
// its posted counterpart. Settling tightens the non-negative constraint for
// every day between the added and posted dates, so the whole window is
// re-checked before the event is accepted.
func (uc *EventUseCase) PostTransactionLeg(ctx context.Context, input PostTransactionLegInput) (*domain.BalanceEvent, error) {
	added, err := uc.eventRepo.GetByID(ctx, input.LegEventID)
	if err != nil {
		return nil, err
	}

	if added.Kind != domain.EventKindTransactionLeg {
		return nil, fmt.Errorf("%w: %s is not a transaction leg", domain.ErrBalanceEventNotFound, input.LegEventID)
	}

	if added.Leg.Status != domain.LegStatusAdded {
		return nil, domain.ErrTransactionLegAlreadyPosted
	}

	posted, err := uc.eventRepo.HasPostedCounterpart(ctx, added.Leg.TransactionID, added.Leg.Side)
	if err != nil {
		return nil, err
	}

	if posted {
		return nil, domain.ErrTransactionLegAlreadyPosted
	}

	account, err := uc.accountRepo.GetByID(ctx, added.AccountID)
	if err != nil {
		return nil, err
	}

	period, err := uc.openPeriod(ctx)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateEventDate(period, account, input.PostedDate); err != nil {
		return nil, err
	}

	postedDate := domain.DateOnly(input.PostedDate)
	addedDate := domain.DateOnly(added.Date)

	if postedDate.Before(addedDate) {
		return nil, fmt.Errorf("%w: posted before the leg was added", domain.ErrInvalidEventDate)
	}

	if err := uc.checkPostingWindow(ctx, account.ID, added.Leg.Amounts, addedDate, postedDate); err != nil {
		return nil, err
	}

	event := &domain.BalanceEvent{
		ID:        uc.idGen.Generate(),
		AccountID: account.ID,
		Period:    period.Key(),
		Date:      postedDate,
		Kind:      domain.EventKindTransactionLeg,
		Leg: &domain.TransactionLeg{
			TransactionID: added.Leg.TransactionID,
			Side:          added.Leg.Side,
			Status:        domain.LegStatusPosted,
			Amounts:       added.Leg.Amounts.Clone(),
		},
		CreatedAt: time.Now().UTC(),
	}

	event.Sequence, err = uc.nextSequence(ctx, postedDate)
	if err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.eventRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.rollRevision(ctx, account.ID)

	return event, nil
}

// AddFundConversionInput moves Amount from one fund to another within the
// same account, instantaneously.
type AddFundConversionInput struct {
	AccountID  string
	Date       time.Time
	FromFundID string
	ToFundID   string
	Amount     decimal.Decimal
}

// AddFundConversion records a fund conversion event.
func (uc *EventUseCase) AddFundConversion(ctx context.Context, input AddFundConversionInput) (*domain.BalanceEvent, error) {
	event := &domain.BalanceEvent{
		Kind: domain.EventKindFundConversion,
		Conversion: &domain.FundConversion{
			FromFundID: input.FromFundID,
			ToFundID:   input.ToFundID,
			Amount:     input.Amount,
		},
	}

	if err := uc.fundsExist(ctx, []string{input.FromFundID, input.ToFundID}); err != nil {
		return nil, err
	}

	return uc.addSingleEvent(ctx, input.AccountID, input.Date, event)
}

// AddChangeInValueInput applies a signed non-zero amount directly to one
// fund (interest, market value drift).
type AddChangeInValueInput struct {
	AccountID string
	Date      time.Time
	FundID    string
	Amount    decimal.Decimal
}

// AddChangeInValue records a change-in-value event.
func (uc *EventUseCase) AddChangeInValue(ctx context.Context, input AddChangeInValueInput) (*domain.BalanceEvent, error) {
	event := &domain.BalanceEvent{
		Kind: domain.EventKindChangeInValue,
		Change: &domain.ChangeInValue{
			FundID: input.FundID,
			Amount: input.Amount,
		},
	}

	if err := uc.fundsExist(ctx, []string{input.FundID}); err != nil {
		return nil, err
	}

	return uc.addSingleEvent(ctx, input.AccountID, input.Date, event)
}

// addSingleEvent finishes a partially built single-account event: date
// gate, sequence, validity against the balance at that point, persist.
func (uc *EventUseCase) addSingleEvent(ctx context.Context, accountID string, date time.Time, event *domain.BalanceEvent) (*domain.BalanceEvent, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	period, err := uc.openPeriod(ctx)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateEventDate(period, account, date); err != nil {
		return nil, err
	}

	event.ID = uc.idGen.Generate()
	event.AccountID = account.ID
	event.Period = period.Key()
	event.Date = domain.DateOnly(date)
	event.CreatedAt = time.Now().UTC()

	event.Sequence, err = uc.nextSequence(ctx, event.Date)
	if err != nil {
		return nil, err
	}

	balance, err := uc.balances.BalanceAtDate(ctx, account.ID, event.Date)
	if err != nil {
		return nil, err
	}

	if err := event.ValidToApply(balance); err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.eventRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.rollRevision(ctx, account.ID)

	return event, nil
}

// checkPostingWindow verifies the settled balance stays non-negative on
// every day between the added and posted dates once the leg settles.
func (uc *EventUseCase) checkPostingWindow(ctx context.Context, accountID string, amounts domain.FundAmounts, from, to time.Time) error {
	total := amounts.Total()

	days, err := uc.balances.BalancesOverDateRange(ctx, accountID, from, to)
	if err != nil {
		return err
	}

	for _, day := range days {
		for _, fa := range amounts {
			if !fa.Amount.IsNegative() {
				continue
			}

			if day.Balance.SettledFor(fa.FundID).Add(fa.Amount).IsNegative() {
				return fmt.Errorf("%w: fund %s on %s", domain.ErrInvalidFundBalance,
					fa.FundID, day.Date.Format("2006-01-02"))
			}
		}

		if total.IsNegative() && day.Balance.Balance().Add(total).IsNegative() {
			return fmt.Errorf("%w: on %s", domain.ErrInvalidAccountBalance, day.Date.Format("2006-01-02"))
		}
	}

	return nil
}

func (uc *EventUseCase) openPeriod(ctx context.Context) (*domain.AccountingPeriod, error) {
	period, err := uc.periodRepo.GetOpen(ctx)
	if errors.Is(err, domain.ErrAccountingPeriodNotFound) {
		return nil, domain.ErrNoOpenAccountingPeriod
	}

	return period, err
}

// nextSequence implements first-free sequence assignment, global per
// calendar date: one above the highest sequence any event uses on it.
func (uc *EventUseCase) nextSequence(ctx context.Context, date time.Time) (int, error) {
	max, err := uc.eventRepo.MaxSequenceOnDate(ctx, date)
	if err != nil {
		return 0, err
	}

	return max + 1, nil
}

func (uc *EventUseCase) fundsExist(ctx context.Context, fundIDs []string) error {
	for _, fundID := range fundIDs {
		if _, err := uc.fundRepo.GetByID(ctx, fundID); err != nil {
			return err
		}
	}

	return nil
}

// rollRevision invalidates every cached balance of an account by making
// the revisioned cache keys unreachable.
func (uc *EventUseCase) rollRevision(ctx context.Context, accountID string) {
	if uc.cache == nil {
		return
	}

	_ = uc.cache.Set(ctx, accountRevisionKeyPrefix+accountID, []byte(uc.idGen.Generate()), revisionTTL)
}
