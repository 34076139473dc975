package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
	"github.com/iho/fundledger/internal/usecase/mocks"
)

type env struct {
	txManager   *mocks.MockTransactionManager
	accounts    *mocks.MockAccountRepository
	funds       *mocks.MockFundRepository
	periods     *mocks.MockPeriodRepository
	events      *mocks.MockEventRepository
	checkpoints *mocks.MockCheckpointRepository
	idGen       *mocks.MockIDGenerator
	cache       *mocks.MockCache

	balances  *usecase.BalanceService
	eventUC   *usecase.EventUseCase
	periodUC  *usecase.PeriodUseCase
	accountUC *usecase.AccountUseCase
	fundUC    *usecase.FundUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return buildEnv(t, nil)
}

func newCachedEnv(t *testing.T) *env {
	t.Helper()
	e := buildEnv(t, mocks.NewMockCache())
	return e
}

func buildEnv(t *testing.T, cache *mocks.MockCache) *env {
	t.Helper()

	e := &env{
		txManager:   mocks.NewMockTransactionManager(),
		accounts:    mocks.NewMockAccountRepository(),
		funds:       mocks.NewMockFundRepository(),
		periods:     mocks.NewMockPeriodRepository(),
		events:      mocks.NewMockEventRepository(),
		checkpoints: mocks.NewMockCheckpointRepository(),
		idGen:       mocks.NewMockIDGenerator(),
		cache:       cache,
	}

	var c usecase.Cache
	if cache != nil {
		c = cache
	}

	e.balances = usecase.NewBalanceService(e.accounts, e.events, e.checkpoints, c, time.Hour)
	e.eventUC = usecase.NewEventUseCase(e.txManager, e.accounts, e.funds, e.periods, e.events, e.balances, e.idGen, c)
	e.periodUC = usecase.NewPeriodUseCase(e.txManager, e.periods, e.events, e.checkpoints, e.balances, e.idGen)
	e.accountUC = usecase.NewAccountUseCase(e.txManager, e.accounts, e.events, e.checkpoints)
	e.fundUC = usecase.NewFundUseCase(e.txManager, e.funds, e.events, e.idGen)

	return e
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func amt(fundID, value string) domain.FundAmount {
	return domain.FundAmount{FundID: fundID, Amount: decimal.RequireFromString(value)}
}

func (e *env) seedFund(t *testing.T, id, name string) {
	t.Helper()
	err := e.funds.Create(context.Background(), nil, &domain.Fund{ID: id, Name: name, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
}

func (e *env) seedOpenPeriod(t *testing.T, year int, month time.Month) *domain.AccountingPeriod {
	t.Helper()

	period, err := e.periodUC.AddPeriod(context.Background(), year, month)
	require.NoError(t, err)

	return period
}

// seedAccount registers an account and its added-event directly through the
// repositories, bypassing the factories.
func (e *env) seedAccount(t *testing.T, id string, accountType domain.AccountType, added time.Time, opening ...domain.FundAmount) *domain.Account {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()

	event := &domain.BalanceEvent{
		ID:        id + "-added",
		AccountID: id,
		Period:    domain.PeriodKeyOf(added),
		Date:      added,
		Sequence:  e.nextSeq(t, added),
		Kind:      domain.EventKindAccountAdded,
		Opening:   domain.NewFundAmounts(opening...),
		CreatedAt: now,
	}

	account := &domain.Account{
		ID:           id,
		Name:         id,
		Type:         accountType,
		AddedEventID: event.ID,
		AddedDate:    added,
		AddedPeriod:  event.Period,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	require.NoError(t, e.accounts.Create(ctx, nil, account))
	require.NoError(t, e.events.Create(ctx, nil, event))

	return account
}

func (e *env) seedEvent(t *testing.T, event *domain.BalanceEvent) *domain.BalanceEvent {
	t.Helper()

	if event.ID == "" {
		event.ID = e.idGen.Generate()
	}

	if event.Period == (domain.PeriodKey{}) {
		event.Period = domain.PeriodKeyOf(event.Date)
	}

	if event.Sequence == 0 {
		event.Sequence = e.nextSeq(t, event.Date)
	}

	event.CreatedAt = time.Now().UTC()
	require.NoError(t, e.events.Create(context.Background(), nil, event))

	return event
}

func (e *env) nextSeq(t *testing.T, d time.Time) int {
	t.Helper()

	max, err := e.events.MaxSequenceOnDate(context.Background(), d)
	require.NoError(t, err)

	return max + 1
}

func addedLeg(accountID, transactionID string, side domain.LegSide, d time.Time, amounts ...domain.FundAmount) *domain.BalanceEvent {
	return legEvent(accountID, transactionID, side, domain.LegStatusAdded, d, amounts...)
}

func postedLeg(accountID, transactionID string, side domain.LegSide, d time.Time, amounts ...domain.FundAmount) *domain.BalanceEvent {
	return legEvent(accountID, transactionID, side, domain.LegStatusPosted, d, amounts...)
}

func legEvent(accountID, transactionID string, side domain.LegSide, status domain.LegStatus, d time.Time, amounts ...domain.FundAmount) *domain.BalanceEvent {
	return &domain.BalanceEvent{
		AccountID: accountID,
		Date:      d,
		Kind:      domain.EventKindTransactionLeg,
		Leg: &domain.TransactionLeg{
			TransactionID: transactionID,
			Side:          side,
			Status:        status,
			Amounts:       domain.NewFundAmounts(amounts...),
		},
	}
}

func changeEvent(accountID, fundID, value string, d time.Time) *domain.BalanceEvent {
	return &domain.BalanceEvent{
		AccountID: accountID,
		Date:      d,
		Kind:      domain.EventKindChangeInValue,
		Change:    &domain.ChangeInValue{FundID: fundID, Amount: decimal.RequireFromString(value)},
	}
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}
