package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

func TestBalanceAtDate_BeforeAccountAdded(t *testing.T) {
	e := newEnv(t)
	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 10), amt("cash", "1000"))

	balance, err := e.balances.BalanceAtDate(context.Background(), "checking", date(2024, time.January, 9))
	require.NoError(t, err)
	require.True(t, balance.Equal(domain.NewAccountBalance("checking")))
}

func TestBalanceAtDate_ReplaysEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 10), amt("cash", "1000"))
	e.seedEvent(t, addedLeg("checking", "tx-1", domain.LegSideCredit, date(2024, time.January, 15), amt("cash", "-200")))

	balance, err := e.balances.BalanceAtDate(ctx, "checking", date(2024, time.January, 31))
	require.NoError(t, err)

	requireAmount(t, "1000", balance.SettledFor("cash"))
	requireAmount(t, "-200", balance.PendingFor("cash"))
	requireAmount(t, "800", balance.Available())

	// The pending leg is not visible before its date.
	before, err := e.balances.BalanceAtDate(ctx, "checking", date(2024, time.January, 14))
	require.NoError(t, err)
	requireAmount(t, "1000", before.Available())
}

func TestBalanceAtDate_CheckpointMatchesFullReplay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "1000"))
	e.seedEvent(t, changeEvent("checking", "cash", "-100", date(2024, time.January, 20)))
	e.seedEvent(t, addedLeg("checking", "tx-1", domain.LegSideCredit, date(2024, time.January, 25), amt("cash", "-150")))
	e.seedEvent(t, changeEvent("checking", "cash", "50", date(2024, time.February, 10)))

	at := date(2024, time.February, 28)

	full, err := e.balances.BalanceAtDate(ctx, "checking", at)
	require.NoError(t, err)

	// Checkpoint the January close: settled only, the unposted leg stays
	// pending across the boundary.
	cp, err := domain.NewAccountBalanceCheckpoint("cp-1", "checking",
		domain.PeriodKey{Year: 2024, Month: time.February},
		domain.NewFundAmounts(amt("cash", "900")), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, e.checkpoints.Create(ctx, nil, cp))

	fromCheckpoint, err := e.balances.BalanceAtDate(ctx, "checking", at)
	require.NoError(t, err)

	require.True(t, full.Equal(fromCheckpoint), "full replay %+v, via checkpoint %+v", full, fromCheckpoint)
	requireAmount(t, "950", fromCheckpoint.SettledFor("cash"))
	requireAmount(t, "-150", fromCheckpoint.PendingFor("cash"))
}

func TestBalanceAtDate_PendingClearsWhenLegPostsAfterCheckpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "1000"))
	e.seedEvent(t, addedLeg("checking", "tx-1", domain.LegSideCredit, date(2024, time.January, 20), amt("cash", "-300")))

	cp, err := domain.NewAccountBalanceCheckpoint("cp-1", "checking",
		domain.PeriodKey{Year: 2024, Month: time.February},
		domain.NewFundAmounts(amt("cash", "1000")), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, e.checkpoints.Create(ctx, nil, cp))

	e.seedEvent(t, postedLeg("checking", "tx-1", domain.LegSideCredit, date(2024, time.February, 3), amt("cash", "-300")))

	balance, err := e.balances.BalanceAtDate(ctx, "checking", date(2024, time.February, 28))
	require.NoError(t, err)

	requireAmount(t, "700", balance.SettledFor("cash"))
	requireAmount(t, "0", balance.PendingFor("cash"))
}

func TestBalanceAtDate_EventDatedPastPeriodEndSurvivesClose(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedFund(t, "cash", "cash")
	jan := e.seedOpenPeriod(t, 2024, time.January)

	account := e.addAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 1), amt("cash", "1000"))

	// Recorded against open January but dated into February, as the
	// adjacency window allows.
	_, err := e.eventUC.AddChangeInValue(ctx, usecase.AddChangeInValueInput{
		AccountID: account.ID,
		Date:      date(2024, time.February, 5),
		FundID:    "cash",
		Amount:    decimal.RequireFromString("100"),
	})
	require.NoError(t, err)

	at := date(2024, time.February, 28)

	before, err := e.balances.BalanceAtDate(ctx, account.ID, at)
	require.NoError(t, err)
	requireAmount(t, "1100", before.SettledFor("cash"))

	require.NoError(t, e.periodUC.ClosePeriod(ctx, jan.ID))

	// The February checkpoint holds the January month-end balance; the
	// forward-dated event still replays on top of it.
	after, err := e.balances.BalanceAtDate(ctx, account.ID, at)
	require.NoError(t, err)
	require.True(t, before.Equal(after), "before close %+v, after close %+v", before, after)
	requireAmount(t, "1100", after.SettledFor("cash"))
}

func TestBalanceAtDate_LegPostedPastPeriodEndSurvivesClose(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedFund(t, "cash", "cash")
	jan := e.seedOpenPeriod(t, 2024, time.January)

	payer := e.addAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 1), amt("cash", "1000"))
	payee := e.addAccount(t, "wallet", domain.AccountTypeStandard, date(2024, time.January, 1), amt("cash", "100"))

	legs, err := e.eventUC.AddTransaction(ctx, usecase.AddTransactionInput{
		Date:            date(2024, time.January, 20),
		Amounts:         []domain.FundAmount{amt("cash", "300")},
		DebitAccountID:  payee.ID,
		CreditAccountID: payer.ID,
	})
	require.NoError(t, err)

	// Both legs settle on a February date while January is still open, so
	// the posted counterparts land past the checkpoint boundary.
	for _, leg := range legs {
		_, err = e.eventUC.PostTransactionLeg(ctx, usecase.PostTransactionLegInput{
			LegEventID: leg.ID,
			PostedDate: date(2024, time.February, 3),
		})
		require.NoError(t, err)
	}

	at := date(2024, time.February, 28)

	before, err := e.balances.BalanceAtDate(ctx, payer.ID, at)
	require.NoError(t, err)

	require.NoError(t, e.periodUC.ClosePeriod(ctx, jan.ID))

	after, err := e.balances.BalanceAtDate(ctx, payer.ID, at)
	require.NoError(t, err)
	require.True(t, before.Equal(after), "before close %+v, after close %+v", before, after)
	requireAmount(t, "700", after.SettledFor("cash"))
	requireAmount(t, "0", after.PendingFor("cash"))
}

func TestBalanceAtEvent_StopsInsideTheDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "1000"))
	first := e.seedEvent(t, changeEvent("checking", "cash", "-100", date(2024, time.January, 10)))
	second := e.seedEvent(t, changeEvent("checking", "cash", "-50", date(2024, time.January, 10)))

	require.Equal(t, first.Sequence+1, second.Sequence)

	afterFirst, err := e.balances.BalanceAtEvent(ctx, "checking", first)
	require.NoError(t, err)
	requireAmount(t, "900", afterFirst.SettledFor("cash"))

	afterSecond, err := e.balances.BalanceAtEvent(ctx, "checking", second)
	require.NoError(t, err)
	requireAmount(t, "850", afterSecond.SettledFor("cash"))
}

func TestBalanceByAccountingPeriod_GroupsByPeriodKeyNotDate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "1000"))

	cp, err := domain.NewAccountBalanceCheckpoint("cp-1", "checking",
		domain.PeriodKey{Year: 2024, Month: time.February},
		domain.NewFundAmounts(amt("cash", "1000")), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, e.checkpoints.Create(ctx, nil, cp))

	// Dated on the last day of January but recorded against February: it
	// belongs to February's movement.
	late := changeEvent("checking", "cash", "-100", date(2024, time.January, 31))
	late.Period = domain.PeriodKey{Year: 2024, Month: time.February}
	e.seedEvent(t, late)

	e.seedEvent(t, changeEvent("checking", "cash", "40", date(2024, time.February, 10)))

	start, end, err := e.balances.BalanceByAccountingPeriod(ctx, "checking", domain.PeriodKey{Year: 2024, Month: time.February})
	require.NoError(t, err)

	requireAmount(t, "1000", start.SettledFor("cash"))
	requireAmount(t, "940", end.SettledFor("cash"))
}

func TestBalancesOverDateRange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "1000"))
	e.seedEvent(t, changeEvent("checking", "cash", "-100", date(2024, time.January, 11)))

	days, err := e.balances.BalancesOverDateRange(ctx, "checking", date(2024, time.January, 10), date(2024, time.January, 12))
	require.NoError(t, err)
	require.Len(t, days, 3)

	requireAmount(t, "1000", days[0].Balance.SettledFor("cash"))
	requireAmount(t, "900", days[1].Balance.SettledFor("cash"))
	requireAmount(t, "900", days[2].Balance.SettledFor("cash"))

	_, err = e.balances.BalancesOverDateRange(ctx, "checking", date(2024, time.January, 12), date(2024, time.January, 10))
	require.ErrorIs(t, err, domain.ErrInvalidEventDate)
}

func TestBalancesByEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "1000"))
	e.seedEvent(t, changeEvent("checking", "cash", "-100", date(2024, time.January, 10)))
	e.seedEvent(t, changeEvent("checking", "cash", "-50", date(2024, time.January, 10)))

	entries, err := e.balances.BalancesByEvent(ctx, "checking", date(2024, time.January, 10), date(2024, time.January, 10))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	requireAmount(t, "900", entries[0].Balance.SettledFor("cash"))
	requireAmount(t, "850", entries[1].Balance.SettledFor("cash"))
}

func TestBalanceAtDate_CacheServesUntilRevisionRolls(t *testing.T) {
	e := newCachedEnv(t)
	ctx := context.Background()

	e.seedFund(t, "cash", "cash")
	e.seedOpenPeriod(t, 2024, time.January)

	account, err := e.eventUC.AddAccount(ctx, usecase.AddAccountInput{
		Name:    "checking",
		Type:    domain.AccountTypeStandard,
		Date:    date(2024, time.January, 5),
		Opening: []domain.FundAmount{amt("cash", "1000")},
	})
	require.NoError(t, err)

	at := date(2024, time.January, 20)

	first, err := e.balances.BalanceAtDate(ctx, account.ID, at)
	require.NoError(t, err)
	requireAmount(t, "1000", first.SettledFor("cash"))

	// A write that bypasses the factories is invisible while the cached
	// revision stands.
	e.seedEvent(t, changeEvent(account.ID, "cash", "-100", date(2024, time.January, 10)))

	stale, err := e.balances.BalanceAtDate(ctx, account.ID, at)
	require.NoError(t, err)
	requireAmount(t, "1000", stale.SettledFor("cash"))

	// A write through the factory rolls the revision and the next read
	// replays everything.
	_, err = e.eventUC.AddChangeInValue(ctx, usecase.AddChangeInValueInput{
		AccountID: account.ID,
		Date:      date(2024, time.January, 15),
		FundID:    "cash",
		Amount:    decimal.RequireFromString("-50"),
	})
	require.NoError(t, err)

	fresh, err := e.balances.BalanceAtDate(ctx, account.ID, at)
	require.NoError(t, err)
	requireAmount(t, "850", fresh.SettledFor("cash"))
}
