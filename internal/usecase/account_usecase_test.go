package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iho/fundledger/internal/domain"
)

func TestRenameAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "100"))
	e.seedAccount(t, "savings", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "100"))

	renamed, err := e.accountUC.RenameAccount(ctx, "checking", "everyday")
	require.NoError(t, err)
	require.Equal(t, "everyday", renamed.Name)

	stored, err := e.accountUC.GetAccountByName(ctx, "everyday")
	require.NoError(t, err)
	require.Equal(t, "checking", stored.ID)

	t.Run("name taken", func(t *testing.T) {
		_, err := e.accountUC.RenameAccount(ctx, "checking", "savings")
		require.ErrorIs(t, err, domain.ErrInvalidAccountName)
	})

	t.Run("rename to itself", func(t *testing.T) {
		_, err := e.accountUC.RenameAccount(ctx, "checking", "everyday")
		require.NoError(t, err)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := e.accountUC.RenameAccount(ctx, "checking", "   ")
		require.ErrorIs(t, err, domain.ErrInvalidAccountName)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := e.accountUC.RenameAccount(ctx, "missing", "whatever")
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestDeleteAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "100"))

	t.Run("history beyond the added-event", func(t *testing.T) {
		e.seedEvent(t, changeEvent("checking", "cash", "-10", date(2024, time.January, 10)))

		err := e.accountUC.DeleteAccount(ctx, "checking")
		require.ErrorIs(t, err, domain.ErrUnableToDelete)
	})

	t.Run("added-event only", func(t *testing.T) {
		e.seedAccount(t, "empty", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "100"))

		require.NoError(t, e.accountUC.DeleteAccount(ctx, "empty"))

		_, err := e.accountUC.GetAccount(ctx, "empty")
		require.ErrorIs(t, err, domain.ErrAccountNotFound)

		count, err := e.events.CountByAccount(ctx, "empty")
		require.NoError(t, err)
		require.Zero(t, count)
	})
}

func TestListAccounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedAccount(t, "checking", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "100"))
	e.seedAccount(t, "savings", domain.AccountTypeStandard, date(2024, time.January, 5), amt("cash", "100"))

	accounts, err := e.accountUC.ListAccounts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	accounts, err = e.accountUC.ListAccounts(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}
