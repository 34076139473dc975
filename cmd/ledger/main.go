package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	pgrepo "github.com/iho/fundledger/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/fundledger/internal/adapter/repository/redis"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/config"
	"github.com/iho/fundledger/internal/infrastructure/logger"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/infrastructure/postgres"
	"github.com/iho/fundledger/internal/infrastructure/redis"
	"github.com/iho/fundledger/internal/usecase"
)

// app bundles the configuration, connections and use cases behind the CLI
// commands. Commands that touch the database call connect first.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	pool *pgxpool.Pool

	funds    *usecase.FundUseCase
	accounts *usecase.AccountUseCase
	periods  *usecase.PeriodUseCase
	events   *usecase.EventUseCase
	balances *usecase.BalanceService
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "fundledger",
		Short:         "Fundledger personal finance ledger",
		Long:          `A double-entry ledger for personal finances: funds, accounts, accounting periods and balance events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a.cfg = cfg
			a.log = logger.New(logger.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
			})

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.pool != nil {
				a.pool.Close()
			}
		},
	}

	rootCmd.AddCommand(
		a.migrateCmd(),
		a.fundCmd(),
		a.accountCmd(),
		a.periodCmd(),
		a.txCmd(),
		a.convertCmd(),
		a.revalueCmd(),
		a.balanceCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// connect opens the database pool and wires repositories and use cases.
func (a *app) connect(ctx context.Context) error {
	pool, err := postgres.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DatabaseMaxConns, a.cfg.DatabaseMinConns, a.cfg.DatabaseTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	a.pool = pool

	var m *metrics.Metrics
	if a.cfg.MetricsAddr != "" {
		m = metrics.New()
		go metrics.Serve(a.cfg.MetricsAddr, a.log)
	}

	var cache usecase.Cache
	if a.cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		c := redisrepo.NewCache(client)
		if m != nil {
			c = c.WithMetrics(m)
		}
		cache = c
	}

	txManager := pgrepo.NewTxManager(pool)
	fundRepo := pgrepo.NewFundRepository(pool)
	accountRepo := pgrepo.NewAccountRepository(pool)
	periodRepo := pgrepo.NewPeriodRepository(pool)
	eventRepo := pgrepo.NewEventRepository(pool)
	checkpointRepo := pgrepo.NewCheckpointRepository(pool)
	if m != nil {
		periodRepo = periodRepo.WithMetrics(m)
		eventRepo = eventRepo.WithMetrics(m)
		checkpointRepo = checkpointRepo.WithMetrics(m)
	}

	idGen := pgrepo.NewULIDGenerator()

	a.balances = usecase.NewBalanceService(accountRepo, eventRepo, checkpointRepo, cache, a.cfg.CacheTTL)
	a.funds = usecase.NewFundUseCase(txManager, fundRepo, eventRepo, idGen)
	a.accounts = usecase.NewAccountUseCase(txManager, accountRepo, eventRepo, checkpointRepo)
	a.periods = usecase.NewPeriodUseCase(txManager, periodRepo, eventRepo, checkpointRepo, a.balances, idGen)
	a.events = usecase.NewEventUseCase(txManager, accountRepo, fundRepo, periodRepo, eventRepo, a.balances, idGen, cache)

	return nil
}

// resolveAccount accepts either an account name or an account ID.
func (a *app) resolveAccount(ctx context.Context, ref string) (*domain.Account, error) {
	account, err := a.accounts.GetAccountByName(ctx, ref)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	return a.accounts.GetAccount(ctx, ref)
}

// resolveFund accepts either a fund name or a fund ID.
func (a *app) resolveFund(ctx context.Context, ref string) (*domain.Fund, error) {
	fund, err := a.funds.GetFundByName(ctx, ref)
	if err == nil {
		return fund, nil
	}
	if !errors.Is(err, domain.ErrFundNotFound) {
		return nil, err
	}

	return a.funds.GetFund(ctx, ref)
}
