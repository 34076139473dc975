package usecase

import (
	"context"
	"time"

	"github.com/iho/fundledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	Update(ctx context.Context, tx Transaction, account *domain.Account) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// FundRepository defines data access for funds.
type FundRepository interface {
	Create(ctx context.Context, tx Transaction, fund *domain.Fund) error
	GetByID(ctx context.Context, id string) (*domain.Fund, error)
	GetByName(ctx context.Context, name string) (*domain.Fund, error)
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, limit, offset int) ([]*domain.Fund, error)
}

// AccountingPeriodRepository defines data access for accounting periods.
type AccountingPeriodRepository interface {
	Create(ctx context.Context, tx Transaction, period *domain.AccountingPeriod) error
	GetByID(ctx context.Context, id string) (*domain.AccountingPeriod, error)
	GetByKey(ctx context.Context, key domain.PeriodKey) (*domain.AccountingPeriod, error)
	GetLatest(ctx context.Context) (*domain.AccountingPeriod, error)
	GetOpen(ctx context.Context) (*domain.AccountingPeriod, error)
	Update(ctx context.Context, tx Transaction, period *domain.AccountingPeriod) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, limit, offset int) ([]*domain.AccountingPeriod, error)
}

// BalanceEventRepository defines data access for the merged balance event
// stream. Queries returning multiple events make no ordering promise;
// callers sort by the domain total order.
type BalanceEventRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.BalanceEvent) error
	GetByID(ctx context.Context, id string) (*domain.BalanceEvent, error)

	// ListByAccountFromPeriod returns the account's events dated on or
	// before through that the checkpoint for period from does not cover:
	// events recorded against from or later, plus events recorded against an
	// earlier period but dated on or after from's first day.
	ListByAccountFromPeriod(ctx context.Context, accountID string, from domain.PeriodKey, through time.Time) ([]*domain.BalanceEvent, error)

	// ListByAccountAndPeriod returns the account's events recorded against
	// exactly one period key, regardless of event date.
	ListByAccountAndPeriod(ctx context.Context, accountID string, key domain.PeriodKey) ([]*domain.BalanceEvent, error)

	ListByAccountInDateRange(ctx context.Context, accountID string, from, to time.Time) ([]*domain.BalanceEvent, error)

	// ListUnpostedLegsBefore returns added transaction legs covered by the
	// checkpoint for period before (recorded against an earlier period and
	// dated before its first day) whose posted counterpart does not exist or
	// is not itself covered by that checkpoint.
	ListUnpostedLegsBefore(ctx context.Context, accountID string, before domain.PeriodKey) ([]*domain.BalanceEvent, error)

	CountUnpostedLegsInPeriod(ctx context.Context, key domain.PeriodKey) (int, error)
	CountByPeriod(ctx context.Context, key domain.PeriodKey) (int, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)

	// AccountIDsWithEventsThrough lists every account holding at least one
	// event recorded against key or an earlier period.
	AccountIDsWithEventsThrough(ctx context.Context, key domain.PeriodKey) ([]string, error)

	// MaxSequenceOnDate returns the highest sequence used on a calendar
	// date across all accounts and event kinds, zero when the date is empty.
	MaxSequenceOnDate(ctx context.Context, date time.Time) (int, error)

	HasPostedCounterpart(ctx context.Context, transactionID string, side domain.LegSide) (bool, error)
	ExistsForFund(ctx context.Context, fundID string) (bool, error)
	DeleteByAccount(ctx context.Context, tx Transaction, accountID string) error
}

// CheckpointRepository defines data access for account balance checkpoints.
type CheckpointRepository interface {
	Create(ctx context.Context, tx Transaction, checkpoint *domain.AccountBalanceCheckpoint) error
	GetByAccountAndPeriod(ctx context.Context, accountID string, key domain.PeriodKey) (*domain.AccountBalanceCheckpoint, error)

	// GetLatestThrough returns the newest checkpoint whose period key is
	// key or earlier.
	GetLatestThrough(ctx context.Context, accountID string, key domain.PeriodKey) (*domain.AccountBalanceCheckpoint, error)

	ListByAccount(ctx context.Context, accountID string) ([]*domain.AccountBalanceCheckpoint, error)
	DeleteByAccount(ctx context.Context, tx Transaction, accountID string) error
}

// Transaction represents one unit of work; commit persists every change
// made through it atomically.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles unit-of-work lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
