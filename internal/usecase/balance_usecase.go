package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iho/fundledger/internal/domain"
)

// Cache key prefixes shared with the event factories, which roll the
// per-account revision on every write.
const (
	accountRevisionKeyPrefix = "account-rev:"
	balanceKeyPrefix         = "balance:"
)

// BalanceService reconstructs account balances at any date, event or
// accounting period. Reads are pure: the service never writes through its
// repositories. Replay cost is bounded by checkpoints created at period
// close.
type BalanceService struct {
	accountRepo    AccountRepository
	eventRepo      BalanceEventRepository
	checkpointRepo CheckpointRepository
	cache          Cache // optional
	cacheTTL       time.Duration
}

// NewBalanceService creates a BalanceService. cache may be nil to disable
// balance caching.
func NewBalanceService(
	accountRepo AccountRepository,
	eventRepo BalanceEventRepository,
	checkpointRepo CheckpointRepository,
	cache Cache,
	cacheTTL time.Duration,
) *BalanceService {
	return &BalanceService{
		accountRepo:    accountRepo,
		eventRepo:      eventRepo,
		checkpointRepo: checkpointRepo,
		cache:          cache,
		cacheTTL:       cacheTTL,
	}
}

// DatedBalance pairs a calendar day with the balance at the end of it.
type DatedBalance struct {
	Date    time.Time
	Balance domain.AccountBalance
}

// EventBalance pairs a balance event with the balance immediately after it.
type EventBalance struct {
	Event   *domain.BalanceEvent
	Balance domain.AccountBalance
}

// BalanceAtDate returns the account's balance at the end of a calendar day.
// Dates before the account's added-event yield the empty balance.
func (s *BalanceService) BalanceAtDate(ctx context.Context, accountID string, at time.Time) (domain.AccountBalance, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.AccountBalance{}, err
	}

	at = domain.DateOnly(at)
	if at.Before(domain.DateOnly(account.AddedDate)) {
		return domain.NewAccountBalance(accountID), nil
	}

	cacheKey, cached, ok := s.cachedBalance(ctx, accountID, at)
	if ok {
		return cached, nil
	}

	balance, err := s.replayThrough(ctx, account, at, nil)
	if err != nil {
		return domain.AccountBalance{}, err
	}

	s.storeBalance(ctx, cacheKey, balance)

	return balance, nil
}

// BalanceAtEvent returns the balance immediately after the given event is
// applied. Same-day ties are broken by the event total order, so replay
// stops right after the target event, not at end of day.
func (s *BalanceService) BalanceAtEvent(ctx context.Context, accountID string, event *domain.BalanceEvent) (domain.AccountBalance, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.AccountBalance{}, err
	}

	return s.replayThrough(ctx, account, domain.DateOnly(event.Date), event)
}

// BalanceByAccountingPeriod returns the starting balance (the period's
// checkpoint, empty if none) and the ending balance produced by replaying
// only events recorded against that period key. Events dated near a month
// boundary stay grouped by their stored period key, never by date.
func (s *BalanceService) BalanceByAccountingPeriod(ctx context.Context, accountID string, key domain.PeriodKey) (start, end domain.AccountBalance, err error) {
	if _, err = s.accountRepo.GetByID(ctx, accountID); err != nil {
		return domain.AccountBalance{}, domain.AccountBalance{}, err
	}

	start = domain.NewAccountBalance(accountID)

	cp, err := s.checkpointRepo.GetByAccountAndPeriod(ctx, accountID, key)
	switch {
	case err == nil:
		start.Settled = cp.Balances.Clone()
	case errors.Is(err, domain.ErrCheckpointNotFound):
	default:
		return domain.AccountBalance{}, domain.AccountBalance{}, err
	}

	end = start.Clone()

	unposted, err := s.eventRepo.ListUnpostedLegsBefore(ctx, accountID, key)
	if err != nil {
		return domain.AccountBalance{}, domain.AccountBalance{}, err
	}

	for _, leg := range unposted {
		end.Pending = end.Pending.Merge(leg.Leg.Amounts)
	}

	events, err := s.eventRepo.ListByAccountAndPeriod(ctx, accountID, key)
	if err != nil {
		return domain.AccountBalance{}, domain.AccountBalance{}, err
	}

	domain.SortEvents(events)

	for _, ev := range events {
		end, err = ev.Apply(end)
		if err != nil {
			return domain.AccountBalance{}, domain.AccountBalance{}, err
		}
	}

	return start, end, nil
}

// BalancesOverDateRange produces one balance per calendar day in [from, to],
// carrying the running balance forward so the whole range costs one replay.
func (s *BalanceService) BalancesOverDateRange(ctx context.Context, accountID string, from, to time.Time) ([]DatedBalance, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", domain.ErrInvalidEventDate)
	}

	running, err := s.BalanceAtDate(ctx, accountID, from.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByAccountInDateRange(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	domain.SortEvents(events)

	var out []DatedBalance

	i := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for i < len(events) && domain.DateOnly(events[i].Date).Equal(day) {
			running, err = events[i].Apply(running)
			if err != nil {
				return nil, err
			}

			i++
		}

		out = append(out, DatedBalance{Date: day, Balance: running.Clone()})
	}

	return out, nil
}

// BalancesByEvent produces one entry per balance event in [from, to], each
// carrying the running balance immediately after that event.
func (s *BalanceService) BalancesByEvent(ctx context.Context, accountID string, from, to time.Time) ([]EventBalance, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", domain.ErrInvalidEventDate)
	}

	running, err := s.BalanceAtDate(ctx, accountID, from.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByAccountInDateRange(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	domain.SortEvents(events)

	out := make([]EventBalance, 0, len(events))
	for _, ev := range events {
		running, err = ev.Apply(running)
		if err != nil {
			return nil, err
		}

		out = append(out, EventBalance{Event: ev, Balance: running.Clone()})
	}

	return out, nil
}

// replayThrough rebuilds the balance at date at, optionally stopping right
// after stopAt when same-day events follow it in the total order.
func (s *BalanceService) replayThrough(ctx context.Context, account *domain.Account, at time.Time, stopAt *domain.BalanceEvent) (domain.AccountBalance, error) {
	balance, fromKey, err := s.baseBalance(ctx, account, at)
	if err != nil {
		return domain.AccountBalance{}, err
	}

	events, err := s.eventRepo.ListByAccountFromPeriod(ctx, account.ID, fromKey, at)
	if err != nil {
		return domain.AccountBalance{}, err
	}

	domain.SortEvents(events)

	for _, ev := range events {
		if stopAt != nil && domain.CompareEvents(ev, stopAt) > 0 {
			break
		}

		balance, err = ev.Apply(balance)
		if err != nil {
			return domain.AccountBalance{}, err
		}
	}

	return balance, nil
}

// baseBalance picks the nearest usable checkpoint at or before the month of
// at, falling back to the empty pre-added-event balance. Pending changes
// from legs still unposted at the checkpoint boundary are carried over.
func (s *BalanceService) baseBalance(ctx context.Context, account *domain.Account, at time.Time) (domain.AccountBalance, domain.PeriodKey, error) {
	balance := domain.NewAccountBalance(account.ID)
	fromKey := account.AddedPeriod

	cp, err := s.checkpointRepo.GetLatestThrough(ctx, account.ID, domain.PeriodKeyOf(at))
	switch {
	case errors.Is(err, domain.ErrCheckpointNotFound):
		return balance, fromKey, nil
	case err != nil:
		return domain.AccountBalance{}, domain.PeriodKey{}, err
	}

	balance.Settled = cp.Balances.Clone()
	fromKey = cp.Period

	unposted, err := s.eventRepo.ListUnpostedLegsBefore(ctx, account.ID, cp.Period)
	if err != nil {
		return domain.AccountBalance{}, domain.PeriodKey{}, err
	}

	for _, leg := range unposted {
		balance.Pending = balance.Pending.Merge(leg.Leg.Amounts)
	}

	return balance, fromKey, nil
}

type cachedBalance struct {
	Settled domain.FundAmounts `json:"settled"`
	Pending domain.FundAmounts `json:"pending"`
}

// cachedBalance builds the revisioned cache key for (account, date) and
// returns a hit if present. A rolled revision makes every older key
// unreachable, so stale balances are never served after a write.
func (s *BalanceService) cachedBalance(ctx context.Context, accountID string, at time.Time) (string, domain.AccountBalance, bool) {
	if s.cache == nil {
		return "", domain.AccountBalance{}, false
	}

	rev, err := s.cache.Get(ctx, accountRevisionKeyPrefix+accountID)
	if err != nil {
		rev = nil
	}

	key := fmt.Sprintf("%s%s:%s:%s", balanceKeyPrefix, accountID, at.Format("2006-01-02"), rev)

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return key, domain.AccountBalance{}, false
	}

	var cb cachedBalance
	if err := json.Unmarshal(data, &cb); err != nil {
		return key, domain.AccountBalance{}, false
	}

	return key, domain.AccountBalance{AccountID: accountID, Settled: cb.Settled, Pending: cb.Pending}, true
}

func (s *BalanceService) storeBalance(ctx context.Context, key string, balance domain.AccountBalance) {
	if s.cache == nil || key == "" {
		return
	}

	data, err := json.Marshal(cachedBalance{Settled: balance.Settled, Pending: balance.Pending})
	if err != nil {
		return
	}

	// Cache failures only cost a future replay.
	_ = s.cache.Set(ctx, key, data, s.cacheTTL)
}
