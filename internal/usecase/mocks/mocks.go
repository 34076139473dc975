package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// MockTransaction is a no-op unit of work recording commit/rollback calls.
type MockTransaction struct {
	Commits   int
	Rollbacks int

	CommitFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	m.Commits++
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	m.Rollbacks++
	return nil
}

// MockTransactionManager hands out MockTransactions.
type MockTransactionManager struct {
	Transactions []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	tx := &MockTransaction{}
	m.Transactions = append(m.Transactions, tx)
	return tx, nil
}

// MockIDGenerator yields deterministic sequential IDs.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("id-%04d", m.next)
}

// MockCache is an in-memory usecase.Cache.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("cache miss: %s", key)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// MockAccountRepository is an in-memory usecase.AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc    func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc   func(ctx context.Context, id string) (*domain.Account, error)
	GetByNameFunc func(ctx context.Context, name string) (*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, name)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.accounts {
		if acc.Name == name {
			return acc, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

// MockFundRepository is an in-memory usecase.FundRepository.
type MockFundRepository struct {
	mu    sync.RWMutex
	funds map[string]*domain.Fund

	GetByIDFunc func(ctx context.Context, id string) (*domain.Fund, error)
}

func NewMockFundRepository() *MockFundRepository {
	return &MockFundRepository{funds: make(map[string]*domain.Fund)}
}

func (m *MockFundRepository) Create(ctx context.Context, tx usecase.Transaction, fund *domain.Fund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funds[fund.ID] = fund
	return nil
}

func (m *MockFundRepository) GetByID(ctx context.Context, id string) (*domain.Fund, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.funds[id]; ok {
		return f, nil
	}
	return nil, domain.ErrFundNotFound
}

func (m *MockFundRepository) GetByName(ctx context.Context, name string) (*domain.Fund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.funds {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, domain.ErrFundNotFound
}

func (m *MockFundRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.funds, id)
	return nil
}

func (m *MockFundRepository) List(ctx context.Context, limit, offset int) ([]*domain.Fund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Fund, 0, len(m.funds))
	for _, f := range m.funds {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

// MockPeriodRepository is an in-memory usecase.AccountingPeriodRepository.
type MockPeriodRepository struct {
	mu      sync.RWMutex
	periods map[string]*domain.AccountingPeriod
}

func NewMockPeriodRepository() *MockPeriodRepository {
	return &MockPeriodRepository{periods: make(map[string]*domain.AccountingPeriod)}
}

func (m *MockPeriodRepository) Create(ctx context.Context, tx usecase.Transaction, period *domain.AccountingPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[period.ID] = period
	return nil
}

func (m *MockPeriodRepository) GetByID(ctx context.Context, id string) (*domain.AccountingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.periods[id]; ok {
		return p, nil
	}
	return nil, domain.ErrAccountingPeriodNotFound
}

func (m *MockPeriodRepository) GetByKey(ctx context.Context, key domain.PeriodKey) (*domain.AccountingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.periods {
		if p.Key() == key {
			return p, nil
		}
	}
	return nil, domain.ErrAccountingPeriodNotFound
}

func (m *MockPeriodRepository) GetLatest(ctx context.Context) (*domain.AccountingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.AccountingPeriod
	for _, p := range m.periods {
		if latest == nil || latest.Key().Before(p.Key()) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrAccountingPeriodNotFound
	}
	return latest, nil
}

func (m *MockPeriodRepository) GetOpen(ctx context.Context) (*domain.AccountingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.periods {
		if p.IsOpen {
			return p, nil
		}
	}
	return nil, domain.ErrAccountingPeriodNotFound
}

func (m *MockPeriodRepository) Update(ctx context.Context, tx usecase.Transaction, period *domain.AccountingPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.periods[period.ID]; !ok {
		return domain.ErrAccountingPeriodNotFound
	}
	m.periods[period.ID] = period
	return nil
}

func (m *MockPeriodRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.periods, id)
	return nil
}

func (m *MockPeriodRepository) List(ctx context.Context, limit, offset int) ([]*domain.AccountingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.AccountingPeriod, 0, len(m.periods))
	for _, p := range m.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Before(out[j].Key()) })
	return page(out, limit, offset), nil
}

// MockEventRepository is an in-memory usecase.BalanceEventRepository
// implementing every query over a flat event slice.
type MockEventRepository struct {
	mu     sync.RWMutex
	events []*domain.BalanceEvent

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, event *domain.BalanceEvent) error
	MaxSequenceOnDateFunc func(ctx context.Context, date time.Time) (int, error)
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.BalanceEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.BalanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ev := range m.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return nil, domain.ErrBalanceEventNotFound
}

func (m *MockEventRepository) ListByAccountFromPeriod(ctx context.Context, accountID string, from domain.PeriodKey, through time.Time) ([]*domain.BalanceEvent, error) {
	return m.filter(func(ev *domain.BalanceEvent) bool {
		return ev.AccountID == accountID &&
			!coveredByCheckpoint(ev, from) &&
			!domain.DateOnly(ev.Date).After(domain.DateOnly(through))
	}), nil
}

func (m *MockEventRepository) ListByAccountAndPeriod(ctx context.Context, accountID string, key domain.PeriodKey) ([]*domain.BalanceEvent, error) {
	return m.filter(func(ev *domain.BalanceEvent) bool {
		return ev.AccountID == accountID && ev.Period == key
	}), nil
}

func (m *MockEventRepository) ListByAccountInDateRange(ctx context.Context, accountID string, from, to time.Time) ([]*domain.BalanceEvent, error) {
	return m.filter(func(ev *domain.BalanceEvent) bool {
		d := domain.DateOnly(ev.Date)
		return ev.AccountID == accountID &&
			!d.Before(domain.DateOnly(from)) &&
			!d.After(domain.DateOnly(to))
	}), nil
}

func (m *MockEventRepository) ListUnpostedLegsBefore(ctx context.Context, accountID string, before domain.PeriodKey) ([]*domain.BalanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.BalanceEvent
	for _, ev := range m.events {
		if ev.AccountID != accountID || ev.Kind != domain.EventKindTransactionLeg {
			continue
		}
		if ev.Leg.Status != domain.LegStatusAdded || !coveredByCheckpoint(ev, before) {
			continue
		}
		if m.postedBeforeLocked(ev.Leg.TransactionID, ev.Leg.Side, before) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (m *MockEventRepository) CountUnpostedLegsInPeriod(ctx context.Context, key domain.PeriodKey) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, ev := range m.events {
		if ev.Kind != domain.EventKindTransactionLeg || ev.Leg.Status != domain.LegStatusAdded || ev.Period != key {
			continue
		}
		if !m.hasPostedLocked(ev.Leg.TransactionID, ev.Leg.Side) {
			count++
		}
	}
	return count, nil
}

func (m *MockEventRepository) CountByPeriod(ctx context.Context, key domain.PeriodKey) (int, error) {
	return len(m.filter(func(ev *domain.BalanceEvent) bool { return ev.Period == key })), nil
}

func (m *MockEventRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	return len(m.filter(func(ev *domain.BalanceEvent) bool { return ev.AccountID == accountID })), nil
}

func (m *MockEventRepository) AccountIDsWithEventsThrough(ctx context.Context, key domain.PeriodKey) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, ev := range m.events {
		if ev.Period.Compare(key) > 0 || seen[ev.AccountID] {
			continue
		}
		seen[ev.AccountID] = true
		out = append(out, ev.AccountID)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockEventRepository) MaxSequenceOnDate(ctx context.Context, date time.Time) (int, error) {
	if m.MaxSequenceOnDateFunc != nil {
		return m.MaxSequenceOnDateFunc(ctx, date)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, ev := range m.events {
		if domain.DateOnly(ev.Date).Equal(domain.DateOnly(date)) && ev.Sequence > max {
			max = ev.Sequence
		}
	}
	return max, nil
}

func (m *MockEventRepository) HasPostedCounterpart(ctx context.Context, transactionID string, side domain.LegSide) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasPostedLocked(transactionID, side), nil
}

func (m *MockEventRepository) ExistsForFund(ctx context.Context, fundID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ev := range m.events {
		if eventTouchesFund(ev, fundID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockEventRepository) DeleteByAccount(ctx context.Context, tx usecase.Transaction, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, ev := range m.events {
		if ev.AccountID != accountID {
			kept = append(kept, ev)
		}
	}
	m.events = kept
	return nil
}

func (m *MockEventRepository) filter(keep func(*domain.BalanceEvent) bool) []*domain.BalanceEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.BalanceEvent
	for _, ev := range m.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return out
}

func (m *MockEventRepository) hasPostedLocked(transactionID string, side domain.LegSide) bool {
	for _, ev := range m.events {
		if ev.Kind == domain.EventKindTransactionLeg &&
			ev.Leg.Status == domain.LegStatusPosted &&
			ev.Leg.TransactionID == transactionID &&
			ev.Leg.Side == side {
			return true
		}
	}
	return false
}

func (m *MockEventRepository) postedBeforeLocked(transactionID string, side domain.LegSide, before domain.PeriodKey) bool {
	for _, ev := range m.events {
		if ev.Kind == domain.EventKindTransactionLeg &&
			ev.Leg.Status == domain.LegStatusPosted &&
			ev.Leg.TransactionID == transactionID &&
			ev.Leg.Side == side &&
			coveredByCheckpoint(ev, before) {
			return true
		}
	}
	return false
}

// coveredByCheckpoint reports whether the checkpoint for the given period
// already accounts for the event: recorded against an earlier period and
// dated before the period's first day. The adjacency window lets those two
// axes disagree near month boundaries.
func coveredByCheckpoint(ev *domain.BalanceEvent, key domain.PeriodKey) bool {
	return ev.Period.Before(key) && domain.DateOnly(ev.Date).Before(key.Start())
}

func eventTouchesFund(ev *domain.BalanceEvent, fundID string) bool {
	switch ev.Kind {
	case domain.EventKindAccountAdded:
		return !ev.Opening.Amount(fundID).IsZero()
	case domain.EventKindTransactionLeg:
		return !ev.Leg.Amounts.Amount(fundID).IsZero()
	case domain.EventKindFundConversion:
		return ev.Conversion.FromFundID == fundID || ev.Conversion.ToFundID == fundID
	case domain.EventKindChangeInValue:
		return ev.Change.FundID == fundID
	}
	return false
}

// MockCheckpointRepository is an in-memory usecase.CheckpointRepository.
type MockCheckpointRepository struct {
	mu          sync.RWMutex
	checkpoints []*domain.AccountBalanceCheckpoint

	CreateFunc func(ctx context.Context, tx usecase.Transaction, checkpoint *domain.AccountBalanceCheckpoint) error
}

func NewMockCheckpointRepository() *MockCheckpointRepository {
	return &MockCheckpointRepository{}
}

func (m *MockCheckpointRepository) Create(ctx context.Context, tx usecase.Transaction, checkpoint *domain.AccountBalanceCheckpoint) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, checkpoint)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints = append(m.checkpoints, checkpoint)
	return nil
}

func (m *MockCheckpointRepository) GetByAccountAndPeriod(ctx context.Context, accountID string, key domain.PeriodKey) (*domain.AccountBalanceCheckpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cp := range m.checkpoints {
		if cp.AccountID == accountID && cp.Period == key {
			return cp, nil
		}
	}
	return nil, domain.ErrCheckpointNotFound
}

func (m *MockCheckpointRepository) GetLatestThrough(ctx context.Context, accountID string, key domain.PeriodKey) (*domain.AccountBalanceCheckpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.AccountBalanceCheckpoint
	for _, cp := range m.checkpoints {
		if cp.AccountID != accountID || cp.Period.Compare(key) > 0 {
			continue
		}
		if latest == nil || latest.Period.Before(cp.Period) {
			latest = cp
		}
	}
	if latest == nil {
		return nil, domain.ErrCheckpointNotFound
	}
	return latest, nil
}

func (m *MockCheckpointRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.AccountBalanceCheckpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AccountBalanceCheckpoint
	for _, cp := range m.checkpoints {
		if cp.AccountID == accountID {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (m *MockCheckpointRepository) DeleteByAccount(ctx context.Context, tx usecase.Transaction, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.checkpoints[:0]
	for _, cp := range m.checkpoints {
		if cp.AccountID != accountID {
			kept = append(kept, cp)
		}
	}
	m.checkpoints = kept
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
