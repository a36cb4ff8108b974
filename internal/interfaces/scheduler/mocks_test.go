package scheduler

import (
	"context"
	"sync"

	"ledgerly/internal/domain/banksync"
)

// MockFamilySyncer implements FamilySyncer for testing
type MockFamilySyncer struct {
	SyncAllTransactionsFunc func(ctx context.Context, familyID int64) ([]*banksync.AccountSyncResult, error)
	GetAccountBalancesFunc  func(ctx context.Context, familyID int64) ([]*banksync.AccountBalance, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockFamilySyncer) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockFamilySyncer) SyncAllTransactions(ctx context.Context, familyID int64) ([]*banksync.AccountSyncResult, error) {
	m.record("sync")
	if m.SyncAllTransactionsFunc != nil {
		return m.SyncAllTransactionsFunc(ctx, familyID)
	}
	return nil, nil
}

func (m *MockFamilySyncer) GetAccountBalances(ctx context.Context, familyID int64) ([]*banksync.AccountBalance, error) {
	m.record("balances")
	if m.GetAccountBalancesFunc != nil {
		return m.GetAccountBalancesFunc(ctx, familyID)
	}
	return nil, nil
}

// MockFamilyLister implements FamilyLister for testing
type MockFamilyLister struct {
	ListFamiliesWithLinkedAccountsFunc func(ctx context.Context) ([]int64, error)
}

func (m *MockFamilyLister) ListFamiliesWithLinkedAccounts(ctx context.Context) ([]int64, error) {
	if m.ListFamiliesWithLinkedAccountsFunc != nil {
		return m.ListFamiliesWithLinkedAccountsFunc(ctx)
	}
	return nil, nil
}

// funcJob adapts a function to the Job interface
type funcJob struct {
	familyID int64
	run      func(ctx context.Context) error
}

func (j *funcJob) Execute(ctx context.Context) error { return j.run(ctx) }
func (j *funcJob) FamilyID() int64                   { return j.familyID }
func (j *funcJob) Description() string               { return "test job" }
