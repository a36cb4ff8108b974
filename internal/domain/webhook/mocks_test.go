package webhook

import (
	"context"
	"sort"
	"sync"
	"time"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/domain/banksync"
	"ledgerly/internal/domain/notification"
	"ledgerly/internal/domain/transaction"
)

// MockSyncer implements Syncer
type MockSyncer struct {
	SyncFunc func(ctx context.Context, accountID int64) (*banksync.AccountSyncResult, error)
	Synced   []int64
}

func (m *MockSyncer) SyncTransactionsForAccount(ctx context.Context, accountID int64) (*banksync.AccountSyncResult, error) {
	m.Synced = append(m.Synced, accountID)
	if m.SyncFunc != nil {
		return m.SyncFunc(ctx, accountID)
	}
	return &banksync.AccountSyncResult{AccountID: accountID, Status: banksync.ResultSuccess}, nil
}

// MockNotifier implements Notifier
type MockNotifier struct {
	NotifyFunc func(ctx context.Context, familyID int64, itemID string, issue notification.Issue) error
	Calls      []int64
	Issues     []notification.Issue
}

func (m *MockNotifier) NotifyConnectionIssue(ctx context.Context, familyID int64, itemID string, issue notification.Issue) error {
	m.Calls = append(m.Calls, familyID)
	m.Issues = append(m.Issues, issue)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, familyID, itemID, issue)
	}
	return nil
}

// MockLogRepo implements LogRepository and keeps every appended entry
type MockLogRepo struct {
	AppendErr error
	Entries   []*LogEntry
}

func (m *MockLogRepo) Append(ctx context.Context, entry *LogEntry) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

// memAccounts is an in-memory bankaccount.Repository
type memAccounts struct {
	mu        sync.Mutex
	accounts  map[int64]*bankaccount.BankAccount
	UpdateErr error
}

func newMemAccounts(accounts ...*bankaccount.BankAccount) *memAccounts {
	r := &memAccounts{accounts: make(map[int64]*bankaccount.BankAccount)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *memAccounts) status(id int64) bankaccount.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id].SyncStatus
}

func (r *memAccounts) GetByID(ctx context.Context, id int64) (*bankaccount.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, bankaccount.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (r *memAccounts) ListByFamily(ctx context.Context, familyID int64, filter bankaccount.ListFilter) ([]*bankaccount.BankAccount, error) {
	return nil, nil
}

func (r *memAccounts) ListByItemID(ctx context.Context, itemID string) ([]*bankaccount.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bankaccount.BankAccount
	for _, a := range r.accounts {
		if a.ItemID == itemID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAccounts) ListFamiliesWithLinkedAccounts(ctx context.Context) ([]int64, error) {
	return nil, nil
}

func (r *memAccounts) UpdateSyncStatus(ctx context.Context, id int64, status bankaccount.SyncStatus, lastSyncAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return bankaccount.ErrAccountNotFound
	}
	acc.SyncStatus = status
	if lastSyncAt != nil {
		acc.LastSyncAt = lastSyncAt
	}
	return nil
}

func (r *memAccounts) UpdateBalances(ctx context.Context, id int64, update bankaccount.BalanceUpdate) error {
	return nil
}

func (r *memAccounts) UpdateStatusByItemID(ctx context.Context, itemID string, status bankaccount.SyncStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return 0, r.UpdateErr
	}
	var n int64
	for _, a := range r.accounts {
		if a.ItemID == itemID {
			a.SyncStatus = status
			n++
		}
	}
	return n, nil
}

// memTransactions is an in-memory transaction.Repository keyed on external id
type memTransactions struct {
	rows      map[string]*transaction.Transaction
	DeleteErr error
}

func newMemTransactions(externalIDs ...string) *memTransactions {
	r := &memTransactions{rows: make(map[string]*transaction.Transaction)}
	for i, id := range externalIDs {
		r.rows[id] = &transaction.Transaction{ID: int64(i + 1), ExternalID: id}
	}
	return r
}

func (r *memTransactions) ids() []string {
	out := make([]string, 0, len(r.rows))
	for id := range r.rows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *memTransactions) GetByExternalID(ctx context.Context, externalID string) (*transaction.Transaction, error) {
	return r.rows[externalID], nil
}

func (r *memTransactions) Create(ctx context.Context, params transaction.SyncParams) (*transaction.Transaction, error) {
	return nil, nil
}

func (r *memTransactions) Update(ctx context.Context, id int64, params transaction.SyncParams) (*transaction.Transaction, error) {
	return nil, nil
}

func (r *memTransactions) DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error) {
	if r.DeleteErr != nil {
		return 0, r.DeleteErr
	}
	var n int64
	for _, id := range externalIDs {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func strPtr(s string) *string { return &s }

func account(id, familyID int64, itemID string, status bankaccount.SyncStatus) *bankaccount.BankAccount {
	return &bankaccount.BankAccount{
		ID:          id,
		FamilyID:    familyID,
		ItemID:      itemID,
		AccessToken: strPtr("tok-" + itemID),
		SyncStatus:  status,
	}
}
