package banksync

import (
	"context"
	"sort"
	"sync"
	"time"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/domain/transaction"
	"ledgerly/internal/infrastructure/aggregator"
)

// MockClient implements aggregator.ClientInterface
type MockClient struct {
	GetTransactionsFunc           func(ctx context.Context, req aggregator.TransactionsRequest) (*aggregator.TransactionsResponse, error)
	GetBalancesFunc               func(ctx context.Context, accessToken string, accountIDs []string) (*aggregator.AccountsResponse, error)
	GetAccountsFunc               func(ctx context.Context, accessToken string) (*aggregator.AccountsResponse, error)
	GetInstitutionFunc            func(ctx context.Context, institutionID string, countryCodes []string) (*aggregator.InstitutionResponse, error)
	GetItemFunc                   func(ctx context.Context, accessToken string) (*aggregator.ItemResponse, error)
	CreateLinkTokenFunc           func(ctx context.Context, req aggregator.LinkTokenRequest) (*aggregator.LinkTokenResponse, error)
	GetWebhookVerificationKeyFunc func(ctx context.Context, keyID string) (*aggregator.VerificationKeyResponse, error)
}

func (m *MockClient) GetTransactions(ctx context.Context, req aggregator.TransactionsRequest) (*aggregator.TransactionsResponse, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, req)
	}
	return &aggregator.TransactionsResponse{}, nil
}

func (m *MockClient) GetBalances(ctx context.Context, accessToken string, accountIDs []string) (*aggregator.AccountsResponse, error) {
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx, accessToken, accountIDs)
	}
	return &aggregator.AccountsResponse{}, nil
}

func (m *MockClient) GetAccounts(ctx context.Context, accessToken string) (*aggregator.AccountsResponse, error) {
	if m.GetAccountsFunc != nil {
		return m.GetAccountsFunc(ctx, accessToken)
	}
	return &aggregator.AccountsResponse{}, nil
}

func (m *MockClient) GetInstitution(ctx context.Context, institutionID string, countryCodes []string) (*aggregator.InstitutionResponse, error) {
	if m.GetInstitutionFunc != nil {
		return m.GetInstitutionFunc(ctx, institutionID, countryCodes)
	}
	return &aggregator.InstitutionResponse{}, nil
}

func (m *MockClient) GetItem(ctx context.Context, accessToken string) (*aggregator.ItemResponse, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, accessToken)
	}
	return &aggregator.ItemResponse{}, nil
}

func (m *MockClient) CreateLinkToken(ctx context.Context, req aggregator.LinkTokenRequest) (*aggregator.LinkTokenResponse, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, req)
	}
	return &aggregator.LinkTokenResponse{}, nil
}

func (m *MockClient) GetWebhookVerificationKey(ctx context.Context, keyID string) (*aggregator.VerificationKeyResponse, error) {
	if m.GetWebhookVerificationKeyFunc != nil {
		return m.GetWebhookVerificationKeyFunc(ctx, keyID)
	}
	return &aggregator.VerificationKeyResponse{}, nil
}

// memAccountRepo is an in-memory bankaccount.Repository
type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*bankaccount.BankAccount

	UpdateBalancesErr error
	// SyncStatusErr fails UpdateSyncStatus for the statuses it returns an error for.
	SyncStatusErr func(status bankaccount.SyncStatus) error
}

func newMemAccountRepo(accounts ...*bankaccount.BankAccount) *memAccountRepo {
	r := &memAccountRepo{accounts: make(map[int64]*bankaccount.BankAccount)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *memAccountRepo) sorted() []*bankaccount.BankAccount {
	out := make([]*bankaccount.BankAccount, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memAccountRepo) get(id int64) *bankaccount.BankAccount {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := *r.accounts[id]
	return &acc
}

func (r *memAccountRepo) GetByID(ctx context.Context, id int64) (*bankaccount.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, bankaccount.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (r *memAccountRepo) ListByFamily(ctx context.Context, familyID int64, filter bankaccount.ListFilter) ([]*bankaccount.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bankaccount.BankAccount
	for _, a := range r.sorted() {
		if a.FamilyID == familyID && filter.Matches(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAccountRepo) ListByItemID(ctx context.Context, itemID string) ([]*bankaccount.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bankaccount.BankAccount
	for _, a := range r.sorted() {
		if a.ItemID == itemID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAccountRepo) ListFamiliesWithLinkedAccounts(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[int64]bool)
	var out []int64
	for _, a := range r.sorted() {
		if a.IsLinked() && !a.IsDeleted() && a.SyncStatus != bankaccount.StatusDisconnected && !seen[a.FamilyID] {
			seen[a.FamilyID] = true
			out = append(out, a.FamilyID)
		}
	}
	return out, nil
}

func (r *memAccountRepo) UpdateSyncStatus(ctx context.Context, id int64, status bankaccount.SyncStatus, lastSyncAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SyncStatusErr != nil {
		if err := r.SyncStatusErr(status); err != nil {
			return err
		}
	}
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

func (r *memAccountRepo) UpdateBalances(ctx context.Context, id int64, update bankaccount.BalanceUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateBalancesErr != nil {
		return r.UpdateBalancesErr
	}
	acc, ok := r.accounts[id]
	if !ok {
		return bankaccount.ErrAccountNotFound
	}
	acc.CurrentBalance = update.Current
	acc.AvailableBalance = update.Available
	acc.CreditLimit = update.Limit
	acc.Currency = update.Currency
	now := time.Now()
	acc.BalanceUpdatedAt = &now
	if update.MarkActive {
		acc.SyncStatus = bankaccount.StatusActive
	}
	return nil
}

func (r *memAccountRepo) UpdateStatusByItemID(ctx context.Context, itemID string, status bankaccount.SyncStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.accounts {
		if a.ItemID == itemID {
			a.SyncStatus = status
			n++
		}
	}
	return n, nil
}

// memTransactionRepo is an in-memory transaction.Repository keyed on external id
type memTransactionRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*transaction.Transaction

	CreateErr error
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{rows: make(map[string]*transaction.Transaction)}
}

func (r *memTransactionRepo) apply(tx *transaction.Transaction, p transaction.SyncParams) {
	tx.AccountID = p.AccountID
	tx.ExternalID = p.ExternalID
	tx.Amount = p.Amount
	tx.Currency = p.Currency
	tx.Date = p.Date
	tx.Description = p.Description
	tx.MerchantName = p.MerchantName
	tx.Pending = p.Pending
	tx.CategoryID = p.CategoryID
	tx.Category = p.Category
	tx.AccountOwner = p.AccountOwner
}

func (r *memTransactionRepo) GetByExternalID(ctx context.Context, externalID string) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[externalID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (r *memTransactionRepo) Create(ctx context.Context, params transaction.SyncParams) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	r.nextID++
	tx := &transaction.Transaction{ID: r.nextID}
	r.apply(tx, params)
	r.rows[params.ExternalID] = tx
	cp := *tx
	return &cp, nil
}

func (r *memTransactionRepo) Update(ctx context.Context, id int64, params transaction.SyncParams) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.rows {
		if tx.ID == id {
			r.apply(tx, params)
			cp := *tx
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memTransactionRepo) DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range externalIDs {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *memTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func strPtr(s string) *string { return &s }

func linkedAccount(id, familyID int64, itemID, externalID, token string) *bankaccount.BankAccount {
	return &bankaccount.BankAccount{
		ID:                id,
		FamilyID:          familyID,
		ItemID:            itemID,
		ExternalAccountID: externalID,
		AccessToken:       strPtr(token),
		InstitutionID:     "ins_1",
		Name:              "Checking " + externalID,
		Currency:          "USD",
		SyncStatus:        bankaccount.StatusActive,
	}
}
