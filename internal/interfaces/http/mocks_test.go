package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgerly/internal/domain/banksync"
	"ledgerly/internal/domain/webhook"
)

// MockBankSyncService implements BankSyncService for testing
type MockBankSyncService struct {
	SyncTransactionsForAccountFunc func(ctx context.Context, accountID int64) (*banksync.AccountSyncResult, error)
	SyncAllTransactionsFunc        func(ctx context.Context, familyID int64) ([]*banksync.AccountSyncResult, error)
	GetAccountBalancesFunc         func(ctx context.Context, familyID int64) ([]*banksync.AccountBalance, error)
	GetInstitutionInfoFunc         func(ctx context.Context, institutionID string) *banksync.Institution
	GetItemStatusFunc              func(ctx context.Context, familyID int64) ([]*banksync.ItemStatus, error)
	CreateLinkTokenForUpdateFunc   func(ctx context.Context, itemID, userID string) (*banksync.LinkToken, error)
	RefreshItemDataFunc            func(ctx context.Context, itemID string) (*banksync.ItemRefreshResult, error)
}

func (m *MockBankSyncService) SyncTransactionsForAccount(ctx context.Context, accountID int64) (*banksync.AccountSyncResult, error) {
	if m.SyncTransactionsForAccountFunc != nil {
		return m.SyncTransactionsForAccountFunc(ctx, accountID)
	}
	return &banksync.AccountSyncResult{AccountID: accountID, Status: banksync.ResultSuccess}, nil
}

func (m *MockBankSyncService) SyncAllTransactions(ctx context.Context, familyID int64) ([]*banksync.AccountSyncResult, error) {
	if m.SyncAllTransactionsFunc != nil {
		return m.SyncAllTransactionsFunc(ctx, familyID)
	}
	return nil, nil
}

func (m *MockBankSyncService) GetAccountBalances(ctx context.Context, familyID int64) ([]*banksync.AccountBalance, error) {
	if m.GetAccountBalancesFunc != nil {
		return m.GetAccountBalancesFunc(ctx, familyID)
	}
	return nil, nil
}

func (m *MockBankSyncService) GetInstitutionInfo(ctx context.Context, institutionID string) *banksync.Institution {
	if m.GetInstitutionInfoFunc != nil {
		return m.GetInstitutionInfoFunc(ctx, institutionID)
	}
	return nil
}

func (m *MockBankSyncService) GetItemStatus(ctx context.Context, familyID int64) ([]*banksync.ItemStatus, error) {
	if m.GetItemStatusFunc != nil {
		return m.GetItemStatusFunc(ctx, familyID)
	}
	return nil, nil
}

func (m *MockBankSyncService) CreateLinkTokenForUpdate(ctx context.Context, itemID, userID string) (*banksync.LinkToken, error) {
	if m.CreateLinkTokenForUpdateFunc != nil {
		return m.CreateLinkTokenForUpdateFunc(ctx, itemID, userID)
	}
	return &banksync.LinkToken{}, nil
}

func (m *MockBankSyncService) RefreshItemData(ctx context.Context, itemID string) (*banksync.ItemRefreshResult, error) {
	if m.RefreshItemDataFunc != nil {
		return m.RefreshItemDataFunc(ctx, itemID)
	}
	return &banksync.ItemRefreshResult{ItemID: itemID}, nil
}

// MockEventHandler implements EventHandler for testing
type MockEventHandler struct {
	HandleFunc func(ctx context.Context, event *webhook.Event) error
	calls      int
}

func (m *MockEventHandler) Handle(ctx context.Context, event *webhook.Event) error {
	m.calls++
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, event)
	}
	return nil
}

// MockVerifier implements Verifier for testing
type MockVerifier struct {
	VerifyFunc func(ctx context.Context, token string, body []byte) error
}

func (m *MockVerifier) Verify(ctx context.Context, token string, body []byte) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token, body)
	}
	return nil
}

// withURLParams attaches chi path parameters as the router would
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
