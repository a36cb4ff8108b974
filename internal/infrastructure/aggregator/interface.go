package aggregator

import (
	"context"
)

// ClientInterface defines the methods required from the bank-data aggregation API client
type ClientInterface interface {
	GetTransactions(ctx context.Context, req TransactionsRequest) (*TransactionsResponse, error)
	GetBalances(ctx context.Context, accessToken string, accountIDs []string) (*AccountsResponse, error)
	GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error)
	GetInstitution(ctx context.Context, institutionID string, countryCodes []string) (*InstitutionResponse, error)
	GetItem(ctx context.Context, accessToken string) (*ItemResponse, error)
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error)
	GetWebhookVerificationKey(ctx context.Context, keyID string) (*VerificationKeyResponse, error)
}
