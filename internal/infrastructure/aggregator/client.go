package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	SandboxURL    = "https://sandbox.plaid.com"
	ProductionURL = "https://production.plaid.com"

	defaultTimeout = 60 * time.Second

	transactionsPath    = "/transactions/get"
	balancesPath        = "/accounts/balance/get"
	accountsPath        = "/accounts/get"
	institutionPath     = "/institutions/get_by_id"
	itemPath            = "/item/get"
	linkTokenPath       = "/link/token/create"
	verificationKeyPath = "/webhook_verification_key/get"
)

// Config holds credentials and transport settings for the client
type Config struct {
	BaseURL  string
	ClientID string
	Secret   string
	// RequestsPerSecond caps outbound calls; zero or negative disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client handles communication with the aggregation API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	limiter    *rate.Limiter
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new aggregation API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = SandboxURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  baseURL,
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		limiter:  limiter,
	}
}

// BaseURLForEnvironment maps an environment name to its API host.
func BaseURLForEnvironment(env string) string {
	switch env {
	case "production":
		return ProductionURL
	default:
		return SandboxURL
	}
}

// post sends a JSON request and decodes a 200 response into out.
// Non-200 responses are returned as *APIError when the body parses, a plain error otherwise.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PLAID-CLIENT-ID", c.clientID)
	req.Header.Set("PLAID-SECRET", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.ErrorCode == "" {
			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// GetTransactions fetches one page of transactions for an access token
func (c *Client) GetTransactions(ctx context.Context, req TransactionsRequest) (*TransactionsResponse, error) {
	var resp TransactionsResponse
	if err := c.post(ctx, transactionsPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBalances fetches real-time balances, optionally scoped to specific account ids
func (c *Client) GetBalances(ctx context.Context, accessToken string, accountIDs []string) (*AccountsResponse, error) {
	type options struct {
		AccountIDs []string `json:"account_ids,omitempty"`
	}
	body := struct {
		AccessToken string   `json:"access_token"`
		Options     *options `json:"options,omitempty"`
	}{AccessToken: accessToken}
	if len(accountIDs) > 0 {
		body.Options = &options{AccountIDs: accountIDs}
	}

	var resp AccountsResponse
	if err := c.post(ctx, balancesPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccounts lists the accounts under an item using cached balances
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	body := struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: accessToken}

	var resp AccountsResponse
	if err := c.post(ctx, accountsPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetInstitution fetches institution metadata by id
func (c *Client) GetInstitution(ctx context.Context, institutionID string, countryCodes []string) (*InstitutionResponse, error) {
	body := InstitutionRequest{
		InstitutionID: institutionID,
		CountryCodes:  countryCodes,
		Options:       &InstitutionOptions{IncludeOptionalMetadata: true},
	}

	var resp InstitutionResponse
	if err := c.post(ctx, institutionPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetItem fetches the item (connection) metadata including its current error
func (c *Client) GetItem(ctx context.Context, accessToken string) (*ItemResponse, error) {
	body := struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: accessToken}

	var resp ItemResponse
	if err := c.post(ctx, itemPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateLinkToken mints a link token
func (c *Client) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error) {
	var resp LinkTokenResponse
	if err := c.post(ctx, linkTokenPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetWebhookVerificationKey fetches the public JWK for a webhook signing key id
func (c *Client) GetWebhookVerificationKey(ctx context.Context, keyID string) (*VerificationKeyResponse, error) {
	body := struct {
		KeyID string `json:"key_id"`
	}{KeyID: keyID}

	var resp VerificationKeyResponse
	if err := c.post(ctx, verificationKeyPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
