package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, ClientID: "client-1", Secret: "secret-1"})
}

func TestGetTransactions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, transactionsPath, r.URL.Path)
		assert.Equal(t, "client-1", r.Header.Get("PLAID-CLIENT-ID"))
		assert.Equal(t, "secret-1", r.Header.Get("PLAID-SECRET"))

		var req TransactionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok1", req.AccessToken)
		assert.Equal(t, []string{"acc1"}, req.Options.AccountIDs)
		assert.Equal(t, 500, req.Options.Count)

		w.Write([]byte(`{
			"transactions": [
				{"transaction_id": "t1", "account_id": "acc1", "amount": -12.5, "date": "2026-10-01", "name": "Refund", "pending": false},
				{"transaction_id": "t2", "account_id": "acc1", "amount": 50, "date": "2026-10-02", "name": "Groceries", "merchant_name": "Market", "pending": true}
			],
			"total_transactions": 2,
			"item": {"item_id": "item1"},
			"request_id": "req-1"
		}`))
	})

	resp, err := client.GetTransactions(context.Background(), TransactionsRequest{
		AccessToken: "tok1",
		StartDate:   "2026-09-01",
		EndDate:     "2026-10-01",
		Options:     &TransactionsOptions{AccountIDs: []string{"acc1"}, Count: 500},
	})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 2)
	assert.True(t, resp.Transactions[0].Amount.Equal(decimal.NewFromFloat(-12.5)))
	assert.Equal(t, "Market", *resp.Transactions[1].MerchantName)
	assert.True(t, resp.Transactions[1].Pending)
	assert.Equal(t, 2, resp.TotalTransactions)
}

func TestAPIErrorDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_type": "ITEM_ERROR", "error_code": "ITEM_LOGIN_REQUIRED", "error_message": "login required", "request_id": "req-9"}`))
	})

	_, err := client.GetItem(context.Background(), "tok1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "ITEM_LOGIN_REQUIRED", apiErr.ErrorCode)
	assert.True(t, IsLoginRequired(err))
}

func TestNonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := client.GetAccounts(context.Background(), "tok1")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "502")
}

func TestGetBalances_NullFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "options")

		w.Write([]byte(`{"accounts": [{"account_id": "acc1", "name": "Checking", "type": "depository",
			"balances": {"available": null, "current": 100.25, "limit": null, "iso_currency_code": "USD"}}]}`))
	})

	resp, err := client.GetBalances(context.Background(), "tok1", nil)
	require.NoError(t, err)
	require.Len(t, resp.Accounts, 1)
	assert.Nil(t, resp.Accounts[0].Balances.Available)
	assert.Nil(t, resp.Accounts[0].Balances.Limit)
	assert.True(t, resp.Accounts[0].Balances.Current.Equal(decimal.RequireFromString("100.25")))
}

func TestGetInstitution_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req InstitutionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"US"}, req.CountryCodes)
		assert.True(t, req.Options.IncludeOptionalMetadata)
		w.Write([]byte(`{"institution": null, "request_id": "req-2"}`))
	})

	resp, err := client.GetInstitution(context.Background(), "ins_1", []string{"US"})
	require.NoError(t, err)
	assert.Nil(t, resp.Institution)
}

func TestCreateLinkToken_UpdateMode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok1", body["access_token"])
		update, ok := body["update"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, update["account_selection_enabled"])
		w.Write([]byte(`{"link_token": "link-sandbox-1", "expiration": "2026-10-18T00:00:00Z"}`))
	})

	resp, err := client.CreateLinkToken(context.Background(), LinkTokenRequest{
		ClientName:   "Ledgerly",
		Language:     "en",
		CountryCodes: []string{"US"},
		User:         LinkTokenUser{ClientUserID: "user-1"},
		AccessToken:  "tok1",
		Update:       &LinkUpdate{AccountSelectionEnabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-1", resp.LinkToken)
}

func TestTransaction_GetDate(t *testing.T) {
	tx := Transaction{Date: "2026-10-01"}
	d, err := tx.GetDate()
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())

	bad := Transaction{Date: "01/10/2026"}
	_, err = bad.GetDate()
	assert.Error(t, err)
}

func TestBaseURLForEnvironment(t *testing.T) {
	assert.Equal(t, ProductionURL, BaseURLForEnvironment("production"))
	assert.Equal(t, SandboxURL, BaseURLForEnvironment("sandbox"))
	assert.Equal(t, SandboxURL, BaseURLForEnvironment(""))
}
