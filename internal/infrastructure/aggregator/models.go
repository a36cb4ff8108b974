package aggregator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by the aggregator for start/end dates and transaction dates.
const DateLayout = "2006-01-02"

// TransactionsRequest is the body of /transactions/get
type TransactionsRequest struct {
	AccessToken string               `json:"access_token"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	Options     *TransactionsOptions `json:"options,omitempty"`
}

// TransactionsOptions scopes and paginates a transaction pull
type TransactionsOptions struct {
	AccountIDs []string `json:"account_ids,omitempty"`
	Count      int      `json:"count"`
	Offset     int      `json:"offset"`
}

// TransactionsResponse represents one page of transactions
type TransactionsResponse struct {
	Accounts          []Account     `json:"accounts"`
	Transactions      []Transaction `json:"transactions"`
	TotalTransactions int           `json:"total_transactions"`
	Item              Item          `json:"item"`
	RequestID         string        `json:"request_id"`
}

// Transaction represents a transaction as reported by the aggregator.
// Amount is signed: positive values are money leaving the account.
type Transaction struct {
	TransactionID   string          `json:"transaction_id"`
	AccountID       string          `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	ISOCurrencyCode *string         `json:"iso_currency_code"`
	Date            string          `json:"date"`
	Name            string          `json:"name"`
	MerchantName    *string         `json:"merchant_name"`
	Pending         bool            `json:"pending"`
	CategoryID      *string         `json:"category_id"`
	Category        []string        `json:"category"`
	AccountOwner    *string         `json:"account_owner"`
}

// GetDate parses the transaction's calendar date
func (t *Transaction) GetDate() (time.Time, error) {
	parsed, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date '%s': %w", t.Date, err)
	}
	return parsed, nil
}

// AccountsResponse is returned by /accounts/get and /accounts/balance/get
type AccountsResponse struct {
	Accounts  []Account `json:"accounts"`
	Item      Item      `json:"item"`
	RequestID string    `json:"request_id"`
}

// Account represents an account under an item
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName *string  `json:"official_name"`
	Mask         *string  `json:"mask"`
	Type         string   `json:"type"`
	Subtype      *string  `json:"subtype"`
	Balances     Balances `json:"balances"`
}

// Balances is the balance snapshot of one account. Any field may be null.
type Balances struct {
	Available       *decimal.Decimal `json:"available"`
	Current         *decimal.Decimal `json:"current"`
	Limit           *decimal.Decimal `json:"limit"`
	ISOCurrencyCode *string          `json:"iso_currency_code"`
}

// Item represents a single bank login/connection
type Item struct {
	ItemID                string     `json:"item_id"`
	InstitutionID         *string    `json:"institution_id"`
	Webhook               *string    `json:"webhook"`
	Error                 *ItemError `json:"error"`
	ConsentExpirationTime *string    `json:"consent_expiration_time"`
}

// GetConsentExpiration parses the consent expiration timestamp if present
func (i *Item) GetConsentExpiration() (*time.Time, error) {
	if i.ConsentExpirationTime == nil || *i.ConsentExpirationTime == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *i.ConsentExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse consent_expiration_time '%s': %w", *i.ConsentExpirationTime, err)
	}
	return &t, nil
}

// ItemError is the error currently attached to an item, if any
type ItemError struct {
	ErrorType      string  `json:"error_type"`
	ErrorCode      string  `json:"error_code"`
	ErrorMessage   string  `json:"error_message"`
	DisplayMessage *string `json:"display_message"`
}

// ItemResponse is returned by /item/get
type ItemResponse struct {
	Item      Item   `json:"item"`
	RequestID string `json:"request_id"`
}

// InstitutionRequest is the body of /institutions/get_by_id
type InstitutionRequest struct {
	InstitutionID string              `json:"institution_id"`
	CountryCodes  []string            `json:"country_codes"`
	Options       *InstitutionOptions `json:"options,omitempty"`
}

// InstitutionOptions requests optional metadata such as logo and colour
type InstitutionOptions struct {
	IncludeOptionalMetadata bool `json:"include_optional_metadata"`
}

// InstitutionResponse wraps the institution lookup; Institution is nil when nothing matched
type InstitutionResponse struct {
	Institution *Institution `json:"institution"`
	RequestID   string       `json:"request_id"`
}

// Institution is institution metadata as named by the aggregator
type Institution struct {
	InstitutionID string   `json:"institution_id"`
	Name          string   `json:"name"`
	URL           *string  `json:"url"`
	PrimaryColor  *string  `json:"primary_color"`
	Logo          *string  `json:"logo"`
	Products      []string `json:"products"`
}

// LinkTokenRequest is the body of /link/token/create
type LinkTokenRequest struct {
	ClientName   string        `json:"client_name"`
	Language     string        `json:"language"`
	CountryCodes []string      `json:"country_codes"`
	User         LinkTokenUser `json:"user"`
	AccessToken  string        `json:"access_token,omitempty"`
	Webhook      string        `json:"webhook,omitempty"`
	Update       *LinkUpdate   `json:"update,omitempty"`
}

// LinkTokenUser identifies the end user the token is minted for
type LinkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

// LinkUpdate configures update mode
type LinkUpdate struct {
	AccountSelectionEnabled bool `json:"account_selection_enabled"`
}

// LinkTokenResponse is returned by /link/token/create
type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
	RequestID  string `json:"request_id"`
}

// VerificationKeyResponse carries the JWK used to sign webhooks
type VerificationKeyResponse struct {
	Key       json.RawMessage `json:"key"`
	RequestID string          `json:"request_id"`
}
