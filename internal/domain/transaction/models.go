package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry of a linked bank account.
// ExternalID is the aggregator's transaction id and is unique across the table.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"accountId"`
	ExternalID   string          `json:"externalId"`
	Amount       decimal.Decimal `json:"amount"` // always stored as an absolute value
	Currency     string          `json:"currency"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	MerchantName *string         `json:"merchantName,omitempty"`
	Pending      bool            `json:"pending"`
	CategoryID   *string         `json:"categoryId,omitempty"`
	Category     *string         `json:"category,omitempty"`
	AccountOwner *string         `json:"accountOwner,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// SyncParams holds the mutable fields observed for a transaction during a pull.
// The same params create a new row or overwrite an existing one.
type SyncParams struct {
	AccountID    int64
	ExternalID   string
	Amount       decimal.Decimal
	Currency     string
	Date         time.Time
	Description  string
	MerchantName *string
	Pending      bool
	CategoryID   *string
	Category     *string
	AccountOwner *string
}
