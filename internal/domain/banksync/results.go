package banksync

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerly/internal/domain/bankaccount"
)

// ResultStatus tags the outcome of one account inside a batch.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// AccountSyncResult is the outcome of syncing one account.
type AccountSyncResult struct {
	AccountID           int64        `json:"accountId"`
	Status              ResultStatus `json:"status"`
	NewTransactions     int          `json:"newTransactions"`
	UpdatedTransactions int          `json:"updatedTransactions"`
	Error               string       `json:"error,omitempty"`
}

// AccountBalance is a freshly fetched balance record.
type AccountBalance struct {
	AccountID         int64            `json:"accountId"`
	ExternalAccountID string           `json:"externalAccountId"`
	Name              string           `json:"name"`
	Current           decimal.Decimal  `json:"current"`
	Available         decimal.Decimal  `json:"available"`
	Limit             *decimal.Decimal `json:"limit,omitempty"`
	Currency          string           `json:"currency"`
}

// Institution is institution metadata in local field names.
type Institution struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
	Logo         string `json:"logo,omitempty"`
}

// ItemHealth is the derived, non-persisted rollup of one item.
type ItemHealth string

const (
	ItemGood               ItemHealth = "good"
	ItemRequiresUserAction ItemHealth = "requires_user_action"
	ItemPendingExpiration  ItemHealth = "pending_expiration"
	ItemDegraded           ItemHealth = "degraded"
)

// ItemError mirrors the aggregator's current item error.
type ItemError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ItemAccount is a local account sharing the item.
type ItemAccount struct {
	AccountID         int64                  `json:"accountId"`
	ExternalAccountID string                 `json:"externalAccountId"`
	Name              string                 `json:"name"`
	Mask              string                 `json:"mask,omitempty"`
	SyncStatus        bankaccount.SyncStatus `json:"syncStatus"`
}

// RemoteAccount is an account the aggregator exposes under the item.
// Linked is true when some local account of the family references it.
type RemoteAccount struct {
	ExternalAccountID string `json:"externalAccountId"`
	Name              string `json:"name"`
	Mask              string `json:"mask,omitempty"`
	Type              string `json:"type"`
	Subtype           string `json:"subtype,omitempty"`
	Linked            bool   `json:"linked"`
}

// ItemStatus is the per-item rollup returned by GetItemStatus.
type ItemStatus struct {
	ItemID           string          `json:"itemId"`
	InstitutionID    string          `json:"institutionId,omitempty"`
	Institution      *Institution    `json:"institution"`
	Status           ItemHealth      `json:"status"`
	Error            *ItemError      `json:"error,omitempty"`
	ConsentExpiresAt *time.Time      `json:"consentExpiresAt,omitempty"`
	Accounts         []ItemAccount   `json:"accounts"`
	RemoteAccounts   []RemoteAccount `json:"remoteAccounts"`
}

// LinkToken is a relink token for update mode.
type LinkToken struct {
	LinkToken  string `json:"linkToken"`
	Expiration string `json:"expiration"`
}

// ItemRefreshResult reports a completed RefreshItemData.
type ItemRefreshResult struct {
	ItemID          string               `json:"itemId"`
	BalancesUpdated int                  `json:"balancesUpdated"`
	Syncs           []*AccountSyncResult `json:"syncs"`
}
