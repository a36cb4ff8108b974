package bankaccount

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// SyncStatus is the persisted connection state of a linked account.
type SyncStatus string

const (
	StatusActive       SyncStatus = "active"
	StatusError        SyncStatus = "error"
	StatusDisconnected SyncStatus = "disconnected"
)

// Domain errors
var (
	ErrAccountNotFound = errors.New("bank account not found")
	ErrInvalidStatus   = errors.New("invalid sync status")
)

// IsValid reports whether s is one of the known sync states.
func (s SyncStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusError, StatusDisconnected:
		return true
	}
	return false
}

// BankAccount is a family's linked external account.
type BankAccount struct {
	ID                int64            `json:"id"`
	FamilyID          int64            `json:"familyId"`
	ItemID            string           `json:"itemId"`
	ExternalAccountID string           `json:"externalAccountId"`
	AccessToken       *string          `json:"-"`
	InstitutionID     string           `json:"institutionId"`
	InstitutionName   string           `json:"institutionName"`
	Name              string           `json:"name"`
	AccountType       string           `json:"accountType"`
	Subtype           string           `json:"subtype"`
	Mask              string           `json:"mask"`
	CurrentBalance    decimal.Decimal  `json:"currentBalance"`
	AvailableBalance  decimal.Decimal  `json:"availableBalance"`
	CreditLimit       *decimal.Decimal `json:"creditLimit,omitempty"`
	Currency          string           `json:"currency"`
	LastSyncAt        *time.Time       `json:"lastSyncAt,omitempty"`
	SyncStatus        SyncStatus       `json:"syncStatus"`
	DeletedAt         *time.Time       `json:"deletedAt,omitempty"`
	BalanceUpdatedAt  *time.Time       `json:"balanceUpdatedAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// IsLinked reports whether the account holds a usable access credential.
func (a *BankAccount) IsLinked() bool {
	return a.AccessToken != nil && *a.AccessToken != ""
}

// IsDeleted reports whether the account was soft-deleted by the user.
func (a *BankAccount) IsDeleted() bool {
	return a.DeletedAt != nil
}

// BalanceUpdate carries a fresh balance snapshot for one account.
type BalanceUpdate struct {
	Current   decimal.Decimal
	Available decimal.Decimal
	Limit     *decimal.Decimal
	Currency  string
	// MarkActive also flips the sync status back to active.
	MarkActive bool
}

// ListFilter narrows family-scoped account listings.
// Soft-deleted and credential-less accounts are always excluded.
type ListFilter struct {
	Statuses []SyncStatus
}

// Matches reports whether acc passes the filter. Repositories that cannot push the
// filter down to storage use it in memory.
func (f ListFilter) Matches(acc *BankAccount) bool {
	if acc.IsDeleted() || !acc.IsLinked() {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if acc.SyncStatus == s {
			return true
		}
	}
	return false
}
