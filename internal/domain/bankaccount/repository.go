package bankaccount

import (
	"context"
	"time"
)

// Repository defines the interface for bank account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// GetByID retrieves an account by its local ID
	GetByID(ctx context.Context, id int64) (*BankAccount, error)

	// ListByFamily returns linked, non-deleted accounts of a family that match the filter
	ListByFamily(ctx context.Context, familyID int64, filter ListFilter) ([]*BankAccount, error)

	// ListByItemID returns every account backed by the given external item, deleted or not
	ListByItemID(ctx context.Context, itemID string) ([]*BankAccount, error)

	// ListFamiliesWithLinkedAccounts returns the ids of families holding at least one syncable account
	ListFamiliesWithLinkedAccounts(ctx context.Context) ([]int64, error)

	// UpdateSyncStatus sets the status and, when lastSyncAt is non-nil, the last sync stamp
	UpdateSyncStatus(ctx context.Context, id int64, status SyncStatus, lastSyncAt *time.Time) error

	// UpdateBalances stores a balance snapshot for a single account
	UpdateBalances(ctx context.Context, id int64, update BalanceUpdate) error

	// UpdateStatusByItemID sets the status of every account under an item and returns the affected count
	UpdateStatusByItemID(ctx context.Context, itemID string, status SyncStatus) (int64, error)
}
