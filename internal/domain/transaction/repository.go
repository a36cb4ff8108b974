package transaction

import "context"

// Repository defines the interface for transaction data access
type Repository interface {
	// GetByExternalID returns the row for an aggregator transaction id, or (nil, nil) when absent
	GetByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	Create(ctx context.Context, params SyncParams) (*Transaction, error)
	// Update overwrites every mutable field of the row with the given local id
	Update(ctx context.Context, id int64, params SyncParams) (*Transaction, error)
	// DeleteByExternalIDs removes the rows whose external ids are listed and returns the count removed
	DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error)
}
