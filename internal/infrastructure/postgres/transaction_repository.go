package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ledgerly/internal/domain/transaction"
)

const transactionColumns = `
	id, account_id, external_id, amount, currency, transaction_date, description, merchant_name,
	pending, category_id, category, account_owner, created_at, updated_at`

// TransactionRepository implements transaction.Repository for PostgreSQL
type TransactionRepository struct {
	db *DB
}

var _ transaction.Repository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByExternalID retrieves a transaction by its aggregator id; returns (nil, nil) when absent
func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// Create inserts a transaction. A concurrent insert of the same external id turns
// into an update so the unique key never surfaces as an error.
func (r *TransactionRepository) Create(ctx context.Context, params transaction.SyncParams) (*transaction.Transaction, error) {
	query := `
		INSERT INTO transactions (account_id, external_id, amount, currency, transaction_date, description,
		                          merchant_name, pending, category_id, category, account_owner)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO UPDATE SET
		    account_id = EXCLUDED.account_id,
		    amount = EXCLUDED.amount,
		    currency = EXCLUDED.currency,
		    transaction_date = EXCLUDED.transaction_date,
		    description = EXCLUDED.description,
		    merchant_name = EXCLUDED.merchant_name,
		    pending = EXCLUDED.pending,
		    category_id = EXCLUDED.category_id,
		    category = EXCLUDED.category,
		    account_owner = EXCLUDED.account_owner,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		params.AccountID, params.ExternalID, params.Amount, params.Currency, params.Date, params.Description,
		params.MerchantName, params.Pending, params.CategoryID, params.Category, params.AccountOwner,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// Update overwrites every mutable field of a transaction
func (r *TransactionRepository) Update(ctx context.Context, id int64, params transaction.SyncParams) (*transaction.Transaction, error) {
	query := `
		UPDATE transactions
		SET account_id = $2,
		    amount = $3,
		    currency = $4,
		    transaction_date = $5,
		    description = $6,
		    merchant_name = $7,
		    pending = $8,
		    category_id = $9,
		    category = $10,
		    account_owner = $11,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		id, params.AccountID, params.Amount, params.Currency, params.Date, params.Description,
		params.MerchantName, params.Pending, params.CategoryID, params.Category, params.AccountOwner,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return tx, nil
}

// DeleteByExternalIDs removes every transaction whose external id is listed
func (r *TransactionRepository) DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE external_id = ANY($1)`, pq.Array(externalIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return result.RowsAffected()
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var merchantName, categoryID, category, accountOwner sql.NullString

	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.ExternalID, &tx.Amount, &tx.Currency, &tx.Date, &tx.Description,
		&merchantName, &tx.Pending, &categoryID, &category, &accountOwner, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.MerchantName = nullStringPtr(merchantName)
	tx.CategoryID = nullStringPtr(categoryID)
	tx.Category = nullStringPtr(category)
	tx.AccountOwner = nullStringPtr(accountOwner)
	return &tx, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
