package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/infrastructure/crypto"
)

const bankAccountColumns = `
	id, family_id, item_id, external_account_id, access_token, institution_id, institution_name,
	name, account_type, subtype, mask, current_balance, available_balance, credit_limit, currency,
	last_sync_at, sync_status, deleted_at, balance_updated_at, created_at, updated_at`

// BankAccountRepository implements bankaccount.Repository for PostgreSQL.
// Access tokens are stored encrypted and decrypted on read.
type BankAccountRepository struct {
	db  *DB
	enc *crypto.Encryptor
}

var _ bankaccount.Repository = (*BankAccountRepository)(nil)

// NewBankAccountRepository creates a new PostgreSQL bank account repository
func NewBankAccountRepository(db *DB, enc *crypto.Encryptor) *BankAccountRepository {
	return &BankAccountRepository{db: db, enc: enc}
}

// CreateParams holds the fields of a freshly linked account
type CreateParams struct {
	FamilyID          int64
	ItemID            string
	ExternalAccountID string
	AccessToken       string
	InstitutionID     string
	InstitutionName   string
	Name              string
	AccountType       string
	Subtype           string
	Mask              string
	Currency          string
}

// Create inserts a linked account, or refreshes its credential and display fields
// when the external account is already known.
func (r *BankAccountRepository) Create(ctx context.Context, params CreateParams) (*bankaccount.BankAccount, error) {
	token, err := r.enc.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	query := `
		INSERT INTO bank_accounts (family_id, item_id, external_account_id, access_token, institution_id,
		                           institution_name, name, account_type, subtype, mask, currency, sync_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'active')
		ON CONFLICT (external_account_id) DO UPDATE SET
		    item_id = EXCLUDED.item_id,
		    access_token = EXCLUDED.access_token,
		    institution_id = EXCLUDED.institution_id,
		    institution_name = EXCLUDED.institution_name,
		    name = EXCLUDED.name,
		    account_type = EXCLUDED.account_type,
		    subtype = EXCLUDED.subtype,
		    mask = EXCLUDED.mask,
		    sync_status = 'active',
		    deleted_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING ` + bankAccountColumns

	acc, err := r.scanAccount(r.db.QueryRowContext(ctx, query,
		params.FamilyID, params.ItemID, params.ExternalAccountID, nullString(token),
		nullString(params.InstitutionID), nullString(params.InstitutionName), params.Name,
		params.AccountType, nullString(params.Subtype), nullString(params.Mask), params.Currency,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}
	return acc, nil
}

// GetByID retrieves a bank account by its ID
func (r *BankAccountRepository) GetByID(ctx context.Context, id int64) (*bankaccount.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE id = $1`

	acc, err := r.scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankaccount.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return acc, nil
}

// ListByFamily lists the family's linked, non-deleted accounts matching the filter
func (r *BankAccountRepository) ListByFamily(ctx context.Context, familyID int64, filter bankaccount.ListFilter) ([]*bankaccount.BankAccount, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	query := `
		SELECT ` + bankAccountColumns + `
		FROM bank_accounts
		WHERE family_id = $1
		  AND deleted_at IS NULL
		  AND access_token IS NOT NULL AND access_token <> ''
		  AND (cardinality($2::text[]) = 0 OR sync_status = ANY($2::text[]))
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, familyID, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	return r.scanAccounts(rows)
}

// ListByItemID lists every account row of an item, deleted or not
func (r *BankAccountRepository) ListByItemID(ctx context.Context, itemID string) ([]*bankaccount.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE item_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts for item: %w", err)
	}
	return r.scanAccounts(rows)
}

// ListFamiliesWithLinkedAccounts returns families owning at least one syncable account
func (r *BankAccountRepository) ListFamiliesWithLinkedAccounts(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT family_id
		FROM bank_accounts
		WHERE deleted_at IS NULL
		  AND access_token IS NOT NULL AND access_token <> ''
		  AND sync_status <> 'disconnected'
		ORDER BY family_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var families []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan family id: %w", err)
		}
		families = append(families, id)
	}
	return families, rows.Err()
}

// UpdateSyncStatus sets the status and, when lastSyncAt is non-nil, the last sync stamp
func (r *BankAccountRepository) UpdateSyncStatus(ctx context.Context, id int64, status bankaccount.SyncStatus, lastSyncAt *time.Time) error {
	if !status.IsValid() {
		return bankaccount.ErrInvalidStatus
	}

	query := `
		UPDATE bank_accounts
		SET sync_status = $2,
		    last_sync_at = COALESCE($3, last_sync_at),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	var stamp sql.NullTime
	if lastSyncAt != nil {
		stamp = sql.NullTime{Time: *lastSyncAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, id, string(status), stamp)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return requireAffected(result, bankaccount.ErrAccountNotFound)
}

// UpdateBalances caches a fresh balance snapshot
func (r *BankAccountRepository) UpdateBalances(ctx context.Context, id int64, update bankaccount.BalanceUpdate) error {
	query := `
		UPDATE bank_accounts
		SET current_balance = $2,
		    available_balance = $3,
		    credit_limit = $4,
		    currency = COALESCE(NULLIF($5, ''), currency),
		    sync_status = CASE WHEN $6 THEN 'active' ELSE sync_status END,
		    balance_updated_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	var limit decimal.NullDecimal
	if update.Limit != nil {
		limit = decimal.NullDecimal{Decimal: *update.Limit, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, id, update.Current, update.Available, limit, update.Currency, update.MarkActive)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	return requireAffected(result, bankaccount.ErrAccountNotFound)
}

// UpdateStatusByItemID sets the status of every account under an item
func (r *BankAccountRepository) UpdateStatusByItemID(ctx context.Context, itemID string, status bankaccount.SyncStatus) (int64, error) {
	if !status.IsValid() {
		return 0, bankaccount.ErrInvalidStatus
	}

	query := `
		UPDATE bank_accounts
		SET sync_status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE item_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, itemID, string(status))
	if err != nil {
		return 0, fmt.Errorf("failed to update item status: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *BankAccountRepository) scanAccount(row rowScanner) (*bankaccount.BankAccount, error) {
	var acc bankaccount.BankAccount
	var accessToken, institutionID, institutionName, subtype, mask sql.NullString
	var creditLimit decimal.NullDecimal
	var lastSyncAt, deletedAt, balanceUpdatedAt sql.NullTime
	var status string

	err := row.Scan(
		&acc.ID, &acc.FamilyID, &acc.ItemID, &acc.ExternalAccountID, &accessToken,
		&institutionID, &institutionName, &acc.Name, &acc.AccountType, &subtype, &mask,
		&acc.CurrentBalance, &acc.AvailableBalance, &creditLimit, &acc.Currency,
		&lastSyncAt, &status, &deletedAt, &balanceUpdatedAt, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if accessToken.Valid && accessToken.String != "" {
		plain, err := r.enc.Decrypt(accessToken.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token for account %d: %w", acc.ID, err)
		}
		acc.AccessToken = &plain
	}
	acc.InstitutionID = institutionID.String
	acc.InstitutionName = institutionName.String
	acc.Subtype = subtype.String
	acc.Mask = mask.String
	acc.SyncStatus = bankaccount.SyncStatus(status)
	if creditLimit.Valid {
		acc.CreditLimit = &creditLimit.Decimal
	}
	acc.LastSyncAt = nullTimePtr(lastSyncAt)
	acc.DeletedAt = nullTimePtr(deletedAt)
	acc.BalanceUpdatedAt = nullTimePtr(balanceUpdatedAt)

	return &acc, nil
}

func (r *BankAccountRepository) scanAccounts(rows *sql.Rows) ([]*bankaccount.BankAccount, error) {
	defer rows.Close()

	var accounts []*bankaccount.BankAccount
	for rows.Next() {
		acc, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bank accounts: %w", err)
	}
	return accounts, nil
}

func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
