package banksync

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/domain/transaction"
	"ledgerly/internal/infrastructure/aggregator"
)

// SyncTransactionsForAccount pulls the trailing 30-day window of transactions for one
// account and upserts them by external id. On failure the account is flipped to
// error and the error is returned.
func (s *Service) SyncTransactionsForAccount(ctx context.Context, accountID int64) (*AccountSyncResult, error) {
	ctx, span := syncTracer.Start(ctx, "banksync.SyncTransactionsForAccount",
		trace.WithAttributes(attribute.Int64("account.id", accountID)),
	)
	defer span.End()

	unlock := s.locks.Lock(accountID)
	defer unlock()

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !acc.IsLinked() {
		err := fmt.Errorf("account %d: %w", accountID, ErrNotLinked)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := s.pullTransactions(ctx, acc)
	if err != nil {
		log.Printf("Account %d: transaction sync failed: %v", acc.ID, err)
		if statusErr := s.accounts.UpdateSyncStatus(ctx, acc.ID, bankaccount.StatusError, nil); statusErr != nil {
			log.Printf("Account %d: failed to mark sync error: %v", acc.ID, statusErr)
		}
		accountSyncTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(ResultError))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	syncedAt := s.now()
	if err := s.accounts.UpdateSyncStatus(ctx, acc.ID, bankaccount.StatusActive, &syncedAt); err != nil {
		err = fmt.Errorf("account %d: failed to stamp sync: %w", acc.ID, err)
		if statusErr := s.accounts.UpdateSyncStatus(ctx, acc.ID, bankaccount.StatusError, nil); statusErr != nil {
			log.Printf("Account %d: failed to mark sync error: %v", acc.ID, statusErr)
		}
		accountSyncTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(ResultError))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	accountSyncTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(ResultSuccess))))
	span.SetAttributes(
		attribute.Int("transactions.new", result.NewTransactions),
		attribute.Int("transactions.updated", result.UpdatedTransactions),
	)
	log.Printf("Account %d: synced transactions (%d new, %d updated)", acc.ID, result.NewTransactions, result.UpdatedTransactions)

	return result, nil
}

// pullTransactions walks every page of the sync window and upserts each transaction.
func (s *Service) pullTransactions(ctx context.Context, acc *bankaccount.BankAccount) (*AccountSyncResult, error) {
	result := &AccountSyncResult{AccountID: acc.ID, Status: ResultSuccess}

	end := s.now()
	start := end.AddDate(0, 0, -syncWindowDays)

	offset := 0
	for page := 0; page < s.maxPages; page++ {
		resp, err := s.client.GetTransactions(ctx, aggregator.TransactionsRequest{
			AccessToken: *acc.AccessToken,
			StartDate:   start.Format(aggregator.DateLayout),
			EndDate:     end.Format(aggregator.DateLayout),
			Options: &aggregator.TransactionsOptions{
				AccountIDs: []string{acc.ExternalAccountID},
				Count:      transactionPageSize,
				Offset:     offset,
			},
		})
		if err != nil {
			return nil, &UpstreamError{Op: "transactions/get", Err: err}
		}

		for i := range resp.Transactions {
			created, err := s.upsertTransaction(ctx, acc, &resp.Transactions[i])
			if err != nil {
				return nil, err
			}
			if created {
				result.NewTransactions++
			} else {
				result.UpdatedTransactions++
			}
		}

		offset += len(resp.Transactions)
		if len(resp.Transactions) == 0 || offset >= resp.TotalTransactions {
			return result, nil
		}
	}

	log.Printf("Account %d: stopped after %d transaction pages (%d fetched)", acc.ID, s.maxPages, offset)
	return result, nil
}

// upsertTransaction writes one aggregator transaction and reports whether a new row was created.
func (s *Service) upsertTransaction(ctx context.Context, acc *bankaccount.BankAccount, apiTx *aggregator.Transaction) (bool, error) {
	date, err := apiTx.GetDate()
	if err != nil {
		return false, fmt.Errorf("transaction %s: %w", apiTx.TransactionID, err)
	}

	params := transaction.SyncParams{
		AccountID:    acc.ID,
		ExternalID:   apiTx.TransactionID,
		Amount:       apiTx.Amount.Abs(),
		Currency:     acc.Currency,
		Date:         date,
		Description:  apiTx.Name,
		MerchantName: apiTx.MerchantName,
		Pending:      apiTx.Pending,
		CategoryID:   apiTx.CategoryID,
		Category:     primaryCategory(apiTx.Category),
		AccountOwner: apiTx.AccountOwner,
	}
	if apiTx.ISOCurrencyCode != nil && *apiTx.ISOCurrencyCode != "" {
		params.Currency = *apiTx.ISOCurrencyCode
	}

	existing, err := s.transactions.GetByExternalID(ctx, apiTx.TransactionID)
	if err != nil {
		return false, fmt.Errorf("failed to look up transaction %s: %w", apiTx.TransactionID, err)
	}

	if existing == nil {
		if _, err := s.transactions.Create(ctx, params); err != nil {
			return false, fmt.Errorf("failed to create transaction %s: %w", apiTx.TransactionID, err)
		}
		transactionsUpserted.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "new")))
		return true, nil
	}

	if _, err := s.transactions.Update(ctx, existing.ID, params); err != nil {
		return false, fmt.Errorf("failed to update transaction %s: %w", apiTx.TransactionID, err)
	}
	transactionsUpserted.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "updated")))
	return false, nil
}

// primaryCategory keeps the top level of the aggregator's category hierarchy.
func primaryCategory(hierarchy []string) *string {
	if len(hierarchy) == 0 || hierarchy[0] == "" {
		return nil
	}
	label := hierarchy[0]
	return &label
}

// SyncAllTransactions syncs every active or errored linked account of a family, one at a
// time. A failing account becomes an error-tagged result and never stops the batch.
func (s *Service) SyncAllTransactions(ctx context.Context, familyID int64) ([]*AccountSyncResult, error) {
	ctx, span := syncTracer.Start(ctx, "banksync.SyncAllTransactions",
		trace.WithAttributes(attribute.Int64("family.id", familyID)),
	)
	defer span.End()

	accounts, err := s.accounts.ListByFamily(ctx, familyID, bankaccount.ListFilter{
		Statuses: []bankaccount.SyncStatus{bankaccount.StatusActive, bankaccount.StatusError},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list accounts for family %d: %w", familyID, err)
	}

	results := make([]*AccountSyncResult, 0, len(accounts))
	failed := 0
	for _, acc := range accounts {
		res, err := s.SyncTransactionsForAccount(ctx, acc.ID)
		if err != nil {
			failed++
			results = append(results, &AccountSyncResult{
				AccountID: acc.ID,
				Status:    ResultError,
				Error:     err.Error(),
			})
			continue
		}
		results = append(results, res)
	}

	span.SetAttributes(attribute.Int("accounts.total", len(accounts)), attribute.Int("accounts.failed", failed))
	log.Printf("Family %d: synced %d accounts (%d failed)", familyID, len(accounts), failed)

	return results, nil
}
