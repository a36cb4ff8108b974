package banksync

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/infrastructure/aggregator"
)

// CreateLinkTokenForUpdate mints an update-mode relink token for an item's credential.
func (s *Service) CreateLinkTokenForUpdate(ctx context.Context, itemID, userID string) (*LinkToken, error) {
	ctx, span := syncTracer.Start(ctx, "banksync.CreateLinkTokenForUpdate",
		trace.WithAttributes(attribute.String("item.id", itemID)),
	)
	defer span.End()

	accessToken, _, err := s.itemCredential(ctx, itemID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := s.client.CreateLinkToken(ctx, aggregator.LinkTokenRequest{
		ClientName:   s.link.ClientName,
		Language:     s.link.Language,
		CountryCodes: s.countryCodes,
		User:         aggregator.LinkTokenUser{ClientUserID: userID},
		AccessToken:  accessToken,
		Webhook:      s.link.WebhookURL,
		Update:       &aggregator.LinkUpdate{AccountSelectionEnabled: true},
	})
	if err != nil {
		err = &UpstreamError{Op: "link/token/create", Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &LinkToken{LinkToken: resp.LinkToken, Expiration: resp.Expiration}, nil
}

// RefreshItemData refreshes balances for every account under an item in one call,
// then syncs each account's transactions in turn. A balance-phase failure marks
// every account of the item as errored.
func (s *Service) RefreshItemData(ctx context.Context, itemID string) (*ItemRefreshResult, error) {
	ctx, span := syncTracer.Start(ctx, "banksync.RefreshItemData",
		trace.WithAttributes(attribute.String("item.id", itemID)),
	)
	defer span.End()

	accessToken, accounts, err := s.itemCredential(ctx, itemID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	updated, err := s.refreshItemBalances(ctx, accessToken, accounts)
	if err != nil {
		log.Printf("Item %s: balance refresh failed: %v", itemID, err)
		if _, markErr := s.accounts.UpdateStatusByItemID(ctx, itemID, bankaccount.StatusError); markErr != nil {
			log.Printf("Item %s: failed to mark accounts as errored: %v", itemID, markErr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &ItemRefreshResult{
		ItemID:          itemID,
		BalancesUpdated: updated,
		Syncs:           make([]*AccountSyncResult, 0, len(accounts)),
	}
	for _, acc := range accounts {
		if acc.IsDeleted() || !acc.IsLinked() {
			continue
		}
		res, err := s.SyncTransactionsForAccount(ctx, acc.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("item %s: %w", itemID, err)
		}
		result.Syncs = append(result.Syncs, res)
	}

	log.Printf("Item %s: refreshed %d balances and %d accounts", itemID, updated, len(result.Syncs))
	return result, nil
}

// itemCredential loads the item's accounts and returns the first usable credential.
func (s *Service) itemCredential(ctx context.Context, itemID string) (string, []*bankaccount.BankAccount, error) {
	accounts, err := s.accounts.ListByItemID(ctx, itemID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list accounts for item %s: %w", itemID, err)
	}
	if len(accounts) == 0 {
		return "", nil, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	for _, acc := range accounts {
		if acc.IsLinked() {
			return *acc.AccessToken, accounts, nil
		}
	}
	return "", nil, fmt.Errorf("item %s: %w", itemID, ErrNotLinked)
}

func (s *Service) refreshItemBalances(ctx context.Context, accessToken string, accounts []*bankaccount.BankAccount) (int, error) {
	resp, err := s.client.GetBalances(ctx, accessToken, nil)
	if err != nil {
		return 0, &UpstreamError{Op: "accounts/balance/get", Err: err}
	}

	updated := 0
	for _, acc := range accounts {
		if acc.IsDeleted() {
			continue
		}
		remote := findAccount(resp.Accounts, acc.ExternalAccountID)
		if remote == nil {
			continue
		}
		update := balanceUpdate(acc, remote)
		update.MarkActive = true
		if err := s.accounts.UpdateBalances(ctx, acc.ID, update); err != nil {
			return updated, fmt.Errorf("account %d: failed to cache balance: %w", acc.ID, err)
		}
		updated++
	}
	return updated, nil
}
