package banksync

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/infrastructure/aggregator"
)

// GetAccountBalances fetches a fresh balance for every active linked account of a family
// and caches it locally. Accounts whose fetch fails are logged and left out.
func (s *Service) GetAccountBalances(ctx context.Context, familyID int64) ([]*AccountBalance, error) {
	ctx, span := syncTracer.Start(ctx, "banksync.GetAccountBalances",
		trace.WithAttributes(attribute.Int64("family.id", familyID)),
	)
	defer span.End()

	accounts, err := s.accounts.ListByFamily(ctx, familyID, bankaccount.ListFilter{
		Statuses: []bankaccount.SyncStatus{bankaccount.StatusActive},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for family %d: %w", familyID, err)
	}

	balances := make([]*AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		bal, err := s.refreshAccountBalance(ctx, acc)
		if err != nil {
			log.Printf("Account %d: balance fetch failed: %v", acc.ID, err)
			continue
		}
		balances = append(balances, bal)
	}

	return balances, nil
}

func (s *Service) refreshAccountBalance(ctx context.Context, acc *bankaccount.BankAccount) (*AccountBalance, error) {
	resp, err := s.client.GetBalances(ctx, *acc.AccessToken, []string{acc.ExternalAccountID})
	if err != nil {
		return nil, &UpstreamError{Op: "accounts/balance/get", Err: err}
	}

	remote := findAccount(resp.Accounts, acc.ExternalAccountID)
	if remote == nil {
		return nil, fmt.Errorf("aggregator returned no balance for %s", acc.ExternalAccountID)
	}

	update := balanceUpdate(acc, remote)
	if err := s.accounts.UpdateBalances(ctx, acc.ID, update); err != nil {
		return nil, fmt.Errorf("failed to cache balance: %w", err)
	}

	return &AccountBalance{
		AccountID:         acc.ID,
		ExternalAccountID: acc.ExternalAccountID,
		Name:              acc.Name,
		Current:           update.Current,
		Available:         update.Available,
		Limit:             update.Limit,
		Currency:          update.Currency,
	}, nil
}

// balanceUpdate coerces missing current/available to zero and keeps a missing limit absent.
func balanceUpdate(acc *bankaccount.BankAccount, remote *aggregator.Account) bankaccount.BalanceUpdate {
	currency := acc.Currency
	if c := deref(remote.Balances.ISOCurrencyCode); c != "" {
		currency = c
	}
	return bankaccount.BalanceUpdate{
		Current:   decimalOrZero(remote.Balances.Current),
		Available: decimalOrZero(remote.Balances.Available),
		Limit:     remote.Balances.Limit,
		Currency:  currency,
	}
}

func findAccount(accounts []aggregator.Account, externalID string) *aggregator.Account {
	for i := range accounts {
		if accounts[i].AccountID == externalID {
			return &accounts[i]
		}
	}
	return nil
}
