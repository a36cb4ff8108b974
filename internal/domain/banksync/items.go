package banksync

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/infrastructure/aggregator"
)

// GetInstitutionInfo looks up institution metadata. Institution data is optional
// enrichment, so an empty result and a failed call both yield nil.
func (s *Service) GetInstitutionInfo(ctx context.Context, institutionID string) *Institution {
	resp, err := s.client.GetInstitution(ctx, institutionID, s.countryCodes)
	if err != nil {
		log.Printf("Institution %s: lookup failed: %v", institutionID, err)
		return nil
	}
	if resp == nil || resp.Institution == nil {
		return nil
	}

	inst := resp.Institution
	return &Institution{
		ID:           inst.InstitutionID,
		Name:         inst.Name,
		URL:          deref(inst.URL),
		PrimaryColor: deref(inst.PrimaryColor),
		Logo:         deref(inst.Logo),
	}
}

// GetItemStatus derives the health of every item backing the family's linked accounts.
// Concurrent calls for the same family share one computation, which runs detached
// from any single caller's cancellation.
func (s *Service) GetItemStatus(ctx context.Context, familyID int64) ([]*ItemStatus, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.itemStatus.DoChan(strconv.FormatInt(familyID, 10), func() (any, error) {
		return s.computeItemStatus(shared, familyID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*ItemStatus), nil
	}
}

func (s *Service) computeItemStatus(ctx context.Context, familyID int64) ([]*ItemStatus, error) {
	ctx, span := syncTracer.Start(ctx, "banksync.GetItemStatus",
		trace.WithAttributes(attribute.Int64("family.id", familyID)),
	)
	defer span.End()

	accounts, err := s.accounts.ListByFamily(ctx, familyID, bankaccount.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for family %d: %w", familyID, err)
	}

	statuses := make([]*ItemStatus, 0)
	byItem := make(map[string]*ItemStatus)
	skipped := make(map[string]bool)

	for _, acc := range accounts {
		if st, ok := byItem[acc.ItemID]; ok {
			st.Accounts = append(st.Accounts, toItemAccount(acc))
			continue
		}
		if skipped[acc.ItemID] {
			continue
		}

		st, err := s.describeItem(ctx, acc)
		if err != nil {
			log.Printf("Item %s: status lookup failed: %v", acc.ItemID, err)
			skipped[acc.ItemID] = true
			continue
		}
		byItem[acc.ItemID] = st
		statuses = append(statuses, st)
	}

	for _, st := range statuses {
		linked := make(map[string]bool, len(st.Accounts))
		for _, a := range st.Accounts {
			linked[a.ExternalAccountID] = true
		}
		for i := range st.RemoteAccounts {
			st.RemoteAccounts[i].Linked = linked[st.RemoteAccounts[i].ExternalAccountID]
		}
	}

	span.SetAttributes(attribute.Int("items.count", len(statuses)))
	return statuses, nil
}

// describeItem performs the aggregator lookups for the first account seen on an item.
func (s *Service) describeItem(ctx context.Context, acc *bankaccount.BankAccount) (*ItemStatus, error) {
	itemResp, err := s.client.GetItem(ctx, *acc.AccessToken)
	if err != nil {
		return nil, &UpstreamError{Op: "item/get", Err: err}
	}
	accountsResp, err := s.client.GetAccounts(ctx, *acc.AccessToken)
	if err != nil {
		return nil, &UpstreamError{Op: "accounts/get", Err: err}
	}

	item := itemResp.Item
	institutionID := deref(item.InstitutionID)
	if institutionID == "" {
		institutionID = acc.InstitutionID
	}

	st := &ItemStatus{
		ItemID:         acc.ItemID,
		InstitutionID:  institutionID,
		Status:         deriveItemHealth(item.Error),
		Accounts:       []ItemAccount{toItemAccount(acc)},
		RemoteAccounts: make([]RemoteAccount, 0, len(accountsResp.Accounts)),
	}
	if institutionID != "" {
		st.Institution = s.GetInstitutionInfo(ctx, institutionID)
	}
	if item.Error != nil {
		st.Error = &ItemError{
			Type:    item.Error.ErrorType,
			Code:    item.Error.ErrorCode,
			Message: item.Error.ErrorMessage,
		}
	}
	if expires, err := item.GetConsentExpiration(); err != nil {
		log.Printf("Item %s: %v", acc.ItemID, err)
	} else {
		st.ConsentExpiresAt = expires
	}

	for _, remote := range accountsResp.Accounts {
		st.RemoteAccounts = append(st.RemoteAccounts, RemoteAccount{
			ExternalAccountID: remote.AccountID,
			Name:              remote.Name,
			Mask:              deref(remote.Mask),
			Type:              remote.Type,
			Subtype:           deref(remote.Subtype),
		})
	}

	return st, nil
}

func deriveItemHealth(itemErr *aggregator.ItemError) ItemHealth {
	if itemErr == nil {
		return ItemGood
	}
	switch itemErr.ErrorCode {
	case aggregator.ErrorCodeItemLoginRequired:
		return ItemRequiresUserAction
	case aggregator.ErrorCodePendingExpiration:
		return ItemPendingExpiration
	default:
		return ItemDegraded
	}
}

func toItemAccount(acc *bankaccount.BankAccount) ItemAccount {
	return ItemAccount{
		AccountID:         acc.ID,
		ExternalAccountID: acc.ExternalAccountID,
		Name:              acc.Name,
		Mask:              acc.Mask,
		SyncStatus:        acc.SyncStatus,
	}
}
