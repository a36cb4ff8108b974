package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/infrastructure/aggregator"
	"ledgerly/internal/infrastructure/postgres"
)

type linkAccountOptions struct {
	familyID        int64
	itemID          string
	accessToken     string
	institutionID   string
	institutionName string
	defaultCurrency string
}

// newLinkAccountCmd stores every account behind an already exchanged access token.
// Re-running it for the same item refreshes the stored credential.
func newLinkAccountCmd(opts *rootOptions) *cobra.Command {
	lo := &linkAccountOptions{}
	cmd := &cobra.Command{
		Use:   "link-account",
		Short: "Register the accounts of an item for a family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePositive("family-id", lo.familyID); err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				linked, err := linkItemAccounts(ctx, a.client, a.accounts, lo)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), linked)
			})
		},
	}
	cmd.Flags().Int64Var(&lo.familyID, "family-id", 0, "owning family id (required)")
	cmd.Flags().StringVar(&lo.itemID, "item-id", "", "aggregator item id (required)")
	cmd.Flags().StringVar(&lo.accessToken, "access-token", "", "item access token (required)")
	cmd.Flags().StringVar(&lo.institutionID, "institution-id", "", "institution id, looked up from the item when empty")
	cmd.Flags().StringVar(&lo.institutionName, "institution-name", "", "institution display name")
	cmd.Flags().StringVar(&lo.defaultCurrency, "currency", "USD", "currency for accounts that report none")
	cmd.MarkFlagRequired("item-id")
	cmd.MarkFlagRequired("access-token")
	return cmd
}

type accountLister interface {
	GetAccounts(ctx context.Context, accessToken string) (*aggregator.AccountsResponse, error)
}

type accountCreator interface {
	Create(ctx context.Context, params postgres.CreateParams) (*bankaccount.BankAccount, error)
}

func linkItemAccounts(ctx context.Context, client accountLister, repo accountCreator, lo *linkAccountOptions) ([]*bankaccount.BankAccount, error) {
	resp, err := client.GetAccounts(ctx, lo.accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list item accounts: %w", err)
	}
	if resp.Item.ItemID != "" && resp.Item.ItemID != lo.itemID {
		return nil, fmt.Errorf("access token belongs to item %s, not %s", resp.Item.ItemID, lo.itemID)
	}

	institutionID := lo.institutionID
	if institutionID == "" && resp.Item.InstitutionID != nil {
		institutionID = *resp.Item.InstitutionID
	}

	linked := make([]*bankaccount.BankAccount, 0, len(resp.Accounts))
	for _, acc := range resp.Accounts {
		created, err := repo.Create(ctx, createParams(lo, institutionID, acc))
		if err != nil {
			return linked, fmt.Errorf("failed to store account %s: %w", acc.AccountID, err)
		}
		log.Printf("Account %d: linked %s (%s)", created.ID, acc.Name, acc.AccountID)
		linked = append(linked, created)
	}
	return linked, nil
}

func createParams(lo *linkAccountOptions, institutionID string, acc aggregator.Account) postgres.CreateParams {
	params := postgres.CreateParams{
		FamilyID:          lo.familyID,
		ItemID:            lo.itemID,
		ExternalAccountID: acc.AccountID,
		AccessToken:       lo.accessToken,
		InstitutionID:     institutionID,
		InstitutionName:   lo.institutionName,
		Name:              acc.Name,
		AccountType:       acc.Type,
		Currency:          lo.defaultCurrency,
	}
	if acc.Subtype != nil {
		params.Subtype = *acc.Subtype
	}
	if acc.Mask != nil {
		params.Mask = *acc.Mask
	}
	if acc.Balances.ISOCurrencyCode != nil && *acc.Balances.ISOCurrencyCode != "" {
		params.Currency = *acc.Balances.ISOCurrencyCode
	}
	return params
}
