package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"ledgerly/migrations"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.db.Migrate(ctx, migrations.FS); err != nil {
					return err
				}
				log.Println("Migrations applied")
				return nil
			})
		},
	}
}

func newSyncAccountCmd(opts *rootOptions) *cobra.Command {
	var accountID int64
	cmd := &cobra.Command{
		Use:   "sync-account",
		Short: "Pull the last 30 days of transactions for one account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePositive("account-id", accountID); err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.sync.SyncTransactionsForAccount(ctx, accountID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().Int64Var(&accountID, "account-id", 0, "local bank account id (required)")
	cmd.MarkFlagRequired("account-id")
	return cmd
}

func newSyncFamilyCmd(opts *rootOptions) *cobra.Command {
	var familyID int64
	cmd := &cobra.Command{
		Use:   "sync-family",
		Short: "Sync every eligible account of a family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePositive("family-id", familyID); err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				results, err := a.sync.SyncAllTransactions(ctx, familyID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}
	cmd.Flags().Int64Var(&familyID, "family-id", 0, "family id (required)")
	cmd.MarkFlagRequired("family-id")
	return cmd
}

func newBalancesCmd(opts *rootOptions) *cobra.Command {
	var familyID int64
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Refresh and print balances for a family's active accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePositive("family-id", familyID); err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				balances, err := a.sync.GetAccountBalances(ctx, familyID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), balances)
			})
		},
	}
	cmd.Flags().Int64Var(&familyID, "family-id", 0, "family id (required)")
	cmd.MarkFlagRequired("family-id")
	return cmd
}

func newItemStatusCmd(opts *rootOptions) *cobra.Command {
	var familyID int64
	cmd := &cobra.Command{
		Use:   "item-status",
		Short: "Show connection health for each of a family's items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePositive("family-id", familyID); err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				items, err := a.sync.GetItemStatus(ctx, familyID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().Int64Var(&familyID, "family-id", 0, "family id (required)")
	cmd.MarkFlagRequired("family-id")
	return cmd
}

func newRefreshItemCmd(opts *rootOptions) *cobra.Command {
	var itemID string
	cmd := &cobra.Command{
		Use:   "refresh-item",
		Short: "Refresh balances and transactions for every account of an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.sync.RefreshItemData(ctx, itemID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item-id", "", "aggregator item id (required)")
	cmd.MarkFlagRequired("item-id")
	return cmd
}

func newLinkTokenCmd(opts *rootOptions) *cobra.Command {
	var itemID, userID string
	cmd := &cobra.Command{
		Use:   "link-token",
		Short: "Mint an update-mode link token to repair an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				token, err := a.sync.CreateLinkTokenForUpdate(ctx, itemID, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), token)
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item-id", "", "aggregator item id (required)")
	cmd.Flags().StringVar(&userID, "user-id", "", "client user id sent to the aggregator (required)")
	cmd.MarkFlagRequired("item-id")
	cmd.MarkFlagRequired("user-id")
	return cmd
}

func requirePositive(flag string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("--%s must be a positive id", flag)
	}
	return nil
}
