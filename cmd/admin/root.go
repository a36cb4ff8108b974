package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"ledgerly/internal/domain/banksync"
	"ledgerly/internal/infrastructure/aggregator"
	"ledgerly/internal/infrastructure/crypto"
	"ledgerly/internal/infrastructure/postgres"
	"ledgerly/internal/shared/config"
)

type rootOptions struct {
	envFile string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "admin",
		Short: "Ledgerly bank-sync admin commands",
		Long: `admin runs sync engine operations by hand, outside the scheduler.

Examples:
  admin migrate
  admin sync-account --account-id=42
  admin sync-family --family-id=7
  admin item-status --family-id=7
  admin link-token --item-id=item-abc --user-id=user-1`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "timeout for the whole command")

	root.AddCommand(
		newMigrateCmd(opts),
		newSyncAccountCmd(opts),
		newSyncFamilyCmd(opts),
		newBalancesCmd(opts),
		newItemStatusCmd(opts),
		newRefreshItemCmd(opts),
		newLinkTokenCmd(opts),
		newLinkAccountCmd(opts),
	)

	return root
}

// app is the wiring shared by every command
type app struct {
	db       *postgres.DB
	accounts *postgres.BankAccountRepository
	client   *aggregator.Client
	sync     *banksync.Service
}

func (o *rootOptions) open() (*app, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool := postgres.DefaultPoolConfig
	pool.MaxOpenConns = 5
	db, err := postgres.New(cfg.Database.ConnectionString(), pool)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	baseURL := cfg.Aggregator.BaseURL
	if baseURL == "" {
		baseURL = aggregator.BaseURLForEnvironment(cfg.Aggregator.Environment)
	}
	client := aggregator.NewClient(aggregator.Config{
		BaseURL:           baseURL,
		ClientID:          cfg.Aggregator.ClientID,
		Secret:            cfg.Aggregator.Secret,
		RequestsPerSecond: cfg.Aggregator.RequestsPerSecond,
		Timeout:           cfg.Aggregator.Timeout,
	})

	accounts := postgres.NewBankAccountRepository(db, encryptor)
	service := banksync.NewService(client, accounts, postgres.NewTransactionRepository(db),
		banksync.WithCountryCodes(cfg.Aggregator.CountryCodes),
		banksync.WithLinkConfig(banksync.LinkConfig{
			ClientName: cfg.Aggregator.ClientName,
			Language:   cfg.Aggregator.Language,
			WebhookURL: cfg.Aggregator.WebhookURL,
		}),
		banksync.WithMaxTransactionPages(cfg.Aggregator.MaxTransactionPages),
	)

	return &app{db: db, accounts: accounts, client: client, sync: service}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// withApp opens the app, runs fn under the command timeout and closes the app.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := o.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
