package main

import (
	"context"
	"fmt"
	"log"

	"ledgerly/internal/domain/banksync"
	"ledgerly/internal/domain/notification"
	"ledgerly/internal/domain/webhook"
	"ledgerly/internal/infrastructure/aggregator"
	"ledgerly/internal/infrastructure/crypto"
	"ledgerly/internal/infrastructure/firebase"
	"ledgerly/internal/infrastructure/postgres"
	"ledgerly/internal/infrastructure/postgres/listener"
	httphandlers "ledgerly/internal/interfaces/http"
	"ledgerly/internal/shared/config"
	"ledgerly/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	BankSyncHandler *httphandlers.BankSyncHandler
	WebhookHandler  *httphandlers.WebhookHandler

	// Sync engine (for scheduler and listener)
	BankSync     *banksync.Service
	SyncListener *listener.SyncRequestListener

	// Repositories (for scheduler job provider)
	BankAccountRepo *postgres.BankAccountRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	pool := postgres.DefaultPoolConfig
	pool.MaxOpenConns = cfg.Database.MaxOpenConns

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

	// Repositories
	bankAccountRepo := postgres.NewBankAccountRepository(db, encryptor)
	transactionRepo := postgres.NewTransactionRepository(db)
	webhookLogRepo := postgres.NewWebhookLogRepository(db)

	aggClient := NewAggregatorClient(cfg.Aggregator)

	syncService := banksync.NewService(aggClient, bankAccountRepo, transactionRepo,
		banksync.WithCountryCodes(cfg.Aggregator.CountryCodes),
		banksync.WithLinkConfig(banksync.LinkConfig{
			ClientName: cfg.Aggregator.ClientName,
			Language:   cfg.Aggregator.Language,
			WebhookURL: cfg.Aggregator.WebhookURL,
		}),
		banksync.WithMaxTransactionPages(cfg.Aggregator.MaxTransactionPages),
	)

	notifier, err := newNotifier(ctx, cfg.Firebase)
	if err != nil {
		db.Close()
		return nil, err
	}

	dispatcher := webhook.NewDispatcher(syncService, bankAccountRepo, transactionRepo, webhookLogRepo,
		webhook.WithNotifier(notifier),
	)

	var verifier httphandlers.Verifier
	if cfg.Aggregator.VerifyWebhooks {
		verifier = aggregator.NewWebhookVerifier(aggClient)
	} else {
		log.Println("Warning: webhook signature verification is disabled")
	}

	return &Dependencies{
		DB:              db,
		BankSyncHandler: httphandlers.NewBankSyncHandler(syncService),
		WebhookHandler:  httphandlers.NewWebhookHandler(dispatcher, verifier),
		BankSync:        syncService,
		SyncListener:    listener.NewSyncRequestListener(cfg.Database.ConnectionString(), syncService),
		BankAccountRepo: bankAccountRepo,
	}, nil
}

// NewAggregatorClient builds the aggregation API client from config.
func NewAggregatorClient(cfg config.AggregatorConfig) *aggregator.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = aggregator.BaseURLForEnvironment(cfg.Environment)
	}
	return aggregator.NewClient(aggregator.Config{
		BaseURL:           baseURL,
		ClientID:          cfg.ClientID,
		Secret:            cfg.Secret,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
	})
}

// newNotifier wires FCM pushes when credentials are configured; otherwise
// notifications are logged and skipped.
func newNotifier(ctx context.Context, cfg config.FirebaseConfig) (*notification.Service, error) {
	msgs, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification messages: %w", err)
	}

	if cfg.CredentialsFile == "" {
		log.Println("Firebase credentials not configured, push notifications disabled")
		return notification.NewService(nil, msgs), nil
	}

	fcm, err := firebase.NewClient(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return notification.NewService(fcm, msgs), nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
