// Package webhook routes inbound aggregator webhooks to local state changes and
// records every invocation in the audit log.
package webhook

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/domain/banksync"
	"ledgerly/internal/domain/notification"
	"ledgerly/internal/domain/transaction"
)

var (
	webhookTracer     = otel.Tracer("ledgerly/webhook")
	webhookMeter      = otel.Meter("ledgerly/webhook")
	webhookHandled, _ = webhookMeter.Int64Counter("webhook.handled", metric.WithDescription("Inbound webhooks by type and outcome"))
)

// Syncer is the per-account sync primitive the dispatcher re-runs on new data.
type Syncer interface {
	SyncTransactionsForAccount(ctx context.Context, accountID int64) (*banksync.AccountSyncResult, error)
}

// Notifier tells a family about a connection problem.
type Notifier interface {
	NotifyConnectionIssue(ctx context.Context, familyID int64, itemID string, issue notification.Issue) error
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNotifier enables connection-issue pushes after item state changes.
func WithNotifier(n Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithClock overrides the timestamp source for log entries.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher handles inbound aggregator webhooks
type Dispatcher struct {
	syncer       Syncer
	accounts     bankaccount.Repository
	transactions transaction.Repository
	logs         LogRepository
	notifier     Notifier
	now          func() time.Time
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(syncer Syncer, accounts bankaccount.Repository, transactions transaction.Repository, logs LogRepository, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		syncer:       syncer,
		accounts:     accounts,
		transactions: transactions,
		logs:         logs,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle dispatches one event, writes exactly one log entry for it and returns
// the dispatch error, if any, after logging.
func (d *Dispatcher) Handle(ctx context.Context, event *Event) error {
	ctx, span := webhookTracer.Start(ctx, "webhook.Handle",
		trace.WithAttributes(
			attribute.String("webhook.type", event.WebhookType),
			attribute.String("webhook.code", event.WebhookCode),
			attribute.String("item.id", event.ItemID),
		),
	)
	defer span.End()

	handleErr := d.dispatch(ctx, event)

	entry := newLogEntry(event, handleErr, d.now())
	webhookHandled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", event.WebhookType),
		attribute.String("outcome", string(entry.Outcome)),
	))

	if err := d.logs.Append(ctx, entry); err != nil {
		log.Printf("Webhook %s/%s for item %s: failed to write log entry: %v", event.WebhookType, event.WebhookCode, event.ItemID, err)
		if handleErr == nil {
			handleErr = fmt.Errorf("failed to record webhook: %w", err)
		}
	}

	if handleErr != nil {
		span.RecordError(handleErr)
		span.SetStatus(codes.Error, handleErr.Error())
	}
	return handleErr
}

func (d *Dispatcher) dispatch(ctx context.Context, event *Event) error {
	switch strings.ToUpper(event.WebhookType) {
	case TypeTransactions:
		return d.handleTransactions(ctx, event)
	case TypeItem:
		return d.handleItem(ctx, event)
	case TypeAuth, TypeIdentity, TypeAssets:
		log.Printf("Webhook %s/%s for item %s: informational, no action", event.WebhookType, event.WebhookCode, event.ItemID)
		return nil
	default:
		log.Printf("Webhook %s/%s for item %s: unrecognized type, ignoring", event.WebhookType, event.WebhookCode, event.ItemID)
		return nil
	}
}

func (d *Dispatcher) handleTransactions(ctx context.Context, event *Event) error {
	switch strings.ToUpper(event.WebhookCode) {
	case CodeInitialUpdate, CodeHistoricalUpdate, CodeDefaultUpdate:
		return d.resyncItem(ctx, event.ItemID)
	case CodeTransactionsRemoved:
		return d.removeTransactions(ctx, event)
	default:
		log.Printf("Webhook TRANSACTIONS/%s for item %s: unhandled code", event.WebhookCode, event.ItemID)
		return nil
	}
}

func (d *Dispatcher) handleItem(ctx context.Context, event *Event) error {
	switch strings.ToUpper(event.WebhookCode) {
	case CodeError:
		if event.Error != nil {
			log.Printf("Item %s: aggregator reported %s/%s: %s", event.ItemID, event.Error.ErrorType, event.Error.ErrorCode, event.Error.ErrorMessage)
		}
		return d.setItemStatus(ctx, event.ItemID, bankaccount.StatusError, notification.IssueConnectionError)
	case CodePendingExpiration:
		return d.setItemStatus(ctx, event.ItemID, bankaccount.StatusError, notification.IssuePendingExpiration)
	case CodeUserPermissionRevoked:
		return d.setItemStatus(ctx, event.ItemID, bankaccount.StatusDisconnected, notification.IssueRevoked)
	case CodeWebhookUpdateAcknowledged:
		log.Printf("Item %s: webhook URL update acknowledged", event.ItemID)
		return nil
	default:
		log.Printf("Webhook ITEM/%s for item %s: unhandled code", event.WebhookCode, event.ItemID)
		return nil
	}
}

// resyncItem re-runs the per-account sync for every syncable account under the item.
// One account failing does not stop the others.
func (d *Dispatcher) resyncItem(ctx context.Context, itemID string) error {
	accounts, err := d.accounts.ListByItemID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to list accounts for item %s: %w", itemID, err)
	}
	if len(accounts) == 0 {
		log.Printf("Item %s: no local accounts, nothing to sync", itemID)
		return nil
	}

	for _, acc := range accounts {
		if acc.IsDeleted() || !acc.IsLinked() || acc.SyncStatus == bankaccount.StatusDisconnected {
			continue
		}
		if _, err := d.syncer.SyncTransactionsForAccount(ctx, acc.ID); err != nil {
			log.Printf("Item %s: sync of account %d failed: %v", itemID, acc.ID, err)
		}
	}
	return nil
}

func (d *Dispatcher) removeTransactions(ctx context.Context, event *Event) error {
	if len(event.RemovedTransactions) == 0 {
		return nil
	}
	removed, err := d.transactions.DeleteByExternalIDs(ctx, event.RemovedTransactions)
	if err != nil {
		return fmt.Errorf("failed to remove transactions for item %s: %w", event.ItemID, err)
	}
	log.Printf("Item %s: removed %d of %d reported transactions", event.ItemID, removed, len(event.RemovedTransactions))
	return nil
}

// setItemStatus flips every account under the item and notifies each affected family once.
func (d *Dispatcher) setItemStatus(ctx context.Context, itemID string, status bankaccount.SyncStatus, issue notification.Issue) error {
	updated, err := d.accounts.UpdateStatusByItemID(ctx, itemID, status)
	if err != nil {
		return fmt.Errorf("failed to set item %s to %s: %w", itemID, status, err)
	}
	log.Printf("Item %s: marked %d accounts %s", itemID, updated, status)

	if d.notifier == nil || updated == 0 {
		return nil
	}

	accounts, err := d.accounts.ListByItemID(ctx, itemID)
	if err != nil {
		log.Printf("Item %s: failed to resolve families to notify: %v", itemID, err)
		return nil
	}
	notified := make(map[int64]bool)
	for _, acc := range accounts {
		if acc.IsDeleted() || notified[acc.FamilyID] {
			continue
		}
		notified[acc.FamilyID] = true
		if err := d.notifier.NotifyConnectionIssue(ctx, acc.FamilyID, itemID, issue); err != nil {
			log.Printf("Family %d: failed to send %s notification: %v", acc.FamilyID, issue, err)
		}
	}
	return nil
}
