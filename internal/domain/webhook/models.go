package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgerly/internal/infrastructure/aggregator"
)

// Webhook types
const (
	TypeTransactions = "TRANSACTIONS"
	TypeItem         = "ITEM"
	TypeAuth         = "AUTH"
	TypeIdentity     = "IDENTITY"
	TypeAssets       = "ASSETS"
)

// Webhook codes
const (
	CodeInitialUpdate             = "INITIAL_UPDATE"
	CodeHistoricalUpdate          = "HISTORICAL_UPDATE"
	CodeDefaultUpdate             = "DEFAULT_UPDATE"
	CodeTransactionsRemoved       = "TRANSACTIONS_REMOVED"
	CodeError                     = "ERROR"
	CodePendingExpiration         = "PENDING_EXPIRATION"
	CodeUserPermissionRevoked     = "USER_PERMISSION_REVOKED"
	CodeWebhookUpdateAcknowledged = "WEBHOOK_UPDATE_ACKNOWLEDGED"
)

// Outcome is the result recorded for one inbound webhook.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeError     Outcome = "error"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// Event is one inbound aggregator webhook.
type Event struct {
	WebhookType           string                `json:"webhook_type"`
	WebhookCode           string                `json:"webhook_code"`
	ItemID                string                `json:"item_id"`
	Error                 *aggregator.ItemError `json:"error,omitempty"`
	NewTransactions       *int                  `json:"new_transactions,omitempty"`
	RemovedTransactions   []string              `json:"removed_transactions,omitempty"`
	ConsentExpirationTime *string               `json:"consent_expiration_time,omitempty"`

	// Raw is the payload exactly as received.
	Raw json.RawMessage `json:"-"`
}

// ParseEvent decodes a webhook body and keeps the raw bytes for the audit log.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if event.WebhookType == "" {
		return nil, fmt.Errorf("%w: missing webhook_type", ErrInvalidPayload)
	}
	event.Raw = append(json.RawMessage(nil), body...)
	return &event, nil
}

// LogEntry is the audit record written once per handled webhook.
type LogEntry struct {
	ID           uuid.UUID       `json:"id"`
	WebhookType  string          `json:"webhookType"`
	WebhookCode  string          `json:"webhookCode"`
	ItemID       string          `json:"itemId"`
	Outcome      Outcome         `json:"outcome"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
	ReceivedAt   time.Time       `json:"receivedAt"`
	Payload      json.RawMessage `json:"payload"`
}

func newLogEntry(event *Event, handleErr error, at time.Time) *LogEntry {
	entry := &LogEntry{
		ID:          uuid.New(),
		WebhookType: event.WebhookType,
		WebhookCode: event.WebhookCode,
		ItemID:      event.ItemID,
		Outcome:     OutcomeProcessed,
		ReceivedAt:  at,
		Payload:     event.Raw,
	}
	if handleErr != nil {
		msg := handleErr.Error()
		entry.Outcome = OutcomeError
		entry.ErrorMessage = &msg
	}
	if len(entry.Payload) == 0 {
		// Events built in code rather than parsed still get a payload.
		if raw, err := json.Marshal(event); err == nil {
			entry.Payload = raw
		}
	}
	return entry
}
