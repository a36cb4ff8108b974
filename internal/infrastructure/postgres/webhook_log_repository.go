package postgres

import (
	"context"
	"fmt"

	"ledgerly/internal/domain/webhook"
)

// WebhookLogRepository implements webhook.LogRepository for PostgreSQL
type WebhookLogRepository struct {
	db *DB
}

var _ webhook.LogRepository = (*WebhookLogRepository)(nil)

// NewWebhookLogRepository creates a new PostgreSQL webhook log repository
func NewWebhookLogRepository(db *DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Append writes one audit row
func (r *WebhookLogRepository) Append(ctx context.Context, entry *webhook.LogEntry) error {
	query := `
		INSERT INTO webhook_logs (id, webhook_type, webhook_code, item_id, outcome, error_message, received_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	payload := []byte(entry.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.WebhookType, nullString(entry.WebhookCode), nullString(entry.ItemID),
		string(entry.Outcome), entry.ErrorMessage, entry.ReceivedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append webhook log: %w", err)
	}
	return nil
}
