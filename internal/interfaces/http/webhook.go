package http

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"ledgerly/internal/domain/webhook"
	"ledgerly/internal/infrastructure/aggregator"
)

const (
	maxWebhookBody = 1 << 20
	webhookTimeout = 2 * time.Minute
)

// EventHandler processes a parsed webhook event.
type EventHandler interface {
	Handle(ctx context.Context, event *webhook.Event) error
}

// Verifier authenticates a raw webhook body against its signature token.
type Verifier interface {
	Verify(ctx context.Context, token string, body []byte) error
}

type WebhookHandler struct {
	events   EventHandler
	verifier Verifier
}

// NewWebhookHandler creates the inbound webhook endpoint.
// A nil verifier accepts unsigned requests (sandbox only).
func NewWebhookHandler(events EventHandler, verifier Verifier) *WebhookHandler {
	return &WebhookHandler{events: events, verifier: verifier}
}

// HandleWebhook verifies, parses and dispatches one aggregator webhook
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r.Context(), r.Header.Get(aggregator.VerificationHeader), body); err != nil {
			log.Printf("Webhook rejected: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	event, err := webhook.ParseEvent(body)
	if err != nil {
		log.Printf("Webhook rejected: %v", err)
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	// Processing outlives a caller disconnect.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), webhookTimeout)
	defer cancel()

	if err := h.events.Handle(ctx, event); err != nil {
		log.Printf("Webhook %s/%s for item %s failed: %v", event.WebhookType, event.WebhookCode, event.ItemID, err)
		http.Error(w, "Webhook processing failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
