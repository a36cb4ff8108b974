package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	httphandlers "ledgerly/internal/interfaces/http"
	"ledgerly/internal/shared/config"
	"ledgerly/internal/shared/middleware"
	"ledgerly/internal/shared/telemetry"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, tel *telemetry.Provider, cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging, middleware.Tracing)

	r.Get("/health", httphandlers.HandleHealth)
	r.Handle("/metrics", tel.MetricsHandler())

	// Authenticated by the aggregator's signature, not the internal key
	r.Post("/api/webhooks/aggregator", deps.WebhookHandler.HandleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Internal.APIKey))

		h := deps.BankSyncHandler
		r.Post("/api/accounts/{id}/sync", h.HandleSyncAccount)
		r.Post("/api/families/{familyID}/sync", h.HandleSyncFamily)
		r.Get("/api/families/{familyID}/balances", h.HandleBalances)
		r.Get("/api/families/{familyID}/items", h.HandleItemStatus)
		r.Get("/api/institutions/{id}", h.HandleInstitution)
		r.Post("/api/items/{itemID}/link-token", h.HandleLinkToken)
		r.Post("/api/items/{itemID}/refresh", h.HandleRefreshItem)
	})

	var handler http.Handler = r
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Println("TLS security middleware enabled (HSTS)")
	}

	return handler
}
