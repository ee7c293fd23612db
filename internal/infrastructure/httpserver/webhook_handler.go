package httpserver

import (
	"net/http"

	"shopify-embedded-app/internal/application"
	"shopify-embedded-app/internal/domain"
)

// handleProductsCreate runs after the signature check. Duplicates are
// acknowledged so Shopify stops redelivering; handler failures return 500
// so it retries.
func (s *Server) handleProductsCreate(w http.ResponseWriter, r *http.Request) {
	event, ok := domain.WebhookEventFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.webhooks.Receive(r.Context(), event); err != nil && !application.IsDuplicate(err) {
		http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
