package middleware

import (
	"errors"
	"io"
	"net/http"
	"time"

	"shopify-embedded-app/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxWebhookBodyBytes caps how much of a webhook body is read
const MaxWebhookBodyBytes = 1 << 20

// Shopify webhook headers
const (
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderAPIVersion = "X-Shopify-API-Version"
)

// WebhookVerifier checks the signature of an already-read webhook body
type WebhookVerifier interface {
	Verify(r *http.Request, payload []byte) error
}

// VerifyWebhook authenticates Shopify webhook deliveries. Unsigned or
// tampered requests get 401 and never reach next; verified ones carry a
// domain.WebhookEvent in their context.
func VerifyWebhook(verifier WebhookVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
					return
				}
				logger.Error().Err(err).Msg("Failed to read webhook payload")
				http.Error(w, "Failed to read request body", http.StatusBadRequest)
				return
			}

			if err := verifier.Verify(r, payload); err != nil {
				logger.Warn().
					Err(err).
					Str("topic", r.Header.Get(HeaderTopic)).
					Str("shop", r.Header.Get(HeaderShopDomain)).
					Msg("Webhook signature verification failed")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			id := r.Header.Get(HeaderWebhookID)
			if id == "" {
				id = uuid.NewString()
			}
			event := &domain.WebhookEvent{
				ID:         id,
				Topic:      r.Header.Get(HeaderTopic),
				Shop:       r.Header.Get(HeaderShopDomain),
				APIVersion: r.Header.Get(HeaderAPIVersion),
				Payload:    payload,
				Verified:   true,
				ReceivedAt: time.Now().UTC(),
			}

			next.ServeHTTP(w, r.WithContext(domain.WithWebhookEvent(r.Context(), event)))
		})
	}
}
