package webhook_handlers

import (
	"context"
	"encoding/json"

	"shopify-embedded-app/internal/domain"

	"github.com/rs/zerolog"
)

// ProductHandler logs products/create deliveries
type ProductHandler struct {
	logger zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == domain.HeaderTopicProductsCreate
}

// Handle logs the delivery. A payload that is not JSON is still logged raw;
// the signature already proved it came from Shopify.
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var product struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		Handle      string `json:"handle"`
		Vendor      string `json:"vendor"`
		ProductType string `json:"product_type"`
	}

	log := h.logger.Info().
		Str("webhookId", event.ID).
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("apiVersion", event.APIVersion)

	if err := json.Unmarshal(event.Payload, &product); err != nil {
		log.Str("payload", string(event.Payload)).Msg("received webhook")
		return nil
	}

	log.
		Int64("productId", product.ID).
		Str("title", product.Title).
		Str("handle", product.Handle).
		Str("vendor", product.Vendor).
		Str("productType", product.ProductType).
		RawJSON("payload", event.Payload).
		Msg("received webhook")
	return nil
}
