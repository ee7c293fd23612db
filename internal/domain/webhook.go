package domain

import (
	"context"
	"time"
)

const (
	// TopicProductsCreate is the GraphQL enum used when registering the subscription
	TopicProductsCreate = "PRODUCTS_CREATE"
	// HeaderTopicProductsCreate is the topic Shopify sends in X-Shopify-Topic
	HeaderTopicProductsCreate = "products/create"

	// ProductsCreatePath is the route the products/create subscription points at
	ProductsCreatePath = "/webhooks/products/create"
)

// WebhookEvent is a verified inbound webhook delivery
type WebhookEvent struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	APIVersion string    `json:"api_version"`
	Payload    []byte    `json:"payload"`
	Verified   bool      `json:"verified"`
	ReceivedAt time.Time `json:"received_at"`
}

// WebhookSubscription describes a subscription to register with Shopify
type WebhookSubscription struct {
	Topic   string
	Address string
	Format  string
}

// WebhookRegistration is the outcome of a registration call. Result holds
// whatever Shopify returned (the mutation payload or the transport error).
type WebhookRegistration struct {
	Success bool `json:"success"`
	Result  any  `json:"result"`
}

type webhookKey struct{}

// WithWebhookEvent stores a verified webhook event in the context
func WithWebhookEvent(ctx context.Context, event *WebhookEvent) context.Context {
	return context.WithValue(ctx, webhookKey{}, event)
}

// WebhookEventFromContext returns the verified webhook event stored in the context
func WebhookEventFromContext(ctx context.Context) (*WebhookEvent, bool) {
	event, ok := ctx.Value(webhookKey{}).(*WebhookEvent)
	return event, ok && event != nil
}
