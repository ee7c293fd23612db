package ports

import (
	"context"

	"shopify-embedded-app/internal/domain"
)

// Repository defines the interface for persistence of installs and webhook receipts
type Repository interface {
	SaveShop(ctx context.Context, shop *domain.Shop) error
	GetShop(ctx context.Context, domain string) (*domain.Shop, error)
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDeduper claims webhook delivery ids so a redelivered webhook is recorded once
type WebhookDeduper interface {
	// Claim returns true the first time id is seen
	Claim(ctx context.Context, id string) (bool, error)
	// Release forgets id so a redelivery is processed again
	Release(ctx context.Context, id string) error
}
