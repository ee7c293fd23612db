package ports

import (
	"context"
	"net/url"

	"shopify-embedded-app/internal/domain"
)

// ShopifyClient defines the Shopify operations the app performs on behalf of a shop
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	VerifyAuthorizationURL(u *url.URL) (bool, error)
	ExchangeToken(ctx context.Context, shop string, code string) (*domain.AccessToken, error)

	// Webhook API
	RegisterWebhook(ctx context.Context, shop string, accessToken string, subscription domain.WebhookSubscription) (*domain.WebhookRegistration, error)

	// Billing API, returns the merchant confirmation URL
	CreateAppSubscription(ctx context.Context, shop string, accessToken string, plan domain.BillingPlan, returnURL string) (string, error)
}
