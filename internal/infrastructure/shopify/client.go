package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type options struct {
	httpClient *http.Client
	shopURL    func(shop string) string
}

// Option customises how the adapters reach Shopify
type Option func(*options)

// WithHTTPClient sets the HTTP client used for direct calls to the shop
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithShopURL overrides how a shop domain maps to its base URL
func WithShopURL(shopURL func(shop string) string) Option {
	return func(o *options) {
		o.shopURL = shopURL
	}
}

func newOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		shopURL: func(shop string) string {
			return "https://" + shop
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type client struct {
	apiKey     string
	apiSecret  string
	apiVersion string
	app        goshopify.App
	opts       options
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter pinned to one Admin API version
func NewClient(apiKey, apiSecret, apiVersion string, logger zerolog.Logger, opts ...Option) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		apiVersion: apiVersion,
		app:        app,
		opts:       newOptions(opts),
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken,
		goshopify.WithVersion(c.apiVersion),
		goshopify.WithHTTPClient(c.opts.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Authentication methods

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	if !domain.ValidShopDomain(shop) {
		return "", domain.ErrInvalidShop
	}

	u, err := url.Parse(c.opts.shopURL(shop) + "/admin/oauth/authorize")
	if err != nil {
		return "", fmt.Errorf("failed to build authorize url: %w", err)
	}

	// Shopify expects scopes to be comma-separated (no spaces)
	q := u.Query()
	q.Set("client_id", c.apiKey)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	c.logger.Debug().
		Str("shop", shop).
		Strs("scopes", scopes).
		Msg("Generated OAuth authorization URL")

	return u.String(), nil
}

func (c *client) VerifyAuthorizationURL(u *url.URL) (bool, error) {
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		return false, fmt.Errorf("failed to verify authorization url: %w", err)
	}
	return ok, nil
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (*domain.AccessToken, error) {
	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	tokenURL := c.opts.shopURL(shop) + "/admin/oauth/access_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange token: empty access token")
	}

	var scopes []string
	for _, s := range strings.Split(tokenResponse.Scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}

	return &domain.AccessToken{Token: tokenResponse.AccessToken, Scopes: scopes}, nil
}

// Webhook API

const webhookSubscriptionCreateMutation = `mutation webhookSubscriptionCreate($topic: WebhookSubscriptionTopic!, $webhookSubscription: WebhookSubscriptionInput!) {
  webhookSubscriptionCreate(topic: $topic, webhookSubscription: $webhookSubscription) {
    userErrors {
      field
      message
    }
    webhookSubscription {
      id
    }
  }
}`

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type webhookSubscriptionCreateResult struct {
	WebhookSubscriptionCreate struct {
		UserErrors          []userError `json:"userErrors"`
		WebhookSubscription *struct {
			ID string `json:"id"`
		} `json:"webhookSubscription"`
	} `json:"webhookSubscriptionCreate"`
}

func (c *client) RegisterWebhook(ctx context.Context, shopDomain string, accessToken string, subscription domain.WebhookSubscription) (*domain.WebhookRegistration, error) {
	gql, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}

	format := subscription.Format
	if format == "" {
		format = "JSON"
	}
	vars := map[string]any{
		"topic": subscription.Topic,
		"webhookSubscription": map[string]any{
			"callbackUrl": subscription.Address,
			"format":      format,
		},
	}

	var result webhookSubscriptionCreateResult
	if err := gql.GraphQL.Query(ctx, webhookSubscriptionCreateMutation, vars, &result); err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	payload := result.WebhookSubscriptionCreate
	return &domain.WebhookRegistration{
		Success: len(payload.UserErrors) == 0 && payload.WebhookSubscription != nil,
		Result:  result,
	}, nil
}

// Billing API

const appSubscriptionCreateMutation = `mutation appSubscriptionCreate($name: String!, $returnUrl: URL!, $test: Boolean, $trialDays: Int, $lineItems: [AppSubscriptionLineItemInput!]!) {
  appSubscriptionCreate(name: $name, returnUrl: $returnUrl, test: $test, trialDays: $trialDays, lineItems: $lineItems) {
    userErrors {
      field
      message
    }
    confirmationUrl
    appSubscription {
      id
    }
  }
}`

type appSubscriptionCreateResult struct {
	AppSubscriptionCreate struct {
		UserErrors      []userError `json:"userErrors"`
		ConfirmationURL string      `json:"confirmationUrl"`
	} `json:"appSubscriptionCreate"`
}

func (c *client) CreateAppSubscription(ctx context.Context, shopDomain string, accessToken string, plan domain.BillingPlan, returnURL string) (string, error) {
	gql, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return "", err
	}

	var result appSubscriptionCreateResult
	if err := gql.GraphQL.Query(ctx, appSubscriptionCreateMutation, appSubscriptionVariables(plan, returnURL), &result); err != nil {
		return "", fmt.Errorf("failed to create app subscription: %w", err)
	}

	payload := result.AppSubscriptionCreate
	if len(payload.UserErrors) > 0 {
		messages := make([]string, 0, len(payload.UserErrors))
		for _, ue := range payload.UserErrors {
			messages = append(messages, ue.Message)
		}
		return "", fmt.Errorf("failed to create app subscription: %s", strings.Join(messages, "; "))
	}
	if payload.ConfirmationURL == "" {
		return "", fmt.Errorf("failed to create app subscription: no confirmation url returned")
	}

	return payload.ConfirmationURL, nil
}

func appSubscriptionVariables(plan domain.BillingPlan, returnURL string) map[string]any {
	lineItems := []map[string]any{}
	if plan.UsageCap > 0 {
		lineItems = append(lineItems, map[string]any{
			"plan": map[string]any{
				"appUsagePricingDetails": map[string]any{
					"cappedAmount": map[string]any{"amount": plan.UsageCap, "currencyCode": plan.Currency},
					"terms":        plan.UsageTerms,
				},
			},
		})
	}
	lineItems = append(lineItems, map[string]any{
		"plan": map[string]any{
			"appRecurringPricingDetails": map[string]any{
				"price": map[string]any{"amount": plan.Price, "currencyCode": plan.Currency},
			},
		},
	})

	return map[string]any{
		"name":      plan.Name,
		"returnUrl": returnURL,
		"test":      plan.Test,
		"trialDays": plan.TrialDays,
		"lineItems": lineItems,
	}
}
