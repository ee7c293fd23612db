package application

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"shopify-embedded-app/internal/domain"
)

type fakeShopifyClient struct {
	verifyOK        bool
	token           *domain.AccessToken
	exchangeErr     error
	registration    *domain.WebhookRegistration
	registerErr     error
	confirmationURL string
	subscriptionErr error

	registered    []domain.WebhookSubscription
	subscriptions int
}

func (f *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return "https://" + shop + "/admin/oauth/authorize?" + q.Encode(), nil
}

func (f *fakeShopifyClient) VerifyAuthorizationURL(*url.URL) (bool, error) {
	return f.verifyOK, nil
}

func (f *fakeShopifyClient) ExchangeToken(context.Context, string, string) (*domain.AccessToken, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeShopifyClient) RegisterWebhook(_ context.Context, _ string, _ string, sub domain.WebhookSubscription) (*domain.WebhookRegistration, error) {
	f.registered = append(f.registered, sub)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registration, nil
}

func (f *fakeShopifyClient) CreateAppSubscription(context.Context, string, string, domain.BillingPlan, string) (string, error) {
	f.subscriptions++
	if f.subscriptionErr != nil {
		return "", f.subscriptionErr
	}
	return f.confirmationURL, nil
}

type fakeRepository struct {
	mu       sync.Mutex
	shops    map[string]*domain.Shop
	webhooks []*domain.WebhookEvent
	err      error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{shops: map[string]*domain.Shop{}}
}

func (r *fakeRepository) SaveShop(_ context.Context, shop *domain.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.shops[shop.Domain] = shop
	return nil
}

func (r *fakeRepository) GetShop(_ context.Context, shopDomain string) (*domain.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shops[shopDomain], nil
}

func (r *fakeRepository) LogWebhook(_ context.Context, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.webhooks = append(r.webhooks, event)
	return nil
}

type recordingHandler struct {
	topic string
	err   error
	calls int
}

func (h *recordingHandler) CanHandle(topic string) bool { return topic == h.topic }

func (h *recordingHandler) Handle(context.Context, *domain.WebhookEvent) error {
	h.calls++
	return h.err
}

var errBoom = errors.New("boom")
