package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/infrastructure/metrics"
	"shopify-embedded-app/internal/ports"

	"github.com/rs/zerolog"
)

// AuthOptions carries the settings the OAuth flow needs from the environment
type AuthOptions struct {
	Scopes         []string
	CallbackURL    string
	WebhookAddress string
	AppURL         string
	BillingEnabled bool
	Billing        domain.BillingPlan
}

// AfterAuthResult tells the HTTP layer where to send the merchant once the
// handshake is complete
type AfterAuthResult struct {
	RedirectURL  string
	Registration *domain.WebhookRegistration
}

// AuthService runs the OAuth handshake and the post-install steps
type AuthService struct {
	client     ports.ShopifyClient
	repository ports.Repository
	opts       AuthOptions
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewAuthService creates a new auth service. repository and m may be nil.
func NewAuthService(
	client ports.ShopifyClient,
	repository ports.Repository,
	opts AuthOptions,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		client:     client,
		repository: repository,
		opts:       opts,
		metrics:    m,
		logger:     logger,
	}
}

// NewState returns a random nonce for the OAuth state parameter
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BeginAuth returns the Shopify authorize URL for shop
func (s *AuthService) BeginAuth(shop, state string) (string, error) {
	if !domain.ValidShopDomain(shop) {
		return "", domain.ErrInvalidShop
	}
	return s.client.GenerateAuthURL(shop, s.opts.Scopes, s.opts.CallbackURL, state)
}

// CompleteAuth validates the OAuth callback and exchanges its code for an
// access token. expectedState is the nonce stored when the flow began.
func (s *AuthService) CompleteAuth(ctx context.Context, callback *url.URL, expectedState string) (domain.Session, error) {
	session, err := s.completeAuth(ctx, callback, expectedState)
	if s.metrics != nil {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultFailure
		}
		s.metrics.OAuthCompletions.WithLabelValues(result).Inc()
	}
	return session, err
}

func (s *AuthService) completeAuth(ctx context.Context, callback *url.URL, expectedState string) (domain.Session, error) {
	q := callback.Query()
	shop := q.Get("shop")

	if !domain.ValidShopDomain(shop) {
		return domain.Session{}, domain.ErrInvalidShop
	}
	if expectedState == "" || q.Get("state") != expectedState {
		s.logger.Warn().Str("shop", shop).Msg("OAuth state mismatch")
		return domain.Session{}, domain.ErrInvalidState
	}

	ok, err := s.client.VerifyAuthorizationURL(callback)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidHMAC, err)
	}
	if !ok {
		s.logger.Warn().Str("shop", shop).Msg("OAuth callback HMAC verification failed")
		return domain.Session{}, domain.ErrInvalidHMAC
	}

	code := q.Get("code")
	if code == "" {
		return domain.Session{}, fmt.Errorf("missing authorization code: %w", domain.ErrInvalidState)
	}

	token, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return domain.Session{}, fmt.Errorf("failed to exchange token: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Strs("scopes", token.Scopes).
		Msg("OAuth token exchange completed")

	return domain.Session{Shop: shop, AccessToken: token.Token, Scopes: token.Scopes}, nil
}

// AfterAuth runs once per successful handshake: it subscribes the shop to
// products/create, records the install, and picks the redirect. A failed
// webhook registration is logged and never fails the request; a failed
// billing request does.
func (s *AuthService) AfterAuth(ctx context.Context, session domain.Session) (*AfterAuthResult, error) {
	if !session.Authenticated() {
		return nil, domain.ErrMissingSession
	}

	registration := s.registerWebhook(ctx, session)
	s.recordInstall(ctx, session, registration.Success)

	result := &AfterAuthResult{
		RedirectURL:  "/?shop=" + url.QueryEscape(session.Shop),
		Registration: registration,
	}

	if s.opts.BillingEnabled {
		confirmationURL, err := s.client.CreateAppSubscription(ctx, session.Shop, session.AccessToken, s.opts.Billing, s.opts.AppURL)
		if err != nil {
			s.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to create app subscription")
			return nil, fmt.Errorf("failed to create app subscription: %w", err)
		}
		result.RedirectURL = confirmationURL
	}

	return result, nil
}

func (s *AuthService) registerWebhook(ctx context.Context, session domain.Session) *domain.WebhookRegistration {
	registration, err := s.client.RegisterWebhook(ctx, session.Shop, session.AccessToken, domain.WebhookSubscription{
		Topic:   domain.TopicProductsCreate,
		Address: s.opts.WebhookAddress,
		Format:  "JSON",
	})
	if err != nil {
		registration = &domain.WebhookRegistration{Success: false, Result: err.Error()}
	}

	result := metrics.ResultSuccess
	if registration.Success {
		s.logger.Info().Str("shop", session.Shop).Msg("Successfully registered webhook!")
	} else {
		result = metrics.ResultFailure
		s.logger.Warn().
			Str("shop", session.Shop).
			Interface("result", registration.Result).
			Msg("Failed to register webhook")
	}
	if s.metrics != nil {
		s.metrics.WebhookRegistrations.WithLabelValues(domain.TopicProductsCreate, result).Inc()
	}
	return registration
}

func (s *AuthService) recordInstall(ctx context.Context, session domain.Session, webhookRegistered bool) {
	if s.repository == nil {
		return
	}

	existing, err := s.repository.GetShop(ctx, session.Shop)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Failed to look up shop")
	}
	if existing == nil {
		s.logger.Info().Str("shop", session.Shop).Msg("New install")
	}

	shop := &domain.Shop{
		Domain:            session.Shop,
		Scopes:            session.Scopes,
		WebhookRegistered: webhookRegistered,
		InstalledAt:       time.Now().UTC(),
	}
	if err := s.repository.SaveShop(ctx, shop); err != nil {
		s.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to save shop")
	}
}
