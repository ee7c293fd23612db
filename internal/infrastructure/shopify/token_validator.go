package shopify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const tokenValidityTTL = 5 * time.Minute

// TokenValidator checks whether a stored access token is still accepted by
// Shopify. Shopify tokens don't expire, but they are revoked on uninstall.
type TokenValidator struct {
	apiVersion string
	opts       options
	valid      *cache.Cache
	logger     zerolog.Logger
}

// NewTokenValidator creates a validator that remembers positive answers for a few minutes
func NewTokenValidator(apiVersion string, logger zerolog.Logger, opts ...Option) *TokenValidator {
	return &TokenValidator{
		apiVersion: apiVersion,
		opts:       newOptions(opts),
		valid:      cache.New(tokenValidityTTL, 2*tokenValidityTTL),
		logger:     logger,
	}
}

// Validate makes a lightweight Admin API call with the token. Only 401 and 403
// count as invalid; other failures are logged and the token is assumed valid.
func (tv *TokenValidator) Validate(ctx context.Context, shopDomain string, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token is empty")
	}
	if shopDomain == "" {
		return false, fmt.Errorf("shop domain is required for token validation")
	}

	key := cacheKey(shopDomain, token)
	if _, ok := tv.valid.Get(key); ok {
		return true, nil
	}

	url := fmt.Sprintf("%s/admin/api/%s/shop.json", tv.opts.shopURL(shopDomain), tv.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := tv.opts.httpClient.Do(req)
	if err != nil {
		tv.logger.Warn().
			Err(err).
			Str("shop", shopDomain).
			Msg("Token validation network error (assuming token is valid)")
		return true, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		tv.logger.Warn().
			Int("status", resp.StatusCode).
			Str("shop", shopDomain).
			Msg("Token validation failed: token is invalid or revoked")
		return false, nil
	}

	if resp.StatusCode != http.StatusOK {
		tv.logger.Warn().
			Int("status", resp.StatusCode).
			Str("shop", shopDomain).
			Msg("Token validation returned non-OK status (assuming token is valid)")
		return true, nil
	}

	tv.valid.SetDefault(key, struct{}{})
	tv.logger.Debug().
		Str("shop", shopDomain).
		Msg("Token validation successful")
	return true, nil
}

func cacheKey(shopDomain, token string) string {
	sum := sha256.Sum256([]byte(token))
	return shopDomain + ":" + hex.EncodeToString(sum[:])
}
