package shopify

import (
	"bytes"
	"io"
	"net/http"

	"shopify-embedded-app/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// HMACHeader carries the base64 HMAC-SHA256 of the raw webhook body
const HMACHeader = "X-Shopify-Hmac-Sha256"

// WebhookVerifier checks webhook signatures with the app's shared secret
type WebhookVerifier struct {
	app goshopify.App
}

// NewWebhookVerifier creates a verifier for the given app secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{app: goshopify.App{ApiSecret: secret}}
}

// Verify checks the signature of payload, the already-read body of r
func (v *WebhookVerifier) Verify(r *http.Request, payload []byte) error {
	if r.Header.Get(HMACHeader) == "" {
		return domain.ErrInvalidWebhook
	}

	// go-shopify reads the body itself, so hand it a private copy
	clone := r.Clone(r.Context())
	clone.Body = io.NopCloser(bytes.NewReader(payload))
	if !v.app.VerifyWebhookRequest(clone) {
		return domain.ErrInvalidWebhook
	}
	return nil
}
