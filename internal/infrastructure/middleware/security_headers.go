package middleware

import (
	"net/http"
	"strings"

	"shopify-embedded-app/internal/domain"
)

// ShopResolver returns the shop a request belongs to, or "" when unknown
type ShopResolver func(r *http.Request) string

// SecurityHeadersMiddleware sets response hardening headers. Framing is
// restricted to the Shopify admin and the request's own shop, which is what
// lets the app render embedded while refusing any other parent.
func SecurityHeadersMiddleware(shopFor ShopResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ancestors := []string{"https://admin.shopify.com"}
			if shop := shopFor(r); domain.ValidShopDomain(shop) {
				ancestors = append([]string{"https://" + shop}, ancestors...)
			}

			h := w.Header()
			h.Set("Content-Security-Policy", "frame-ancestors "+strings.Join(ancestors, " ")+";")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
