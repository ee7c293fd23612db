package httpserver

import (
	"net/http"
	"net/url"

	"shopify-embedded-app/internal/domain"
)

// verifyRequest lets authenticated sessions through and sends everyone else
// to /auth. A ?shop= that disagrees with the session forces a new handshake
// so switching stores never reuses another shop's token.
func (s *Server) verifyRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session := s.sessions.Load(ctx)
		queryShop := domain.NormalizeShopDomain(r.URL.Query().Get("shop"))

		ok := session.Authenticated() && (queryShop == "" || queryShop == session.Shop)
		if ok && s.tokens != nil {
			valid, err := s.tokens.Validate(ctx, session.Shop, session.AccessToken)
			if err != nil {
				s.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Access token validation failed")
			}
			if !valid {
				s.logger.Info().Str("shop", session.Shop).Msg("Access token revoked, restarting OAuth")
				if err := s.sessions.Destroy(ctx); err != nil {
					s.logger.Error().Err(err).Msg("Failed to destroy session")
				}
				ok = false
			}
		}

		if ok {
			next.ServeHTTP(w, r)
			return
		}

		target := "/auth"
		if domain.ValidShopDomain(queryShop) {
			target += "?shop=" + url.QueryEscape(queryShop)
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}
