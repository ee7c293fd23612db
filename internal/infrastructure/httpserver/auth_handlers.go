package httpserver

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"shopify-embedded-app/internal/application"
	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/infrastructure/render"
)

// TopLevelOAuthCookie marks that OAuth was started from the top-level window
const TopLevelOAuthCookie = "shopifyTopLevelOAuth"

var topLevelRedirect = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
  <head><meta charset="utf-8"></head>
  <body>
    <script>
      var target = {{.}};
      if (window.top === window.self) {
        window.location.href = target;
      } else {
        window.top.location.href = target;
      }
    </script>
  </body>
</html>
`))

// handleAuth starts OAuth. Inside the admin iframe the cookies needed for
// the handshake may be blocked, so the first visit moves the top window to
// /auth/inline, which sets a first-party cookie and comes back here.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	shop := domain.NormalizeShopDomain(r.URL.Query().Get("shop"))
	if !domain.ValidShopDomain(shop) {
		http.Error(w, "Expected a valid shop query parameter", http.StatusBadRequest)
		return
	}

	if _, err := r.Cookie(TopLevelOAuthCookie); err != nil {
		inline := "/auth/inline?shop=" + url.QueryEscape(shop)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := topLevelRedirect.Execute(w, inline); err != nil {
			s.logger.Error().Err(err).Msg("Failed to render top-level redirect")
		}
		return
	}

	state, err := application.NewState()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate state")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.sessions.PutState(r.Context(), state)

	authURL, err := s.auth.BeginAuth(shop, state)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to build authorize url")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Str("shop", shop).Msg("Redirecting to Shopify OAuth")
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleAuthInline(w http.ResponseWriter, r *http.Request) {
	shop := domain.NormalizeShopDomain(r.URL.Query().Get("shop"))
	if !domain.ValidShopDomain(shop) {
		http.Error(w, "Expected a valid shop query parameter", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TopLevelOAuthCookie,
		Value:    "1",
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/auth?shop="+url.QueryEscape(shop), http.StatusFound)
}

// handleAuthCallback finishes the handshake. The shopOrigin cookie is set
// before the post-auth steps so it is present whatever they decide.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	expected := s.sessions.PopState(ctx)
	session, err := s.auth.CompleteAuth(ctx, r.URL, expected)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidShop):
			http.Error(w, "Expected a valid shop query parameter", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidHMAC):
			http.Error(w, "Request origin could not be verified", http.StatusForbidden)
		default:
			http.Error(w, "Failed to complete installation", http.StatusBadGateway)
		}
		return
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to save session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   TopLevelOAuthCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     render.ShopOriginCookie,
		Value:    session.Shop,
		Path:     "/",
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	result, err := s.auth.AfterAuth(ctx, session)
	if err != nil {
		// an unconfirmed charge must not leave a usable session behind
		if derr := s.sessions.Destroy(ctx); derr != nil {
			s.logger.Error().Err(derr).Msg("Failed to destroy session")
		}
		http.Error(w, "Failed to complete installation", http.StatusBadGateway)
		return
	}

	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}
