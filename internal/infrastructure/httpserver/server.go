package httpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"shopify-embedded-app/docs"
	"shopify-embedded-app/internal/application"
	"shopify-embedded-app/internal/config"
	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/infrastructure/metrics"
	appmiddleware "shopify-embedded-app/internal/infrastructure/middleware"
	"shopify-embedded-app/internal/ports"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// TokenValidator checks a stored access token against Shopify
type TokenValidator interface {
	Validate(ctx context.Context, shop, token string) (bool, error)
}

// Deps are the collaborators the router is assembled from
type Deps struct {
	Config   *config.Config
	Sessions ports.SessionStore
	Auth     *application.AuthService
	Webhooks *application.WebhookService
	Verifier appmiddleware.WebhookVerifier
	// Tokens is optional; when nil the gate trusts the session
	Tokens   TokenValidator
	GraphQL  http.Handler
	Renderer ports.Renderer
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// Server holds the handlers of the embedded app
type Server struct {
	sessions ports.SessionStore
	auth     *application.AuthService
	webhooks *application.WebhookService
	tokens   TokenValidator
	logger   zerolog.Logger
}

// NewRouter wires every route. Webhooks, /health and /metrics sit outside
// the session; everything else loads it, and all but /auth* must pass the
// session gate before reaching the GraphQL proxy or the renderer.
func NewRouter(d Deps) http.Handler {
	s := &Server{
		sessions: d.Sessions,
		auth:     d.Auth,
		webhooks: d.Webhooks,
		tokens:   d.Tokens,
		logger:   d.Logger,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmiddleware.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(appmiddleware.HTTPMetrics(d.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.With(appmiddleware.VerifyWebhook(d.Verifier, d.Logger)).
		Post(domain.ProductsCreatePath, s.handleProductsCreate)

	if !d.Config.Production {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(docs.SwaggerJSON)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.LoadAndSave)

		// proxied responses go back exactly as Shopify sent them
		r.With(s.verifyRequest).Post("/graphql", d.GraphQL.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.SecurityHeadersMiddleware(s.shopFor))

			r.Get("/auth", s.handleAuth)
			r.Get("/auth/inline", s.handleAuthInline)
			r.Get("/auth/callback", s.handleAuthCallback)

			r.Group(func(r chi.Router) {
				r.Use(s.verifyRequest)

				if !d.Config.Production {
					r.Handle("/graphiql", playground.Handler("Shopify Admin GraphQL", "/graphql"))
				}
				r.HandleFunc("/*", d.Renderer.ServeHTTP)
			})
		})
	})

	return r
}

// shopFor picks the shop a request belongs to: the query wins, then the session
func (s *Server) shopFor(r *http.Request) string {
	if shop := r.URL.Query().Get("shop"); shop != "" {
		return shop
	}
	return s.sessions.Load(r.Context()).Shop
}
