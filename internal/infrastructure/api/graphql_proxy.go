package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"shopify-embedded-app/internal/infrastructure/metrics"
	"shopify-embedded-app/internal/ports"

	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// MaxGraphQLBodyBytes caps the size of a proxied GraphQL request
const MaxGraphQLBodyBytes = 10 << 20

const accessTokenHeader = "X-Shopify-Access-Token"

// GraphQLProxy forwards the embedded frontend's GraphQL requests to the
// shop's Admin API using the access token held in the session
type GraphQLProxy struct {
	sessions   ports.SessionStore
	apiVersion string
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	shopURL    func(shop string) string
	proxy      *httputil.ReverseProxy
}

// ProxyOption customises the proxy
type ProxyOption func(*GraphQLProxy)

// WithTransport sets the round tripper used for upstream calls
func WithTransport(rt http.RoundTripper) ProxyOption {
	return func(p *GraphQLProxy) {
		p.proxy.Transport = rt
	}
}

// WithShopURL overrides how a shop domain maps to its base URL
func WithShopURL(shopURL func(shop string) string) ProxyOption {
	return func(p *GraphQLProxy) {
		p.shopURL = shopURL
	}
}

type upstreamKey struct{}

type upstream struct {
	target *url.URL
	token  string
}

// NewGraphQLProxy creates a new Admin GraphQL proxy pinned to apiVersion
func NewGraphQLProxy(sessions ports.SessionStore, apiVersion string, m *metrics.Metrics, logger zerolog.Logger, opts ...ProxyOption) *GraphQLProxy {
	p := &GraphQLProxy{
		sessions:   sessions,
		apiVersion: apiVersion,
		metrics:    m,
		logger:     logger,
		shopURL: func(shop string) string {
			return "https://" + shop
		},
	}

	p.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			up := pr.In.Context().Value(upstreamKey{}).(*upstream)
			target := *up.target
			pr.Out.URL = &target
			pr.Out.Host = target.Host
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Set(accessTokenHeader, up.token)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.logger.Error().Err(err).Str("path", r.URL.Path).Msg("GraphQL proxy upstream failure")
			http.Error(w, "Bad gateway", http.StatusBadGateway)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ServeHTTP proxies one GraphQL request. The body and the upstream response
// pass through untouched.
func (p *GraphQLProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := p.sessions.Load(r.Context())
	if !session.Authenticated() {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxGraphQLBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	target, err := url.Parse(p.shopURL(session.Shop) + "/admin/api/" + p.apiVersion + "/graphql.json")
	if err != nil {
		p.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to build GraphQL endpoint")
		http.Error(w, "Bad gateway", http.StatusBadGateway)
		return
	}

	opType, opName := describeOperation(body)
	p.logger.Debug().
		Str("shop", session.Shop).
		Str("operation", opType).
		Str("operationName", opName).
		Msg("Proxying GraphQL request")

	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	r = r.WithContext(context.WithValue(r.Context(), upstreamKey{}, &upstream{target: target, token: session.AccessToken}))

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	p.proxy.ServeHTTP(rec, r)

	if p.metrics != nil {
		p.metrics.GraphQLProxyRequests.WithLabelValues(opType, strconv.Itoa(rec.status)).Inc()
	}
}

// describeOperation extracts the operation type and name from a GraphQL
// request body for logs and metrics only
func describeOperation(body []byte) (string, string) {
	var req struct {
		Query         string `json:"query"`
		OperationName string `json:"operationName"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Query == "" {
		return "unknown", ""
	}

	doc, err := parser.ParseQuery(&ast.Source{Input: req.Query})
	if err != nil || doc == nil || len(doc.Operations) == 0 {
		return "unknown", req.OperationName
	}

	op := doc.Operations[0]
	if req.OperationName != "" {
		if named := doc.Operations.ForName(req.OperationName); named != nil {
			op = named
		}
	}
	return string(op.Operation), op.Name
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
