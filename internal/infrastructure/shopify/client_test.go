package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/ports"
)

const (
	testKey    = "api-key"
	testSecret = "hush"
)

func signQuery(t *testing.T, q url.Values, secret string) string {
	t.Helper()
	message, err := url.QueryUnescape(q.Encode())
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestClient_GenerateAuthURL(t *testing.T) {
	c := NewClient(testKey, testSecret, "2019-10", zerolog.Nop())

	authURL, err := c.GenerateAuthURL("example.myshopify.com", []string{"read_products", "write_products"}, "https://app.example.com/auth/callback", "nonce-1")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "example.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, testKey, q.Get("client_id"))
	assert.Equal(t, "read_products,write_products", q.Get("scope"))
	assert.Equal(t, "https://app.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "nonce-1", q.Get("state"))
}

func TestClient_GenerateAuthURL_InvalidShop(t *testing.T) {
	c := NewClient(testKey, testSecret, "2019-10", zerolog.Nop())

	_, err := c.GenerateAuthURL("evil.example.com", nil, "https://app.example.com/auth/callback", "s")
	require.ErrorIs(t, err, domain.ErrInvalidShop)
}

func TestClient_VerifyAuthorizationURL(t *testing.T) {
	c := NewClient(testKey, testSecret, "2019-10", zerolog.Nop())

	q := url.Values{}
	q.Set("code", "abc")
	q.Set("shop", "example.myshopify.com")
	q.Set("state", "nonce-1")
	q.Set("timestamp", "1570000000")

	tests := []struct {
		name string
		hmac string
		want bool
	}{
		{name: "valid signature", hmac: signQuery(t, q, testSecret), want: true},
		{name: "signed with another secret", hmac: signQuery(t, q, "other"), want: false},
		{name: "missing signature", hmac: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := url.Values{}
			for k, v := range q {
				signed[k] = v
			}
			if tt.hmac != "" {
				signed.Set("hmac", tt.hmac)
			}
			u := &url.URL{Path: "/auth/callback", RawQuery: signed.Encode()}

			ok, err := c.VerifyAuthorizationURL(u)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestClient_ExchangeToken(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"shpat_123","scope":"read_products,write_products"}`))
	}))
	defer srv.Close()

	c := NewClient(testKey, testSecret, "2019-10", zerolog.Nop(),
		WithHTTPClient(srv.Client()),
		WithShopURL(func(string) string { return srv.URL }),
	)

	token, err := c.ExchangeToken(context.Background(), "example.myshopify.com", "code-1")
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", token.Token)
	assert.Equal(t, []string{"read_products", "write_products"}, token.Scopes)

	assert.Equal(t, testKey, gotForm.Get("client_id"))
	assert.Equal(t, testSecret, gotForm.Get("client_secret"))
	assert.Equal(t, "code-1", gotForm.Get("code"))
}

func TestClient_ExchangeToken_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "rejected code", status: http.StatusBadRequest, body: `{"error":"invalid_request"}`, wantErr: "status 400"},
		{name: "empty token", status: http.StatusOK, body: `{"access_token":""}`, wantErr: "empty access token"},
		{name: "garbage", status: http.StatusOK, body: `not json`, wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(testKey, testSecret, "2019-10", zerolog.Nop(),
				WithHTTPClient(srv.Client()),
				WithShopURL(func(string) string { return srv.URL }),
			)

			_, err := c.ExchangeToken(context.Background(), "example.myshopify.com", "code")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAppSubscriptionVariables(t *testing.T) {
	plan := domain.BillingPlan{
		Name:       "Super Duper Plan",
		Price:      10,
		Currency:   "USD",
		UsageCap:   10,
		UsageTerms: "$1 for 1000 emails",
		Test:       true,
	}

	vars := appSubscriptionVariables(plan, "https://app.example.com")
	assert.Equal(t, "Super Duper Plan", vars["name"])
	assert.Equal(t, "https://app.example.com", vars["returnUrl"])
	assert.Equal(t, true, vars["test"])

	lineItems, ok := vars["lineItems"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, lineItems, 2)
	assert.Contains(t, lineItems[0]["plan"], "appUsagePricingDetails")
	assert.Contains(t, lineItems[1]["plan"], "appRecurringPricingDetails")

	plan.UsageCap = 0
	vars = appSubscriptionVariables(plan, "https://app.example.com")
	lineItems = vars["lineItems"].([]map[string]any)
	require.Len(t, lineItems, 1)
	assert.Contains(t, lineItems[0]["plan"], "appRecurringPricingDetails")
}

// roundTripFunc answers GraphQL calls without leaving the process
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type graphQLCall struct {
	url       string
	token     string
	query     string
	variables map[string]any
}

// graphQLClient returns a client whose Admin API calls all get reply
func graphQLClient(t *testing.T, reply string, calls *[]graphQLCall) ports.ShopifyClient {
	t.Helper()
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, graphQLCall{
			url:       r.URL.String(),
			token:     r.Header.Get("X-Shopify-Access-Token"),
			query:     body.Query,
			variables: body.Variables,
		})
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(reply)),
			Request:    r,
		}, nil
	})
	return NewClient(testKey, testSecret, "2019-10", zerolog.Nop(), WithHTTPClient(&http.Client{Transport: transport}))
}

func TestClient_RegisterWebhook(t *testing.T) {
	subscription := domain.WebhookSubscription{
		Topic:   "PRODUCTS_CREATE",
		Address: "https://app.example.com/webhooks/products/create",
	}

	tests := []struct {
		name        string
		reply       string
		wantSuccess bool
		wantErr     string
	}{
		{
			name:        "created",
			reply:       `{"data":{"webhookSubscriptionCreate":{"userErrors":[],"webhookSubscription":{"id":"gid://shopify/WebhookSubscription/1"}}}}`,
			wantSuccess: true,
		},
		{
			name:  "user errors",
			reply: `{"data":{"webhookSubscriptionCreate":{"userErrors":[{"field":["callbackUrl"],"message":"Address for this topic has already been taken"}],"webhookSubscription":null}}}`,
		},
		{
			name:  "no subscription returned",
			reply: `{"data":{"webhookSubscriptionCreate":{"userErrors":[],"webhookSubscription":null}}}`,
		},
		{
			name:    "top level errors",
			reply:   `{"errors":[{"message":"Access denied"}]}`,
			wantErr: "failed to create webhook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []graphQLCall
			c := graphQLClient(t, tt.reply, &calls)

			reg, err := c.RegisterWebhook(context.Background(), "example.myshopify.com", "tok", subscription)
			require.Len(t, calls, 1)
			assert.Equal(t, "https://example.myshopify.com/admin/api/2019-10/graphql.json", calls[0].url)
			assert.Equal(t, "tok", calls[0].token)
			assert.Contains(t, calls[0].query, "webhookSubscriptionCreate")
			assert.Equal(t, "PRODUCTS_CREATE", calls[0].variables["topic"])
			assert.Equal(t, map[string]any{
				"callbackUrl": "https://app.example.com/webhooks/products/create",
				"format":      "JSON",
			}, calls[0].variables["webhookSubscription"])

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "Access denied")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, reg.Success)
			assert.NotNil(t, reg.Result)
		})
	}
}

func TestClient_CreateAppSubscription(t *testing.T) {
	plan := domain.BillingPlan{Name: "Super Duper Plan", Price: 10, Currency: "USD", Test: true}

	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr string
	}{
		{
			name:  "confirmation url",
			reply: `{"data":{"appSubscriptionCreate":{"userErrors":[],"confirmationUrl":"https://example.myshopify.com/admin/charges/1/confirm","appSubscription":{"id":"gid://shopify/AppSubscription/1"}}}}`,
			want:  "https://example.myshopify.com/admin/charges/1/confirm",
		},
		{
			name:    "user errors",
			reply:   `{"data":{"appSubscriptionCreate":{"userErrors":[{"field":["price"],"message":"Price must be positive"},{"field":["name"],"message":"Name is taken"}],"confirmationUrl":null}}}`,
			wantErr: "Price must be positive; Name is taken",
		},
		{
			name:    "missing confirmation url",
			reply:   `{"data":{"appSubscriptionCreate":{"userErrors":[],"confirmationUrl":null}}}`,
			wantErr: "no confirmation url",
		},
		{
			name:    "top level errors",
			reply:   `{"errors":[{"message":"Access denied"}]}`,
			wantErr: "Access denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []graphQLCall
			c := graphQLClient(t, tt.reply, &calls)

			confirmationURL, err := c.CreateAppSubscription(context.Background(), "example.myshopify.com", "tok", plan, "https://app.example.com")
			require.Len(t, calls, 1)
			assert.Equal(t, "https://example.myshopify.com/admin/api/2019-10/graphql.json", calls[0].url)
			assert.Equal(t, "tok", calls[0].token)
			assert.Contains(t, calls[0].query, "appSubscriptionCreate")
			assert.Equal(t, "Super Duper Plan", calls[0].variables["name"])
			assert.Equal(t, "https://app.example.com", calls[0].variables["returnUrl"])

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to create app subscription")
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, confirmationURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, confirmationURL)
		})
	}
}
