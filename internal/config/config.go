package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"shopify-embedded-app/internal/domain"
)

const (
	DefaultPort       = 3000
	DefaultAPIVersion = "2019-10"
	DefaultScopes     = "read_products,write_products"
	DefaultStaticDir  = "./web/dist"
	DefaultMongoDB    = "shopify_app"
)

// Config is built once at startup and handed to every component
type Config struct {
	Port       int
	Production bool

	APIKey     string
	APISecret  string
	Host       string
	Scopes     []string
	APIVersion string

	RedisURL      string
	MongoURI      string
	MongoDatabase string

	BillingEnabled bool
	Billing        domain.BillingPlan

	VerifyAccessTokens bool
	StaticDir          string
	LogLevel           zerolog.Level
	CORSAllowedOrigins []string
}

// Load reads configuration from the process environment
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any lookup function (os.LookupEnv in production)
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		Port:          DefaultPort,
		Production:    get("NODE_ENV", "development") == "production",
		APIKey:        get("SHOPIFY_API_KEY", ""),
		APISecret:     get("SHOPIFY_API_SECRET_KEY", ""),
		Host:          strings.TrimRight(get("HOST", ""), "/"),
		Scopes:        splitList(get("SHOPIFY_SCOPES", DefaultScopes)),
		APIVersion:    get("SHOPIFY_API_VERSION", DefaultAPIVersion),
		RedisURL:      get("REDIS_URL", ""),
		MongoURI:      get("MONGODB_URI", ""),
		MongoDatabase: get("MONGODB_DATABASE", DefaultMongoDB),
		StaticDir:     get("STATIC_DIR", DefaultStaticDir),
		CORSAllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS",
			"https://admin.shopify.com,https://*.myshopify.com")),
	}

	// matches parseInt(PORT) || 3000
	if port, err := strconv.Atoi(get("PORT", "")); err == nil && port > 0 {
		cfg.Port = port
	}

	var err error
	if cfg.BillingEnabled, err = parseBool(get("BILLING_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("BILLING_ENABLED: %w", err)
	}
	if cfg.VerifyAccessTokens, err = parseBool(get("VERIFY_ACCESS_TOKENS", "false")); err != nil {
		return nil, fmt.Errorf("VERIFY_ACCESS_TOKENS: %w", err)
	}

	cfg.Billing = domain.BillingPlan{
		Name:       get("BILLING_PLAN_NAME", "Super Duper Plan"),
		Currency:   get("BILLING_CURRENCY", "USD"),
		UsageTerms: get("BILLING_USAGE_TERMS", "$1 for 1000 emails"),
	}
	if cfg.Billing.Price, err = strconv.ParseFloat(get("BILLING_PRICE", "10"), 64); err != nil {
		return nil, fmt.Errorf("BILLING_PRICE: %w", err)
	}
	if cfg.Billing.UsageCap, err = strconv.ParseFloat(get("BILLING_USAGE_CAP", "10"), 64); err != nil {
		return nil, fmt.Errorf("BILLING_USAGE_CAP: %w", err)
	}
	if cfg.Billing.TrialDays, err = strconv.Atoi(get("BILLING_TRIAL_DAYS", "0")); err != nil {
		return nil, fmt.Errorf("BILLING_TRIAL_DAYS: %w", err)
	}
	if cfg.Billing.Test, err = parseBool(get("BILLING_TEST", "true")); err != nil {
		return nil, fmt.Errorf("BILLING_TEST: %w", err)
	}

	level, err := zerolog.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("SHOPIFY_API_KEY is required"))
	}
	if c.APISecret == "" {
		errs = append(errs, errors.New("SHOPIFY_API_SECRET_KEY is required"))
	}
	if c.Host == "" {
		errs = append(errs, errors.New("HOST is required"))
	} else if u, err := url.Parse(c.Host); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("HOST must be an absolute URL, got %q", c.Host))
	}
	if len(c.Scopes) == 0 {
		errs = append(errs, errors.New("SHOPIFY_SCOPES must not be empty"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// CallbackURL is the OAuth redirect_uri registered with Shopify
func (c *Config) CallbackURL() string {
	return c.Host + "/auth/callback"
}

// WebhookAddress is the products/create delivery address
func (c *Config) WebhookAddress() string {
	return c.Host + domain.ProductsCreatePath
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.ToLower(s))
}
