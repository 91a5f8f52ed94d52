// Package config loads service settings from defaults, an optional YAML
// file and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	Printful    PrintfulConfig    `mapstructure:"printful"`
	Renderer    RendererConfig    `mapstructure:"renderer"`
	Mapbox      MapboxConfig      `mapstructure:"mapbox"`
	Store       StoreConfig       `mapstructure:"store"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Checkout    CheckoutConfig    `mapstructure:"checkout"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Themes      []string          `mapstructure:"themes"`
}

type AppConfig struct {
	Env             string        `mapstructure:"env"`
	Port            string        `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StripeConfig struct {
	SecretKey         string `mapstructure:"secret_key"`
	WebhookSecret     string `mapstructure:"webhook_secret"`
	PriceSingle       string `mapstructure:"price_single"`
	PriceSubscription string `mapstructure:"price_subscription"`
	APIURL            string `mapstructure:"api_url"`
}

type PrintfulConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	StoreID        string        `mapstructure:"store_id"`
	VariantID      int64         `mapstructure:"variant_id"`
	ProductID      int64         `mapstructure:"product_id"`
	MockupInterval time.Duration `mapstructure:"mockup_interval"`
	MockupAttempts int           `mapstructure:"mockup_attempts"`
}

type RendererConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Secret       string        `mapstructure:"secret"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

type MapboxConfig struct {
	Token string `mapstructure:"token"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	MySQLDSN    string `mapstructure:"mysql_dsn"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type AdminConfig struct {
	Email         string        `mapstructure:"email"`
	PasswordHash  string        `mapstructure:"password_hash"`
	Role          string        `mapstructure:"role"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`
}

type CheckoutConfig struct {
	PrintPriceCents    int64    `mapstructure:"print_price_cents"`
	Currency           string   `mapstructure:"currency"`
	ShippingCountries  []string `mapstructure:"shipping_countries"`
	SuccessURL         string   `mapstructure:"success_url"`
	CancelURL          string   `mapstructure:"cancel_url"`
	AllowedReturnHosts []string `mapstructure:"allowed_return_hosts"`
}

type PaymentConfig struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	ErrorCacheTTL time.Duration `mapstructure:"error_cache_ttl"`
}

type FulfillmentConfig struct {
	PipelineTimeout time.Duration `mapstructure:"pipeline_timeout"`
}

type RetentionConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	PendingTTL   time.Duration `mapstructure:"pending_ttl"`
	FailedTTL    time.Duration `mapstructure:"failed_ttl"`
	CompletedTTL time.Duration `mapstructure:"completed_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Production reports whether unsafe development fallbacks must be refused.
func (c *Config) Production() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", 10*time.Second)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.price_single", "")
	v.SetDefault("stripe.price_subscription", "")
	v.SetDefault("stripe.api_url", "")

	v.SetDefault("printful.api_key", "")
	v.SetDefault("printful.base_url", "https://api.printful.com")
	v.SetDefault("printful.store_id", "")
	v.SetDefault("printful.variant_id", 0)
	v.SetDefault("printful.product_id", 0)
	v.SetDefault("printful.mockup_interval", time.Second)
	v.SetDefault("printful.mockup_attempts", 60)

	v.SetDefault("renderer.base_url", "")
	v.SetDefault("renderer.secret", "")
	v.SetDefault("renderer.poll_interval", 2*time.Second)
	v.SetDefault("renderer.max_attempts", 45)

	v.SetDefault("mapbox.token", "")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.mysql_dsn", "")
	v.SetDefault("store.postgres_dsn", "")

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.role", "ADMIN")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.jwt_expiration", 12*time.Hour)

	v.SetDefault("checkout.print_price_cents", 9400)
	v.SetDefault("checkout.currency", "usd")
	v.SetDefault("checkout.shipping_countries", []string{"US", "CA"})
	v.SetDefault("checkout.success_url", "http://localhost:3000/success?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("checkout.cancel_url", "http://localhost:3000/create")
	v.SetDefault("checkout.allowed_return_hosts", []string{})

	v.SetDefault("payment.cache_ttl", 24*time.Hour)
	v.SetDefault("payment.error_cache_ttl", time.Minute)

	v.SetDefault("fulfillment.pipeline_timeout", 3*time.Minute)

	v.SetDefault("retention.interval", 5*time.Minute)
	v.SetDefault("retention.pending_ttl", time.Hour)
	v.SetDefault("retention.failed_ttl", 7*24*time.Hour)
	v.SetDefault("retention.completed_ttl", 24*time.Hour)

	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("themes", []string{"copper", "midnight", "blueprint", "minimal", "vintage", "forest"})
}

// Load resolves the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory":
	case "mysql":
		if c.Store.MySQLDSN == "" {
			return fmt.Errorf("%w: store.mysql_dsn is required for the mysql driver", ErrInvalidConfig)
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: store.postgres_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if c.Checkout.PrintPriceCents <= 0 {
		return fmt.Errorf("%w: checkout.print_price_cents must be positive", ErrInvalidConfig)
	}
	return nil
}
