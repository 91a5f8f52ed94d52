package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.App.Port)
	require.False(t, cfg.Production())
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, int64(9400), cfg.Checkout.PrintPriceCents)
	require.Equal(t, []string{"US", "CA"}, cfg.Checkout.ShippingCountries)
	require.Equal(t, 60, cfg.Printful.MockupAttempts)
	require.Equal(t, time.Second, cfg.Printful.MockupInterval)
	require.Equal(t, 24*time.Hour, cfg.Payment.CacheTTL)
	require.Equal(t, time.Hour, cfg.Retention.PendingTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Retention.FailedTTL)
	require.Contains(t, cfg.Themes, "copper")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: staging
  port: "9000"
printful:
  variant_id: 4012
  mockup_attempts: 30
checkout:
  allowed_return_hosts:
    - shop.example.com
    - account.example.com
`), 0o600))

	t.Setenv("APP_ENV", "production")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.True(t, cfg.Production())
	require.Equal(t, "9000", cfg.App.Port)
	require.Equal(t, int64(4012), cfg.Printful.VariantID)
	require.Equal(t, 30, cfg.Printful.MockupAttempts)
	require.Equal(t, "whsec_test", cfg.Stripe.WebhookSecret)
	require.Equal(t, []string{"shop.example.com", "account.example.com"}, cfg.Checkout.AllowedReturnHosts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_RejectsIncompleteStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("STORE_DRIVER", "redis")
	_, err = Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
}
