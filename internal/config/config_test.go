package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Checkout.FreeShippingOver.Equal(decimal.NewFromInt(200)))
	assert.True(t, cfg.Checkout.FlatShipping.Equal(decimal.NewFromInt(15)))
	assert.True(t, cfg.Checkout.TaxRate.Equal(decimal.NewFromFloat(0.10)))
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
jwt:
  secret: file-secret
stripe:
  secret_key: sk_test_abc
checkout:
  free_shipping_over: 150
  flat_shipping: 9.99
  tax_rate: 0.25
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, "sk_test_abc", cfg.Stripe.SecretKey)
	assert.True(t, cfg.Checkout.FreeShippingOver.Equal(decimal.NewFromInt(150)), "got %s", cfg.Checkout.FreeShippingOver)
	assert.True(t, cfg.Checkout.FlatShipping.Equal(decimal.NewFromFloat(9.99)), "got %s", cfg.Checkout.FlatShipping)
	assert.True(t, cfg.Checkout.TaxRate.Equal(decimal.NewFromFloat(0.25)), "got %s", cfg.Checkout.TaxRate)

	// 文件里没写的键保持默认值
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
}
