package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DIVITRACK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60, cfg.RatePerMinute)
	assert.Equal(t, 5, cfg.StalenessMinutes)
	assert.Equal(t, "XNYS", cfg.DefaultExchange)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, []string{"EUR", "USD", "GBP"}, cfg.Currencies)
	assert.Empty(t, cfg.FinnhubAPIKey, "provider key is optional at startup")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DIVITRACK_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9999")
	t.Setenv("PROVIDER_RATE_PER_MINUTE", "30")
	t.Setenv("STALENESS_MINUTES", "15")
	t.Setenv("CURRENCIES", "eur, chf")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 30, cfg.RatePerMinute)
	assert.Equal(t, 15, cfg.StalenessMinutes)
	assert.Equal(t, []string{"EUR", "CHF"}, cfg.Currencies)
}

func TestValidate(t *testing.T) {
	cfg := &Config{RatePerMinute: 60, StalenessMinutes: 5}
	assert.NoError(t, cfg.Validate())

	cfg.RatePerMinute = 0
	assert.Error(t, cfg.Validate())

	cfg.RatePerMinute = 60
	cfg.StalenessMinutes = -1
	assert.Error(t, cfg.Validate())
}
