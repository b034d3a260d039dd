package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *ProductionConfig {
	return &ProductionConfig{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Name: "pricing", User: "postgres"},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Logging: LoggingConfig{Output: "stdout"},
		Cache:   CacheConfig{Enabled: true, Provider: "memory", DefaultTTL: 5 * time.Minute},
		Pricing: PricingConfig{
			DefaultUnitCost:       5,
			DefaultMarginPct:      35,
			EmbroideryPer1000:     1.5,
			LocationSurcharges:    "front:2.0,back:3.0,sleeve:1.5",
			SingleColorMultiplier: 1.0,
			MultiColorMultiplier:  1.3,
			VolumeTiers:           "0:0,100:10,500:12,1000:15",
		},
	}
}

func TestValidateProductionConfig(t *testing.T) {
	require.NoError(t, ValidateProductionConfig(validConfig()))

	tests := []struct {
		name   string
		mutate func(*ProductionConfig)
		want   string
	}{
		{"missing db host", func(c *ProductionConfig) { c.Database.Host = "" }, "DB_HOST is required"},
		{"bad port", func(c *ProductionConfig) { c.Server.Port = 70000 }, "SERVER_PORT"},
		{"redis without url", func(c *ProductionConfig) { c.Cache.Provider = "redis" }, "CACHE_REDIS_URL"},
		{"unknown cache provider", func(c *ProductionConfig) { c.Cache.Provider = "memcached" }, "CACHE_PROVIDER"},
		{"bad tiers", func(c *ProductionConfig) { c.Pricing.VolumeTiers = "100:abc" }, "PRICING_VOLUME_TIERS"},
		{"bad locations", func(c *ProductionConfig) { c.Pricing.LocationSurcharges = "front" }, "PRICING_LOCATION_SURCHARGES"},
		{"negative unit cost", func(c *ProductionConfig) { c.Pricing.DefaultUnitCost = -1 }, "PRICING_DEFAULT_UNIT_COST"},
		{"relative supplier url", func(c *ProductionConfig) { c.Supplier.APIURL = "supplier.local" }, "SUPPLIER_API_URL"},
		{"short admin secret", func(c *ProductionConfig) { c.Admin.JWTSecret = "short" }, "ADMIN_JWT_SECRET"},
		{"file logging without path", func(c *ProductionConfig) { c.Logging.Output = "file" }, "LOG_FILE_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateProductionConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateJoinsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Database.User = ""
	err := ValidateProductionConfig(cfg)
	require.Error(t, err)
	assert.Equal(t, 2, strings.Count(err.Error(), "is required"))
	assert.Contains(t, err.Error(), "; ")
}

func TestPricingDefaults(t *testing.T) {
	cfg := validConfig().Pricing
	cfg.VolumeTiers = "0:0,50:5"
	cfg.DefaultMarginPct = 40

	d, err := cfg.Defaults()
	require.NoError(t, err)
	assert.Equal(t, 40.0, d.MarginPct)
	assert.Equal(t, 5.0, d.TierDiscount(60))
	assert.Equal(t, 3.0, d.LocationSurcharges["back"])
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PRICING_TEST_FROM_FILE=file\nPRICING_TEST_PRESET=file\n"), 0o600))

	t.Setenv("PRICING_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("PRICING_TEST_FROM_FILE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "file", os.Getenv("PRICING_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("PRICING_TEST_PRESET"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PRICING_TEST_FLOAT", "2.5")
	t.Setenv("PRICING_TEST_BAD_INT", "x")
	t.Setenv("PRICING_TEST_SLICE", " a, ,b ")

	assert.Equal(t, 2.5, getEnvFloat("PRICING_TEST_FLOAT", 1))
	assert.Equal(t, 7, getEnvInt("PRICING_TEST_BAD_INT", 7))
	assert.Equal(t, []string{"a", "b"}, getEnvStringSlice("PRICING_TEST_SLICE", nil))
	assert.Equal(t, time.Minute, getEnvDuration("PRICING_TEST_UNSET", time.Minute))
}
