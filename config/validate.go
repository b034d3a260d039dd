package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hypnotizedent/printshop-os-sub010/pricing"
)

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate logging configuration
	switch cfg.Logging.Output {
	case "stdout":
	case "file", "both":
		if cfg.Logging.FilePath == "" {
			errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
		}
	default:
		errors = append(errors, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		switch cfg.Cache.Provider {
		case "memory":
		case "redis":
			if cfg.Cache.RedisURL == "" {
				errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
			}
		default:
			errors = append(errors, "CACHE_PROVIDER must be one of: memory, redis")
		}
		if cfg.Cache.DefaultTTL <= 0 {
			errors = append(errors, "CACHE_DEFAULT_TTL must be positive")
		}
	}

	// Validate pricing defaults
	if _, err := cfg.Pricing.Defaults(); err != nil {
		errors = append(errors, err.Error())
	}
	if cfg.Pricing.DefaultUnitCost < 0 {
		errors = append(errors, "PRICING_DEFAULT_UNIT_COST must not be negative")
	}

	// Validate supplier configuration if enabled
	if cfg.Supplier.APIURL != "" {
		if u, err := url.Parse(cfg.Supplier.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, "SUPPLIER_API_URL must be an absolute URL")
		}
		if cfg.Supplier.Timeout <= 0 {
			errors = append(errors, "SUPPLIER_TIMEOUT must be positive")
		}
	}

	if cfg.Admin.AuthEnabled() && len(cfg.Admin.JWTSecret) < 32 {
		errors = append(errors, "ADMIN_JWT_SECRET must be at least 32 characters long")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Defaults converts the pricing section into the engine's default tables.
func (p PricingConfig) Defaults() (pricing.Defaults, error) {
	d := pricing.DefaultDefaults()

	tiers, err := pricing.ParseVolumeTiers(p.VolumeTiers)
	if err != nil {
		return d, fmt.Errorf("PRICING_VOLUME_TIERS is invalid: %v", err)
	}
	d.VolumeTiers = tiers

	locations, err := pricing.ParseAmountTable(p.LocationSurcharges)
	if err != nil {
		return d, fmt.Errorf("PRICING_LOCATION_SURCHARGES is invalid: %v", err)
	}
	d.LocationSurcharges = locations

	if p.DefaultMarginPct < 0 {
		return d, fmt.Errorf("PRICING_DEFAULT_MARGIN_PCT must not be negative")
	}
	d.MarginPct = p.DefaultMarginPct

	if p.EmbroideryPer1000 < 0 {
		return d, fmt.Errorf("PRICING_EMBROIDERY_PRICE_PER_1000 must not be negative")
	}
	d.EmbroideryPer1000 = p.EmbroideryPer1000

	if p.SingleColorMultiplier <= 0 || p.MultiColorMultiplier <= 0 {
		return d, fmt.Errorf("PRICING color multipliers must be positive")
	}
	d.SingleColorMultiplier = p.SingleColorMultiplier
	d.MultiColorMultiplier = p.MultiColorMultiplier

	return d, nil
}
