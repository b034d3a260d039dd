// Package models contains domain entities and persistence models for the pricing service
package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RuleConditions is the structured filter of a pricing rule.
// A nil pointer or an empty slice means the dimension is unconstrained.
type RuleConditions struct {
	QuantityMin  *int            `json:"quantity_min,omitempty" validate:"omitempty,gte=0"`
	QuantityMax  *int            `json:"quantity_max,omitempty" validate:"omitempty,gte=0"`
	Service      []string        `json:"service,omitempty" validate:"omitempty,dive,required"`
	ColorsMin    *int            `json:"colors_min,omitempty" validate:"omitempty,gte=0"`
	ColorsMax    *int            `json:"colors_max,omitempty" validate:"omitempty,gte=0"`
	Location     []string        `json:"location,omitempty" validate:"omitempty,dive,required"`
	CustomerType []string        `json:"customer_type,omitempty" validate:"omitempty,dive,required"`
	GarmentType  []string        `json:"garment_type,omitempty" validate:"omitempty,dive,required"`
	Supplier     []string        `json:"supplier,omitempty" validate:"omitempty,dive,required"`
	Rush         *bool           `json:"rush,omitempty"`
	Expression   json.RawMessage `json:"expression,omitempty"`
}

// IsEmpty reports whether no condition dimension is set.
func (c RuleConditions) IsEmpty() bool {
	return c.QuantityMin == nil && c.QuantityMax == nil &&
		len(c.Service) == 0 &&
		c.ColorsMin == nil && c.ColorsMax == nil &&
		len(c.Location) == 0 && len(c.CustomerType) == 0 &&
		len(c.GarmentType) == 0 && len(c.Supplier) == 0 &&
		c.Rush == nil && len(c.Expression) == 0
}

// RuleCalculations is the effect a matching rule contributes to a quote.
type RuleCalculations struct {
	DiscountPct        *float64           `json:"discount_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
	SurchargePct       *float64           `json:"surcharge_pct,omitempty" validate:"omitempty,gte=0"`
	LocationSurcharge  map[string]float64 `json:"location_surcharge,omitempty" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	ColorMultiplier    map[string]float64 `json:"color_multiplier,omitempty" validate:"omitempty,dive,keys,required,endkeys,gt=0"`
	StitchPricePer1000 *float64           `json:"stitch_price_per_1000,omitempty" validate:"omitempty,gte=0"`
	MarginTarget       *float64           `json:"margin_target,omitempty" validate:"omitempty,gte=0,lte=1"`
	SetupFee           *float64           `json:"setup_fee,omitempty" validate:"omitempty,gte=0"`
	UnitPriceOverride  *float64           `json:"unit_price_override,omitempty" validate:"omitempty,gte=0"`
}

// PricingRule is a declarative pricing rule.
// RuleID is the public identifier; ID is only the surrogate key.
// Table: pricing_rules
type PricingRule struct {
	ID            uint                                 `gorm:"primaryKey" json:"-"`
	RuleID        string                               `gorm:"size:128;not null;uniqueIndex:uk_pricing_rules_rule_id" json:"id"`
	Description   string                               `gorm:"type:text" json:"description"`
	Version       int                                  `gorm:"not null;default:1" json:"version"`
	EffectiveDate time.Time                            `gorm:"not null;index:idx_pricing_rules_effective_date" json:"effective_date"`
	ExpiryDate    *time.Time                           `gorm:"index:idx_pricing_rules_expiry_date" json:"expiry_date,omitempty"`
	Conditions    datatypes.JSONType[RuleConditions]   `gorm:"type:jsonb;not null" json:"conditions"`
	Calculations  datatypes.JSONType[RuleCalculations] `gorm:"type:jsonb;not null" json:"calculations"`
	Priority      int                                  `gorm:"not null;default:0;index:idx_pricing_rules_priority" json:"priority"`
	Enabled       bool                                 `gorm:"not null;index:idx_pricing_rules_enabled" json:"enabled"`
	Notes         *string                              `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time                            `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                            `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PricingRule) TableName() string {
	return "pricing_rules"
}

// Cond returns the decoded conditions.
func (r PricingRule) Cond() RuleConditions {
	return r.Conditions.Data()
}

// Calc returns the decoded calculations.
func (r PricingRule) Calc() RuleCalculations {
	return r.Calculations.Data()
}

// PricingRuleFilter represents filter criteria for pricing rule queries
type PricingRuleFilter struct {
	RuleID   *string
	RuleIDs  []string
	Enabled  *bool
	ActiveAt *time.Time
}
