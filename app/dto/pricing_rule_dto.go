package dto

import (
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
)

// ListPricingRulesResponse lists every stored rule with the rule set version
type ListPricingRulesResponse struct {
	Message string              `json:"message"`
	Version int64               `json:"version"`
	Rules   []pricing.RuleDraft `json:"rules"`
}

// PricingRuleResponse carries a single rule. Warnings lists ignored keys of the submitted payload.
type PricingRuleResponse struct {
	Message  string            `json:"message"`
	Rule     pricing.RuleDraft `json:"rule"`
	Warnings []string          `json:"warnings,omitempty"`
}

// DeletePricingRuleResponse reports whether a rule was removed
type DeletePricingRuleResponse struct {
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
}

// ValidatePricingRuleResponse is the dry validation outcome of a rule payload
type ValidatePricingRuleResponse struct {
	Message string                   `json:"message"`
	Result  pricing.ValidationResult `json:"result"`
}

// ImportPricingRulesRequest holds the query parameters of a rule file import
type ImportPricingRulesRequest struct {
	Format  string `query:"format" validate:"omitempty,oneof=json yaml yml"`
	Replace bool   `query:"replace"`
}

// ImportPricingRulesResponse summarizes a rule file import
type ImportPricingRulesResponse struct {
	Message  string              `json:"message"`
	Imported int                 `json:"imported"`
	Removed  int64               `json:"removed"`
	Version  int64               `json:"version"`
	Warnings map[string][]string `json:"warnings,omitempty"`
}

// ExportPricingRulesRequest holds the query parameters of a rule file export
type ExportPricingRulesRequest struct {
	Format string `query:"format" validate:"omitempty,oneof=json yaml yml"`
}
