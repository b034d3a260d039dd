package pricing

import (
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/models"
)

// IsActive reports whether the rule is enabled and in effect at asOf.
// The effective date is inclusive, the expiry date exclusive.
func IsActive(rule models.PricingRule, asOf time.Time) bool {
	if !rule.Enabled {
		return false
	}
	if asOf.Before(rule.EffectiveDate) {
		return false
	}
	if rule.ExpiryDate != nil && !asOf.Before(*rule.ExpiryDate) {
		return false
	}
	return true
}

// Matches reports whether the rule is active and every condition it defines holds for the input.
func Matches(rule models.PricingRule, in Input, asOf time.Time) bool {
	return IsActive(rule, asOf) && conditionsHold(rule.Cond(), in)
}

func conditionsHold(c models.RuleConditions, in Input) bool {
	if !inRange(in.Quantity, c.QuantityMin, c.QuantityMax) {
		return false
	}
	if !inRange(in.ColorCount, c.ColorsMin, c.ColorsMax) {
		return false
	}
	if !memberOf(c.Service, in.Service) ||
		!memberOf(c.CustomerType, in.CustomerType) ||
		!memberOf(c.GarmentType, in.GarmentType) ||
		!memberOf(c.Supplier, in.Supplier) {
		return false
	}
	if len(c.Location) > 0 && !intersects(c.Location, in.PrintLocations) {
		return false
	}
	if c.Rush != nil && *c.Rush != in.IsRush {
		return false
	}
	if len(c.Expression) > 0 && !evalExpression(c.Expression, in) {
		return false
	}
	return true
}

func inRange(v int, lo, hi *int) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

// memberOf is vacuously true for an empty set.
func memberOf(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	v = normTag(v)
	for _, s := range set {
		if normTag(s) == v {
			return true
		}
	}
	return false
}

func intersects(set, values []string) bool {
	for _, v := range values {
		for _, s := range set {
			if normTag(s) == normTag(v) {
				return true
			}
		}
	}
	return false
}
