package pricing

import (
	"sort"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/models"
)

// ActiveRules returns the enabled, in-effect rules in precedence order.
func ActiveRules(rules []models.PricingRule, asOf time.Time) []models.PricingRule {
	out := make([]models.PricingRule, 0, len(rules))
	for _, r := range rules {
		if IsActive(r, asOf) {
			out = append(out, r)
		}
	}
	sortByPrecedence(out)
	return out
}

// FindMatching returns the rules matching the input, highest priority first and ties by id.
// The given slice is not modified.
func FindMatching(rules []models.PricingRule, in Input, asOf time.Time) []models.PricingRule {
	out := make([]models.PricingRule, 0, len(rules))
	for _, r := range rules {
		if !IsActive(r, asOf) {
			continue
		}
		if conditionsHold(r.Cond(), in) {
			out = append(out, r)
		}
	}
	sortByPrecedence(out)
	return out
}

func sortByPrecedence(rules []models.PricingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].RuleID < rules[j].RuleID
	})
}
