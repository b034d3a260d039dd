package pricing

import (
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"gorm.io/datatypes"
)

var (
	testAsOf      = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testEffective = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newTestRule(id string, priority int, cond models.RuleConditions, calc models.RuleCalculations) models.PricingRule {
	return models.PricingRule{
		RuleID:        id,
		Version:       1,
		EffectiveDate: testEffective,
		Conditions:    datatypes.NewJSONType(cond),
		Calculations:  datatypes.NewJSONType(calc),
		Priority:      priority,
		Enabled:       true,
	}
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func boolp(v bool) *bool     { return &v }
func strp(v string) *string  { return &v }
