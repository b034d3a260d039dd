package pricing

import (
	"fmt"
	"sort"
	"testing"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakdownSum(b Breakdown) float64 {
	return RoundMoney(b.BaseCost + b.LocationSurcharges + b.ColorAdjustments + b.Embroidery +
		b.SetupFees + b.Surcharges + b.VolumeDiscounts + b.MarginAmount)
}

func TestCalculateScreenPrintWithDefaults(t *testing.T) {
	in := Input{
		GarmentID:      "G500",
		Service:        "screen",
		Quantity:       100,
		PrintLocations: []string{"front", "back"},
		ColorCount:     3,
	}

	res := Calculate(in, nil, 4.50, testAsOf, DefaultDefaults())

	assert.Equal(t, 450.0, res.Breakdown.BaseCost)
	assert.Equal(t, 500.0, res.Breakdown.LocationSurcharges)
	assert.Equal(t, map[string]float64{"back": 3.0, "front": 2.0}, res.Breakdown.LocationDetail)
	assert.Equal(t, 285.0, res.Breakdown.ColorAdjustments)
	assert.Equal(t, -123.5, res.Breakdown.VolumeDiscounts)
	assert.Equal(t, 1111.5, res.Subtotal)
	assert.Equal(t, 35.0, res.MarginPct)
	assert.InDelta(t, 1500.53, res.TotalPrice, 0.01)
	assert.Equal(t, 389.03, res.Breakdown.MarginAmount)
	assert.Equal(t, 15.01, res.UnitPrice)
	assert.Empty(t, res.RulesApplied)
	assert.Equal(t, res.TotalPrice, breakdownSum(res.Breakdown))

	require.Len(t, res.LineItems, 5)
	assert.Equal(t, "Garment base cost", res.LineItems[0].Description)
	assert.Equal(t, 4.5, *res.LineItems[0].UnitCost)
	assert.Equal(t, 100, *res.LineItems[0].Qty)
	assert.Equal(t, "Location surcharges (back, front)", res.LineItems[1].Description)
	assert.Equal(t, 1.3, *res.LineItems[2].Factor)
	assert.Equal(t, 10.0, *res.LineItems[3].Discount)
	assert.Equal(t, -123.5, res.LineItems[3].Total)
	assert.Equal(t, "Margin (35%)", res.LineItems[4].Description)
}

func TestCalculateZeroQuantity(t *testing.T) {
	in := Input{
		GarmentID:      "G500",
		Service:        "screen",
		Quantity:       0,
		PrintLocations: []string{"front"},
		ColorCount:     2,
		StitchCount:    4000,
	}
	rules := []models.PricingRule{
		newTestRule("setup", 1, models.RuleConditions{}, models.RuleCalculations{SetupFee: f64(30)}),
	}

	var res QuoteResult
	assert.NotPanics(t, func() {
		res = Calculate(in, rules, 4.50, testAsOf, DefaultDefaults())
	})
	assert.Equal(t, 0.0, res.TotalPrice)
	assert.Equal(t, 0.0, res.UnitPrice)
	assert.Equal(t, 0.0, res.Breakdown.SetupFees)
}

func TestCalculateRulePrecedence(t *testing.T) {
	rules := []models.PricingRule{
		newTestRule("bulk-discount", 10, models.RuleConditions{QuantityMin: intp(100)}, models.RuleCalculations{DiscountPct: f64(10)}),
		newTestRule("repeat-customer", 15, models.RuleConditions{QuantityMin: intp(100)}, models.RuleCalculations{DiscountPct: f64(5)}),
	}
	in := Input{GarmentID: "G500", Service: "screen", Quantity: 150}

	res := Calculate(in, rules, 4.00, testAsOf, DefaultDefaults())

	// 600 base, 5% off, 35% margin
	assert.Equal(t, -30.0, res.Breakdown.VolumeDiscounts)
	assert.Equal(t, 570.0, res.Subtotal)
	assert.Equal(t, 769.5, res.TotalPrice)
	assert.Equal(t, []string{"repeat-customer", "bulk-discount"}, res.RulesApplied)
}

func TestCalculateRulesAppliedSkipsUnconsultedRules(t *testing.T) {
	rules := []models.PricingRule{
		newTestRule("notes-only", 50, models.RuleConditions{}, models.RuleCalculations{}),
		newTestRule("embroidery-rate", 40, models.RuleConditions{}, models.RuleCalculations{StitchPricePer1000: f64(2)}),
		newTestRule("margin", 5, models.RuleConditions{}, models.RuleCalculations{MarginTarget: f64(0.5)}),
	}
	in := Input{GarmentID: "G1", Service: "screen", Quantity: 10}

	res := Calculate(in, rules, 3.00, testAsOf, DefaultDefaults())
	assert.Equal(t, []string{"margin"}, res.RulesApplied)
	assert.Equal(t, 50.0, res.MarginPct)
	assert.Equal(t, 45.0, res.TotalPrice)
}

func TestCalculateEmbroidery(t *testing.T) {
	defaults := DefaultDefaults()

	t.Run("embroidery only replaces garment base", func(t *testing.T) {
		in := Input{GarmentID: "G1", Service: "Embroidery", Quantity: 24, StitchCount: 8000}
		res := Calculate(in, nil, 6.00, testAsOf, defaults)
		assert.Equal(t, 288.0, res.Breakdown.BaseCost)
		assert.Equal(t, 0.0, res.Breakdown.Embroidery)
		assert.Equal(t, "Embroidery (8000 stitches)", res.LineItems[0].Description)
		assert.Equal(t, 388.8, res.TotalPrice)
	})

	t.Run("unit price override ignored for embroidery only", func(t *testing.T) {
		in := Input{GarmentID: "G1", Service: "embroidery", Quantity: 10, StitchCount: 8000}
		rules := []models.PricingRule{
			newTestRule("override", 1, models.RuleConditions{}, models.RuleCalculations{UnitPriceOverride: f64(9)}),
		}
		res := Calculate(in, rules, 6.00, testAsOf, defaults)
		assert.Equal(t, 120.0, res.Breakdown.BaseCost)
		assert.Equal(t, 162.0, res.TotalPrice)
		assert.NotContains(t, res.RulesApplied, "override")
		assert.Empty(t, res.RulesApplied)
	})

	t.Run("embroidery added to printed order", func(t *testing.T) {
		in := Input{GarmentID: "G1", Service: "screen", Quantity: 10, PrintLocations: []string{"front"}, StitchCount: 2000}
		rules := []models.PricingRule{
			newTestRule("thread", 1, models.RuleConditions{}, models.RuleCalculations{StitchPricePer1000: f64(2)}),
		}
		res := Calculate(in, rules, 5.00, testAsOf, defaults)
		assert.Equal(t, 50.0, res.Breakdown.BaseCost)
		assert.Equal(t, 20.0, res.Breakdown.LocationSurcharges)
		assert.Equal(t, 40.0, res.Breakdown.Embroidery)
		assert.Equal(t, 110.0, res.Subtotal)
		assert.Equal(t, []string{"thread"}, res.RulesApplied)
	})
}

func TestCalculateOverrideSetupAndRush(t *testing.T) {
	rules := []models.PricingRule{
		newTestRule("rush", 30, models.RuleConditions{Rush: boolp(true)}, models.RuleCalculations{SurchargePct: f64(25)}),
		newTestRule("contract-price", 20, models.RuleConditions{CustomerType: []string{"contract"}}, models.RuleCalculations{
			UnitPriceOverride: f64(3.00),
			MarginTarget:      f64(0.25),
		}),
		newTestRule("screen-setup", 10, models.RuleConditions{Service: []string{"screen"}}, models.RuleCalculations{SetupFee: f64(40)}),
	}
	in := Input{GarmentID: "G1", Service: "screen", Quantity: 20, CustomerType: "Contract", IsRush: true}

	res := Calculate(in, rules, 9.99, testAsOf, DefaultDefaults())

	assert.Equal(t, 60.0, res.Breakdown.BaseCost)
	assert.Equal(t, 40.0, res.Breakdown.SetupFees)
	assert.Equal(t, 25.0, res.Breakdown.Surcharges)
	assert.Equal(t, 125.0, res.Subtotal)
	assert.Equal(t, 25.0, res.MarginPct)
	assert.Equal(t, 156.25, res.TotalPrice)
	assert.Equal(t, []string{"rush", "contract-price", "screen-setup"}, res.RulesApplied)
	assert.Equal(t, res.TotalPrice, breakdownSum(res.Breakdown))

	t.Run("not rush", func(t *testing.T) {
		in := in
		in.IsRush = false
		res := Calculate(in, rules, 9.99, testAsOf, DefaultDefaults())
		assert.Equal(t, 0.0, res.Breakdown.Surcharges)
		assert.Equal(t, []string{"contract-price", "screen-setup"}, res.RulesApplied)
	})
}

func TestCalculateIsDeterministic(t *testing.T) {
	rules := []models.PricingRule{
		newTestRule("a", 5, models.RuleConditions{}, models.RuleCalculations{LocationSurcharge: map[string]float64{"front": 2.75}}),
		newTestRule("b", 5, models.RuleConditions{}, models.RuleCalculations{ColorMultiplier: map[string]float64{"2": 1.15}}),
	}
	in := Input{GarmentID: "G1", Service: "screen", Quantity: 333, PrintLocations: []string{"front", "sleeve"}, ColorCount: 2}

	first := Calculate(in, rules, 3.37, testAsOf, DefaultDefaults())
	first.CalculationTimeMs = 0
	for i := 0; i < 20; i++ {
		next := Calculate(in, rules, 3.37, testAsOf, DefaultDefaults())
		next.CalculationTimeMs = 0
		require.Equal(t, first, next)
	}
}

func TestCalculateUnitPriceNonIncreasing(t *testing.T) {
	quantities := []int{1, 12, 50, 99, 100, 101, 250, 499, 500, 750, 999, 1000, 2500, 10000}
	defaults := DefaultDefaults()

	for _, locations := range [][]string{nil, {"front"}, {"front", "back", "sleeve"}} {
		prev := -1.0
		for _, qty := range quantities {
			in := Input{GarmentID: "G1", Service: "screen", Quantity: qty, PrintLocations: locations, ColorCount: 2}
			res := Calculate(in, nil, 4.25, testAsOf, defaults)
			unit := res.TotalPrice / float64(qty)
			if prev >= 0 {
				assert.LessOrEqual(t, unit, prev+0.01, "qty %d locations %v", qty, locations)
			}
			prev = unit
		}
	}
}

func TestCalculateMedianDuration(t *testing.T) {
	rules := make([]models.PricingRule, 0, 40)
	for i := 0; i < 40; i++ {
		rules = append(rules, newTestRule(
			fmt.Sprintf("rule-%02d", i),
			i,
			models.RuleConditions{QuantityMin: intp(i * 10)},
			models.RuleCalculations{DiscountPct: f64(float64(i % 20))},
		))
	}
	in := Input{GarmentID: "G1", Service: "screen", Quantity: 250, PrintLocations: []string{"front", "back"}, ColorCount: 4, StitchCount: 3000}

	durations := make([]float64, 0, 101)
	for i := 0; i < 101; i++ {
		durations = append(durations, Calculate(in, rules, 4.5, testAsOf, DefaultDefaults()).CalculationTimeMs)
	}
	sort.Float64s(durations)
	assert.Less(t, durations[50], 100.0)
}
