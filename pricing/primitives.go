package pricing

import (
	"errors"
	"sort"
	"strconv"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/shopspring/decimal"
)

// All primitives take rules already filtered and ordered by FindMatching; the first rule
// defining a field wins. Every monetary result is rounded to cents where it is computed.

var ErrNoQuantityBreaks = errors.New("no quantity breaks available")

// SelectQuantityBreak returns the largest break not above qty. Quantities below every break
// get the smallest break and quantities above every break get the largest.
func SelectQuantityBreak(qty int, breaks []int) (int, error) {
	if len(breaks) == 0 {
		return 0, ErrNoQuantityBreaks
	}
	sorted := append([]int(nil), breaks...)
	sort.Ints(sorted)

	selected := sorted[0]
	for _, b := range sorted {
		if b > qty {
			break
		}
		selected = b
	}
	return selected, nil
}

// firstCalc returns the first rule defining the field picked by get.
func firstCalc(rules []models.PricingRule, get func(models.RuleCalculations) *float64) (float64, string, bool) {
	for _, r := range rules {
		if v := get(r.Calc()); v != nil {
			return *v, r.RuleID, true
		}
	}
	return 0, "", false
}

// LocationSurchargeResult holds the per-unit location surcharges.
type LocationSurchargeResult struct {
	PerUnit   float64            `json:"per_unit"`
	Breakdown map[string]float64 `json:"breakdown"`
	RuleIDs   []string           `json:"rule_ids,omitempty"`
}

// ApplyLocationSurcharges sums a per-unit surcharge for each requested location. A location no
// rule defines falls back to the default table and then to zero.
func ApplyLocationSurcharges(locations []string, rules []models.PricingRule, defaults Defaults) LocationSurchargeResult {
	res := LocationSurchargeResult{Breakdown: make(map[string]float64, len(locations))}
	total := decimal.Zero
	used := make(map[string]bool)

	for _, loc := range normSet(locations) {
		amount, ruleID, found := 0.0, "", false
		for _, r := range rules {
			if v, ok := r.Calc().LocationSurcharge[loc]; ok {
				amount, ruleID, found = v, r.RuleID, true
				break
			}
		}
		if !found {
			amount = defaults.LocationSurcharges[loc]
		}
		if ruleID != "" && !used[ruleID] {
			used[ruleID] = true
			res.RuleIDs = append(res.RuleIDs, ruleID)
		}
		a := round2(dec(amount))
		res.Breakdown[loc] = money(a)
		total = total.Add(a)
	}

	res.PerUnit = money(total)
	return res
}

// ColorMultiplierResult is the multiplier applied for a color count.
type ColorMultiplierResult struct {
	Multiplier   float64 `json:"multiplier"`
	AdjustedCost float64 `json:"adjusted_cost"`
	RuleID       string  `json:"rule_id,omitempty"`
}

// ApplyColorMultiplier scales baseCost by the multiplier for colorCount.
func ApplyColorMultiplier(baseCost float64, colorCount int, rules []models.PricingRule, defaults Defaults) ColorMultiplierResult {
	key := strconv.Itoa(colorCount)
	res := ColorMultiplierResult{Multiplier: defaults.SingleColorMultiplier}
	if colorCount >= 2 {
		res.Multiplier = defaults.MultiColorMultiplier
	}
	for _, r := range rules {
		if v, ok := r.Calc().ColorMultiplier[key]; ok {
			res.Multiplier = v
			res.RuleID = r.RuleID
			break
		}
	}
	res.AdjustedCost = money(dec(baseCost).Mul(dec(res.Multiplier)))
	return res
}

// VolumeDiscountResult is a percentage taken off an amount.
type VolumeDiscountResult struct {
	DiscountPct    float64 `json:"discount_pct"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	RuleID         string  `json:"rule_id,omitempty"`
}

// ApplyVolumeDiscount applies the highest priority discount_pct, or the default tier for quantity.
func ApplyVolumeDiscount(amount float64, quantity int, rules []models.PricingRule, defaults Defaults) VolumeDiscountResult {
	pct, ruleID, ok := firstCalc(rules, func(c models.RuleCalculations) *float64 { return c.DiscountPct })
	if !ok {
		pct = defaults.TierDiscount(quantity)
	}
	a := round2(dec(amount))
	discount := round2(a.Mul(dec(pct)).Div(hundred))
	return VolumeDiscountResult{
		DiscountPct:    pct,
		DiscountAmount: money(discount),
		FinalAmount:    money(a.Sub(discount)),
		RuleID:         ruleID,
	}
}

// MarginResult is an amount marked up to its quoted price.
type MarginResult struct {
	MarginPct    float64 `json:"margin_pct"`
	MarginAmount float64 `json:"margin_amount"`
	TotalPrice   float64 `json:"total_price"`
	RuleID       string  `json:"rule_id,omitempty"`
}

// CalculateMargin marks amount up by the highest priority margin_target, or the default margin.
func CalculateMargin(amount float64, rules []models.PricingRule, defaults Defaults) MarginResult {
	pct := dec(defaults.MarginPct)
	target, ruleID, ok := firstCalc(rules, func(c models.RuleCalculations) *float64 { return c.MarginTarget })
	if ok {
		pct = dec(target).Mul(hundred)
	}
	a := round2(dec(amount))
	total := round2(a.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred))))
	return MarginResult{
		MarginPct:    ratio(pct),
		MarginAmount: money(total.Sub(a)),
		TotalPrice:   money(total),
		RuleID:       ruleID,
	}
}

// EmbroideryResult is the stitch charge for an order.
type EmbroideryResult struct {
	PricePer1000 float64 `json:"price_per_1000"`
	Price        float64 `json:"price"`
	RuleID       string  `json:"rule_id,omitempty"`
}

// CalculateEmbroideryPrice charges stitchCount/1000 × price per 1000 stitches × quantity.
func CalculateEmbroideryPrice(stitchCount, quantity int, rules []models.PricingRule, defaults Defaults) EmbroideryResult {
	per, ruleID, ok := firstCalc(rules, func(c models.RuleCalculations) *float64 { return c.StitchPricePer1000 })
	if !ok {
		per = defaults.EmbroideryPer1000
	}
	price := decimal.NewFromInt(int64(stitchCount)).
		Div(decimal.NewFromInt(1000)).
		Mul(dec(per)).
		Mul(decimal.NewFromInt(int64(quantity)))
	return EmbroideryResult{PricePer1000: per, Price: money(price), RuleID: ruleID}
}

// SetupFeeResult is a one-off order charge.
type SetupFeeResult struct {
	Fee    float64 `json:"fee"`
	RuleID string  `json:"rule_id,omitempty"`
}

// ApplySetupFee returns the highest priority setup_fee. Empty orders carry no fee.
func ApplySetupFee(quantity int, rules []models.PricingRule) SetupFeeResult {
	if quantity <= 0 {
		return SetupFeeResult{}
	}
	fee, ruleID, ok := firstCalc(rules, func(c models.RuleCalculations) *float64 { return c.SetupFee })
	if !ok {
		return SetupFeeResult{}
	}
	return SetupFeeResult{Fee: money(dec(fee)), RuleID: ruleID}
}

// SurchargeResult is a percentage added to an amount, such as a rush charge.
type SurchargeResult struct {
	Pct    float64 `json:"pct"`
	Amount float64 `json:"amount"`
	RuleID string  `json:"rule_id,omitempty"`
}

// ApplySurcharge adds the highest priority surcharge_pct of amount.
func ApplySurcharge(amount float64, rules []models.PricingRule) SurchargeResult {
	pct, ruleID, ok := firstCalc(rules, func(c models.RuleCalculations) *float64 { return c.SurchargePct })
	if !ok {
		return SurchargeResult{}
	}
	return SurchargeResult{
		Pct:    pct,
		Amount: money(dec(amount).Mul(dec(pct)).Div(hundred)),
		RuleID: ruleID,
	}
}
