package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/shopspring/decimal"
)

// LineItem is one priced step of a quote.
type LineItem struct {
	Description string   `json:"description"`
	UnitCost    *float64 `json:"unit_cost,omitempty"`
	Qty         *int     `json:"qty,omitempty"`
	Factor      *float64 `json:"factor,omitempty"`
	Discount    *float64 `json:"discount,omitempty"`
	Total       float64  `json:"total"`
}

// Breakdown splits a quote into named components. The components sum to the total price;
// VolumeDiscounts is negative.
type Breakdown struct {
	BaseCost           float64            `json:"base_cost"`
	LocationSurcharges float64            `json:"location_surcharges"`
	LocationDetail     map[string]float64 `json:"location_detail,omitempty"`
	ColorAdjustments   float64            `json:"color_adjustments"`
	Embroidery         float64            `json:"embroidery"`
	SetupFees          float64            `json:"setup_fees"`
	Surcharges         float64            `json:"surcharges"`
	VolumeDiscounts    float64            `json:"volume_discounts"`
	MarginAmount       float64            `json:"margin_amount"`
}

// QuoteResult is an itemized quote.
type QuoteResult struct {
	LineItems         []LineItem `json:"line_items"`
	Subtotal          float64    `json:"subtotal"`
	MarginPct         float64    `json:"margin_pct"`
	TotalPrice        float64    `json:"total_price"`
	UnitPrice         float64    `json:"unit_price"`
	Breakdown         Breakdown  `json:"breakdown"`
	RulesApplied      []string   `json:"rules_applied"`
	CalculationTimeMs float64    `json:"calculation_time_ms"`
	BaseCostFallback  bool       `json:"base_cost_fallback,omitempty"`
}

// Clone returns a deep copy so cached quotes cannot be altered through a returned value.
func (q QuoteResult) Clone() QuoteResult {
	out := q
	if q.LineItems != nil {
		out.LineItems = make([]LineItem, len(q.LineItems))
		for i, li := range q.LineItems {
			out.LineItems[i] = LineItem{
				Description: li.Description,
				UnitCost:    clonePtr(li.UnitCost),
				Qty:         clonePtr(li.Qty),
				Factor:      clonePtr(li.Factor),
				Discount:    clonePtr(li.Discount),
				Total:       li.Total,
			}
		}
	}
	if q.Breakdown.LocationDetail != nil {
		out.Breakdown.LocationDetail = make(map[string]float64, len(q.Breakdown.LocationDetail))
		for k, v := range q.Breakdown.LocationDetail {
			out.Breakdown.LocationDetail[k] = v
		}
	}
	if q.RulesApplied != nil {
		out.RulesApplied = make([]string, len(q.RulesApplied))
		copy(out.RulesApplied, q.RulesApplied)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Calculate runs the fixed quote pipeline for a validated input.
// rules may be the whole rule set; selection happens here.
func Calculate(in Input, rules []models.PricingRule, garmentBaseCost float64, asOf time.Time, defaults Defaults) QuoteResult {
	start := time.Now()

	in = in.Normalize()
	matched := FindMatching(rules, in, asOf)
	qty := in.Quantity
	qtyDec := decimal.NewFromInt(int64(qty))

	var (
		items      []LineItem
		bd         Breakdown
		contribute = newFieldTracker()
	)

	// base
	unitCost := garmentBaseCost
	if v, _, ok := firstCalc(matched, func(c models.RuleCalculations) *float64 { return c.UnitPriceOverride }); ok {
		unitCost = v
	}

	var subtotal decimal.Decimal
	if in.embroideryOnly() {
		emb := CalculateEmbroideryPrice(in.StitchCount, qty, matched, defaults)
		contribute.consulted(matched, func(c models.RuleCalculations) bool { return c.StitchPricePer1000 != nil })
		subtotal = dec(emb.Price)
		bd.BaseCost = emb.Price
		items = append(items, LineItem{
			Description: fmt.Sprintf("Embroidery (%d stitches)", in.StitchCount),
			UnitCost:    ptr(emb.PricePer1000),
			Qty:         ptr(qty),
			Total:       emb.Price,
		})
	} else {
		contribute.consulted(matched, func(c models.RuleCalculations) bool { return c.UnitPriceOverride != nil })
		base := round2(dec(unitCost).Mul(qtyDec))
		subtotal = base
		bd.BaseCost = money(base)
		items = append(items, LineItem{
			Description: "Garment base cost",
			UnitCost:    ptr(money(dec(unitCost))),
			Qty:         ptr(qty),
			Total:       money(base),
		})
	}

	if len(in.PrintLocations) > 0 {
		loc := ApplyLocationSurcharges(in.PrintLocations, matched, defaults)
		contribute.consulted(matched, func(c models.RuleCalculations) bool {
			for _, l := range in.PrintLocations {
				if _, ok := c.LocationSurcharge[l]; ok {
					return true
				}
			}
			return false
		})
		total := round2(dec(loc.PerUnit).Mul(qtyDec))
		subtotal = subtotal.Add(total)
		bd.LocationSurcharges = money(total)
		bd.LocationDetail = loc.Breakdown
		items = append(items, LineItem{
			Description: fmt.Sprintf("Location surcharges (%s)", strings.Join(in.PrintLocations, ", ")),
			UnitCost:    ptr(loc.PerUnit),
			Qty:         ptr(qty),
			Total:       money(total),
		})
	}

	if in.ColorCount > 0 {
		key := strconv.Itoa(in.ColorCount)
		cm := ApplyColorMultiplier(money(subtotal), in.ColorCount, matched, defaults)
		contribute.consulted(matched, func(c models.RuleCalculations) bool {
			_, ok := c.ColorMultiplier[key]
			return ok
		})
		adjusted := dec(cm.AdjustedCost)
		adj := adjusted.Sub(subtotal)
		subtotal = adjusted
		bd.ColorAdjustments = money(adj)
		items = append(items, LineItem{
			Description: fmt.Sprintf("Color multiplier (%d colors)", in.ColorCount),
			Factor:      ptr(cm.Multiplier),
			Total:       money(adj),
		})
	}

	if in.StitchCount > 0 && !in.embroideryOnly() {
		emb := CalculateEmbroideryPrice(in.StitchCount, qty, matched, defaults)
		contribute.consulted(matched, func(c models.RuleCalculations) bool { return c.StitchPricePer1000 != nil })
		subtotal = subtotal.Add(dec(emb.Price))
		bd.Embroidery = emb.Price
		items = append(items, LineItem{
			Description: fmt.Sprintf("Embroidery (%d stitches)", in.StitchCount),
			UnitCost:    ptr(emb.PricePer1000),
			Qty:         ptr(qty),
			Total:       emb.Price,
		})
	}

	if qty > 0 {
		contribute.consulted(matched, func(c models.RuleCalculations) bool { return c.SetupFee != nil })
	}
	if fee := ApplySetupFee(qty, matched); fee.Fee > 0 {
		subtotal = subtotal.Add(dec(fee.Fee))
		bd.SetupFees = fee.Fee
		items = append(items, LineItem{Description: "Setup fee", Total: fee.Fee})
	}

	contribute.consulted(matched, func(c models.RuleCalculations) bool { return c.SurchargePct != nil })
	if sc := ApplySurcharge(money(subtotal), matched); sc.Pct > 0 {
		subtotal = subtotal.Add(dec(sc.Amount))
		bd.Surcharges = sc.Amount
		items = append(items, LineItem{
			Description: fmt.Sprintf("Surcharge (%s%%)", decimal.NewFromFloat(sc.Pct).String()),
			Factor:      ptr(sc.Pct),
			Total:       sc.Amount,
		})
	}

	vd := ApplyVolumeDiscount(money(subtotal), qty, matched, defaults)
	contribute.consulted(matched, func(c models.RuleCalculations) bool { return c.DiscountPct != nil })
	subtotal = dec(vd.FinalAmount)
	bd.VolumeDiscounts = money(dec(vd.DiscountAmount).Neg())
	if vd.DiscountAmount > 0 {
		items = append(items, LineItem{
			Description: fmt.Sprintf("Volume discount (%s%%)", decimal.NewFromFloat(vd.DiscountPct).String()),
			Discount:    ptr(vd.DiscountPct),
			Total:       bd.VolumeDiscounts,
		})
	}

	m := CalculateMargin(money(subtotal), matched, defaults)
	contribute.consulted(matched, func(c models.RuleCalculations) bool { return c.MarginTarget != nil })
	bd.MarginAmount = m.MarginAmount
	items = append(items, LineItem{
		Description: fmt.Sprintf("Margin (%s%%)", decimal.NewFromFloat(m.MarginPct).String()),
		Factor:      ptr(m.MarginPct),
		Total:       m.MarginAmount,
	})

	res := QuoteResult{
		LineItems:    items,
		Subtotal:     money(subtotal),
		MarginPct:    m.MarginPct,
		TotalPrice:   m.TotalPrice,
		Breakdown:    bd,
		RulesApplied: contribute.ordered(matched),
	}
	if qty > 0 {
		res.UnitPrice = money(dec(m.TotalPrice).Div(qtyDec))
	}
	res.CalculationTimeMs = float64(time.Since(start).Microseconds()) / 1000
	return res
}

// fieldTracker collects the matched rules defining a field the pipeline read.
type fieldTracker struct {
	ids map[string]bool
}

func newFieldTracker() *fieldTracker {
	return &fieldTracker{ids: make(map[string]bool)}
}

func (t *fieldTracker) consulted(rules []models.PricingRule, defines func(models.RuleCalculations) bool) {
	for _, r := range rules {
		if defines(r.Calc()) {
			t.ids[r.RuleID] = true
		}
	}
}

// ordered keeps selector order.
func (t *fieldTracker) ordered(matched []models.PricingRule) []string {
	out := make([]string, 0, len(t.ids))
	for _, r := range matched {
		if t.ids[r.RuleID] {
			out = append(out, r.RuleID)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
