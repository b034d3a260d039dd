package pricing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// VolumeTier grants DiscountPct to quantities at or above MinQuantity.
type VolumeTier struct {
	MinQuantity int
	DiscountPct float64
}

// Defaults holds the built-in values used when no matching rule covers a calculation field.
type Defaults struct {
	LocationSurcharges    map[string]float64
	SingleColorMultiplier float64
	MultiColorMultiplier  float64
	VolumeTiers           []VolumeTier
	MarginPct             float64
	EmbroideryPer1000     float64
}

// DefaultDefaults returns the standard shop table.
func DefaultDefaults() Defaults {
	return Defaults{
		LocationSurcharges: map[string]float64{
			"front":  2.0,
			"back":   3.0,
			"sleeve": 1.5,
		},
		SingleColorMultiplier: 1.0,
		MultiColorMultiplier:  1.3,
		VolumeTiers: []VolumeTier{
			{MinQuantity: 0, DiscountPct: 0},
			{MinQuantity: 100, DiscountPct: 10},
			{MinQuantity: 500, DiscountPct: 12},
			{MinQuantity: 1000, DiscountPct: 15},
		},
		MarginPct:         35,
		EmbroideryPer1000: 1.50,
	}
}

// TierDiscount returns the discount percentage of the highest tier whose minimum is <= quantity.
func (d Defaults) TierDiscount(quantity int) float64 {
	pct := 0.0
	best := -1
	for _, t := range d.VolumeTiers {
		if t.MinQuantity <= quantity && t.MinQuantity > best {
			best = t.MinQuantity
			pct = t.DiscountPct
		}
	}
	return pct
}

// ParseVolumeTiers parses "0:0,100:10,500:12,1000:15" into a sorted tier table.
func ParseVolumeTiers(s string) ([]VolumeTier, error) {
	var tiers []VolumeTier
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid tier %q: expected min:pct", part)
		}
		minQty, err := strconv.Atoi(strings.TrimSpace(kv[0]))
		if err != nil || minQty < 0 {
			return nil, fmt.Errorf("invalid tier quantity %q", kv[0])
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil || pct < 0 || pct > 100 {
			return nil, fmt.Errorf("invalid tier discount %q", kv[1])
		}
		if seen[minQty] {
			return nil, fmt.Errorf("duplicate tier quantity %d", minQty)
		}
		seen[minQty] = true
		tiers = append(tiers, VolumeTier{MinQuantity: minQty, DiscountPct: pct})
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("volume tier table is empty")
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinQuantity < tiers[j].MinQuantity })
	return tiers, nil
}

// ParseAmountTable parses "front:2.0,back:3.0" into a lower-cased map.
func ParseAmountTable(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid entry %q: expected name:amount", part)
		}
		name := strings.ToLower(strings.TrimSpace(kv[0]))
		if name == "" {
			return nil, fmt.Errorf("invalid entry %q: empty name", part)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil || amount < 0 {
			return nil, fmt.Errorf("invalid amount %q", kv[1])
		}
		out[name] = amount
	}
	return out, nil
}
