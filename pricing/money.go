// Package pricing implements the quote rules engine: rule validation, condition matching,
// rule selection, calculation primitives and the quote pipeline. It holds no package state.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// round2 rounds half away from zero to two decimal places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func money(d decimal.Decimal) float64 {
	f, _ := round2(d).Float64()
	return f
}

func ratio(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// RoundMoney rounds an amount to cents.
func RoundMoney(f float64) float64 {
	return money(dec(f))
}
