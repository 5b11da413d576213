// Package lotsize sizes positions from account capital or from a fixed
// risk amount and a stop-loss distance in pips.
package lotsize

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	minLot = decimal.NewFromFloat(0.01)

	// capital per standard lot step
	capitalPerLot = decimal.NewFromInt(1000)
	// pip distance covered without scaling the lot down
	basePips = decimal.NewFromInt(10)
	// account currency per pip per lot
	pipValue = decimal.NewFromInt(10)
)

func decFromFloat(val float64) (decimal.Decimal, bool) {
	if math.IsNaN(val) || math.IsInf(val, 0) || val <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(val), true
}

// CapitalBased allows one lot step per 1000 of capital, scaled down
// proportionally once the stop is wider than 10 pips. The result is never
// below 0.01 and is rounded to two places. Non-positive or non-finite
// inputs yield zero.
func CapitalBased(capital, pips float64) decimal.Decimal {
	c, ok := decFromFloat(capital)
	if !ok {
		return decimal.Zero
	}
	p, ok := decFromFloat(pips)
	if !ok {
		return decimal.Zero
	}

	lot := c.Div(capitalPerLot)
	if p.GreaterThan(basePips) {
		lot = lot.Div(p.Div(basePips))
	}
	return decimal.Max(minLot, lot).Round(2)
}

// RiskBased sizes the position so that hitting a stop slPips away loses
// riskAmount. The result is never below 0.01 and is rounded to two places.
// Non-positive or non-finite inputs yield zero.
func RiskBased(riskAmount, slPips float64) decimal.Decimal {
	r, ok := decFromFloat(riskAmount)
	if !ok {
		return decimal.Zero
	}
	sl, ok := decFromFloat(slPips)
	if !ok {
		return decimal.Zero
	}

	lot := r.Div(sl.Mul(pipValue))
	return decimal.Max(minLot, lot).Round(2)
}

// Format renders a lot size with exactly two decimal places.
func Format(lot decimal.Decimal) string {
	return lot.StringFixed(2)
}
