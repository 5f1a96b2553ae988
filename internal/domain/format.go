package domain

import "github.com/shopspring/decimal"

var (
	hundred     = decimal.NewFromInt(100)
	tenThousand = decimal.NewFromInt(10000)
)

// PercentPoints converts an internal fraction to percentage points rounded to
// two places (0.05 -> 5.00). Only the presentation layer should call this.
func PercentPoints(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Mul(hundred).Round(2)
}

// BasisPoints converts an internal fraction to whole basis points
func BasisPoints(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Mul(tenThousand).Round(0)
}

// FormatPercent renders a fraction the way the reports do: 0.0512 -> "5.12%",
// -0.0512 -> "(5.12%)"
func FormatPercent(f float64) string {
	p := PercentPoints(f)
	if p.IsNegative() {
		return "(" + p.Abs().StringFixed(2) + "%)"
	}
	return p.StringFixed(2) + "%"
}
