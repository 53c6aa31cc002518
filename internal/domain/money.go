package domain

import "github.com/shopspring/decimal"

const CurrencySymbol = "$"

// RoundCurrency rounds half away from zero to two decimals. Amounts are kept
// as float64 everywhere else; this is only for display and exports.
func RoundCurrency(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func FormatCurrency(v float64) string {
	return CurrencySymbol + decimal.NewFromFloat(v).StringFixed(2)
}
