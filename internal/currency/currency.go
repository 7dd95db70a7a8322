// Package currency renders amounts for display. It never converts between
// currencies: the symbol is purely cosmetic.
package currency

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultSymbol is used when no symbol is configured.
const DefaultSymbol = "₹"

// Formatter prefixes a currency symbol and groups thousands, e.g. "₹1,234.50".
type Formatter struct {
	Symbol string
}

func New(symbol string) Formatter {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return Formatter{Symbol: symbol}
}

// Format renders amount with two decimals.
func (f Formatter) Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return sign + f.Symbol + humanize.FormatFloat("#,###.##", amount.Round(2).InexactFloat64())
}
