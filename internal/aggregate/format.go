package aggregate

import (
	"github.com/Rhymond/go-money"

	"fintrack/internal/core"
)

// Currency is the ISO code amounts are displayed in.
const Currency = money.USD

// FormatCurrency renders an amount in en-US dollars, e.g. $1,234.56.
func FormatCurrency(a core.Amount) string {
	return money.New(a.Cents(), Currency).Display()
}

// FormatSigned is FormatCurrency with an explicit + for positive amounts.
func FormatSigned(a core.Amount) string {
	if a.IsPositive() {
		return "+" + FormatCurrency(a)
	}
	return FormatCurrency(a)
}
