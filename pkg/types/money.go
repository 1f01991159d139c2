package types

import "github.com/shopspring/decimal"

// DollarsFromCents converts an integer cent amount to a decimal dollar value.
func DollarsFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// FormatCents renders a cent amount as a dollar string, e.g. 12999 -> "$129.99".
func FormatCents(cents int64) string {
	return "$" + DollarsFromCents(cents).StringFixed(2)
}
