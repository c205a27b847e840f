package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatAmount renders amount with exactly two decimals, rounding half away
// from zero (half-up for the non-negative amounts we hash). This is the
// representation the gateway recomputes the hash over.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatWholeAmount renders amount as a whole number for the gateway form
// field. It rounds the same way FormatAmount does.
func FormatWholeAmount(amount decimal.Decimal) string {
	return amount.StringFixed(0)
}

// ParseAmount accepts the decimal strings the CMS and the CLI hand us.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: must be non-negative, got %s", ErrInvalidAmount, s)
	}

	return d, nil
}
