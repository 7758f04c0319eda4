package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// minorUnitsPerMajor is the subunit scale shared by all supported currencies
// (pesewas per cedi, kobo per naira).
const minorUnitsPerMajor = 100

// Money is an amount held in minor units alongside its currency. Keeping
// amounts integral avoids float drift when comparing against gateway charges.
type Money struct {
	Minor    int64
	Currency enums.Currency
}

// FromMinor builds Money directly from a minor-unit amount.
func FromMinor(minor int64, currency enums.Currency) Money {
	return Money{Minor: minor, Currency: currency}
}

// FromDecimal converts a major-unit decimal amount into Money. The amount
// must land exactly on a minor unit.
func FromDecimal(amount decimal.Decimal, currency enums.Currency) (Money, error) {
	scaled := amount.Mul(decimal.NewFromInt(minorUnitsPerMajor))
	if !scaled.IsInteger() {
		return Money{}, fmt.Errorf("amount %s is not representable in minor units", amount)
	}
	return Money{Minor: scaled.IntPart(), Currency: currency}, nil
}

// Decimal returns the major-unit representation.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Minor).Div(decimal.NewFromInt(minorUnitsPerMajor))
}

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Minor: m.Minor + other.Minor, Currency: m.Currency}, nil
}

// MulInt scales the amount by an integer quantity.
func (m Money) MulInt(quantity int64) Money {
	return Money{Minor: m.Minor * quantity, Currency: m.Currency}
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Minor == other.Minor && m.Currency == other.Currency
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Minor > 0
}

// String renders the amount in major units with its currency code.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(2), m.Currency)
}
