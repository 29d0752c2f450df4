// Package amount converts between user-facing money strings and the ledger's integer
// minor units.
package amount

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency returns the ISO 4217 currency for code, or an error when it is unknown.
func Currency(code string) (*money.Currency, error) {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return nil, fmt.Errorf("unknown currency %q", code)
	}
	return cur, nil
}

// Parse reads a decimal amount in major units ("1,250.50") and returns it in the
// currency's minor units. More fractional digits than the currency has is an error.
func Parse(s, currency string) (int64, error) {
	cur, err := Currency(currency)
	if err != nil {
		return 0, err
	}
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	minor := d.Shift(int32(cur.Fraction))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, cur.Fraction)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q is out of range", s)
	}
	return minor.IntPart(), nil
}

// Format renders minor units with the currency's symbol and separators.
func Format(minor int64, currency string) string {
	return money.New(minor, strings.ToUpper(currency)).Display()
}

// Major renders minor units as a plain decimal string in major units, without symbol.
func Major(minor int64, currency string) string {
	cur, err := Currency(currency)
	if err != nil {
		return decimal.NewFromInt(minor).String()
	}
	return decimal.New(minor, -int32(cur.Fraction)).StringFixed(int32(cur.Fraction))
}
