// Package core provides money parsing and handling utilities.
//
// This file contains the display codec used by live-typing money inputs
// (1.299,99) and the conversions between cents and the plain decimal numbers
// exchanged over the API.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxDisplayDigits bounds the digits ParseDisplay keeps so the cents value
// always fits in an int64.
const maxDisplayDigits = 17

// ParseDisplay converts a masked display string into Money.
//
// Every non-digit character is dropped and the rightmost two digits are read
// as cents. Input without digits normalizes to zero instead of failing, so a
// half-typed field never produces an error. Digits past maxDisplayDigits are
// ignored, the same way a masked input stops accepting keystrokes.
//
// Examples:
//
//	ParseDisplay("1.299,99") -> Money{Cents: 129999}
//	ParseDisplay("R$ 5")     -> Money{Cents: 5}
//	ParseDisplay("abc")      -> Money{Cents: 0}
func ParseDisplay(s string) Money {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	digits = bytes.TrimLeft(digits, "0")
	if len(digits) == 0 {
		return Money{}
	}
	if len(digits) > maxDisplayDigits {
		digits = digits[:maxDisplayDigits]
	}
	cents, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return Money{}
	}
	return Money{Cents: cents}
}

// FormatDisplay renders m with period thousands separators and a comma
// before the two cent digits: 1299.99 becomes "1.299,99".
func FormatDisplay(m Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	fmt.Fprintf(&b, ",%02d", cents%100)
	return b.String()
}

// FormatCurrency is FormatDisplay with the Brazilian real symbol.
func FormatCurrency(m Money) string {
	return "R$ " + FormatDisplay(m)
}

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromDecimal rounds d half away from zero to two places. Callers must
// keep d within range; CheckedMoney reports values that do not fit.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// CheckedMoney is MoneyFromDecimal returning ErrInvalidAmount when the cents
// value would overflow an int64.
func CheckedMoney(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Money{Cents: cents.IntPart()}, nil
}

// MoneyFromFloat converts an API float (e.g. 1299.99) to Money.
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// ParseDecimal parses a plain decimal string such as "1299.99" or "12,5".
func ParseDecimal(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return CheckedMoney(d)
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns m as a float64 for display and charting only.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// IsZero reports whether m is zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes m as a plain JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, raw)
	}
	checked, err := CheckedMoney(d)
	if err != nil {
		return err
	}
	*m = checked
	return nil
}

// Sum adds up every amount.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
