// Package types provides the value types shared by collections, stores and
// plugins: Money, Address and Entity.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultCurrency is the unit used when a collection does not name one.
const DefaultCurrency = "wei"

// Money is an integer amount in the smallest unit of its currency.
// Prices, payments, sale prices and treasuries are all Money; there is no
// floating point anywhere in the payment path.
type Money struct {
	Amount   int64  `json:"amount"   bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// Wei creates a Money value in the native ledger unit.
func Wei(n int64) Money { return Money{Amount: n, Currency: DefaultCurrency} }

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// NewMoney creates a Money value in an arbitrary currency.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: normalizeCurrency(currency)}
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Currency: normalizeCurrency(currency)} }

// ParseMoney parses "<amount>" or "<amount><currency>" / "<amount> <currency>".
// A bare amount takes the fallback currency.
func ParseMoney(s, fallback string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("money: parse %q: empty string", s)
	}

	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}

	amount, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}

	currency := strings.TrimSpace(s[i:])
	if currency == "" {
		currency = fallback
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	return NewMoney(amount, currency), nil
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// CheckedAdd adds two Money values and reports false when the sum does not
// fit in an int64. Panics if currencies don't match.
func (m Money) CheckedAdd(other Money) (Money, bool) {
	m.assertSameCurrency(other)
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return m, false
	}
	return Money{Amount: sum, Currency: m.Currency}, true
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// SameCurrency reports whether both values are denominated in one currency.
func (m Money) SameCurrency(other Money) bool { return m.Currency == other.Currency }

// Equal reports an exact match of amount and currency. Payment checks use
// Equal: overpaying is as wrong as underpaying.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// FormatMajor returns the amount in major units without a currency code.
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return strconv.FormatInt(m.Amount, 10)
	}

	divisor := int64(1)
	for range decimals {
		divisor *= 10
	}

	abs := m.Amount
	sign := ""
	if abs < 0 {
		abs = -abs
		sign = "-"
	}

	return fmt.Sprintf("%s%d.%0*d", sign, abs/divisor, decimals, abs%divisor)
}

// String renders the value as "<major> <currency>", e.g. "10 wei", "49.00 usd".
func (m Money) String() string {
	if m.Currency == "" {
		return m.FormatMajor()
	}
	return m.FormatMajor() + " " + m.Currency
}

// MarshalJSON implements json.Marshaler. The display field is informational
// and ignored on decode.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

func normalizeCurrency(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// currencyDecimals returns the number of decimal places used when formatting.
// Ledger-native units are indivisible.
func currencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "usd", "eur", "gbp", "cad", "aud", "chf":
		return 2
	default:
		return 0
	}
}
