// Package types provides value types shared by every rentledger package.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultCurrency is the currency every room is billed in unless configured
// otherwise.
const DefaultCurrency = "vnd"

// Money represents a monetary value in the smallest currency unit.
// All arithmetic is integer-only, no floating point.
//
// Examples:
//   - VND(2600000) = 2.600.000 ₫
//   - USD(4900) = $49.00 (4900 cents)
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (dong, cents, ...)
	Currency string `json:"currency"` // ISO 4217 lowercase: "vnd", "usd"
}

// VND creates a Money value in Vietnamese Dong (no decimal).
func VND(dong int64) Money { return Money{Amount: dong, Currency: "vnd"} }

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// Arithmetic operations

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Multiply multiplies the Money by a quantity (a unit price times usage).
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// Comparison methods

// ErrOverflow is returned when a result does not fit in an int64 amount.
var ErrOverflow = errors.New("money: amount overflows")

// AddChecked is Add with overflow detection.
func (m Money) AddChecked(other Money) (Money, error) {
	m.assertSameCurrency(other)
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// MultiplyChecked is Multiply with overflow detection.
func (m Money) MultiplyChecked(qty int64) (Money, error) {
	if m.Amount == 0 || qty == 0 {
		return Money{Currency: m.Currency}, nil
	}
	if (m.Amount == -1 && qty == math.MinInt64) || (qty == -1 && m.Amount == math.MinInt64) {
		return Money{}, ErrOverflow
	}
	product := m.Amount * qty
	if product/qty != m.Amount {
		return Money{}, ErrOverflow
	}
	return Money{Amount: product, Currency: m.Currency}, nil
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && strings.EqualFold(m.Currency, other.Currency)
}

// Formatting methods

// FormatMajor returns the major unit string without currency symbol.
// For currencies with 2 decimal places: "49.00" for USD(4900).
// For zero-decimal currencies: "2600000" for VND(2600000).
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return strconv.FormatInt(m.Amount, 10)
	}

	divisor := int64(1)
	for range decimals {
		divisor *= 10
	}

	isNegative := m.Amount < 0
	absAmount := m.Amount
	if isNegative {
		absAmount = -absAmount
	}

	result := fmt.Sprintf("%d.%0*d", absAmount/divisor, decimals, absAmount%divisor)
	if isNegative {
		return "-" + result
	}
	return result
}

// FormatGrouped returns the amount with Vietnamese digit grouping
// ("2.600.000"). Only meaningful for zero-decimal currencies; others fall
// back to FormatMajor.
func (m Money) FormatGrouped() string {
	if currencyDecimals(m.Currency) != 0 {
		return m.FormatMajor()
	}

	digits := strconv.FormatInt(m.Amount, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// String returns a human-readable string with currency symbol.
// Examples: "2.600.000 ₫", "$49.00".
func (m Money) String() string {
	if strings.EqualFold(m.Currency, "vnd") {
		return m.FormatGrouped() + " ₫"
	}
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
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

// UnmarshalJSON implements json.Unmarshaler. The currency code is stored
// lowercase whatever the document carries; the display field is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = raw.Amount
	m.Currency = strings.ToLower(strings.TrimSpace(raw.Currency))
	return nil
}

// Helper functions

// assertSameCurrency panics if currencies don't match. Codes compare
// case-insensitively.
func (m Money) assertSameCurrency(other Money) {
	if !strings.EqualFold(m.Currency, other.Currency) {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"jpy": "¥",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int {
	zeroDecimal := map[string]bool{
		"vnd": true, // Vietnamese Dong
		"jpy": true, // Japanese Yen
		"krw": true, // Korean Won
		"idr": true, // Indonesian Rupiah
	}
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// Sum calculates the sum of multiple Money values. All must have the same
// currency. An empty input sums to zero dong.
func Sum(values ...Money) Money {
	if len(values) == 0 {
		return Zero(DefaultCurrency)
	}

	result := values[0]
	for i := 1; i < len(values); i++ {
		result = result.Add(values[i])
	}
	return result
}
