// Package core provides the ledger's data model and its parsing rules.
//
// This file contains the money type: amounts are held as integer cents,
// parsed strictly from user input and leniently from stored documents.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. A Money decoded from a stored value that
// could not be parsed keeps the original JSON token and reports !Valid.
type Money struct {
	Cents int64
	raw   string
}

var ErrInvalidAmount = errors.New("amount must be a positive number")

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Dot and comma separators are both
// accepted. Only strictly positive amounts are valid input.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, ErrInvalidAmount
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return 0, ErrInvalidAmount
	}

	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseStoredAmount is the lenient reader for persisted amounts: any finite
// number, signed or zero, rounded to the nearest cent.
func parseStoredAmount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if math.Abs(f) > float64(math.MaxInt64/100) {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

// Valid reports whether the amount was parseable.
func (m Money) Valid() bool {
	return m.raw == ""
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Decimal renders the amount as a plain decimal ("12.5", "-3", "0.07").
func (m Money) Decimal() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100
	switch {
	case frac == 0:
		return sign + whole
	case frac%10 == 0:
		return sign + whole + "." + strconv.FormatInt(frac/10, 10)
	default:
		return sign + whole + "." + twoDigits(frac)
	}
}

// Float is for display and chart payloads only.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Format renders the amount for people, e.g. "₱1,234.50".
func (m Money) Format(currency string) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := currencySymbol(currency) + b.String() + "." + twoDigits(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

func currencySymbol(code string) string {
	switch strings.ToUpper(code) {
	case "PHP":
		return "₱"
	case "EUR":
		return "€"
	case "USD":
		return "$"
	case "GBP":
		return "£"
	case "":
		return ""
	default:
		return strings.ToUpper(code) + " "
	}
}

func (m Money) MarshalJSON() ([]byte, error) {
	if m.raw != "" {
		return []byte(m.raw), nil
	}
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON accepts numbers and numeric strings. Anything else is kept
// verbatim so a later save does not lose it.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*m = Money{raw: text}
			return nil
		}
		text = s
	}
	cents, ok := parseStoredAmount(text)
	if !ok {
		*m = Money{raw: string(data)}
		return nil
	}
	*m = Money{Cents: cents}
	return nil
}
