// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values backed by shopspring/decimal. On the wire they
// are always JSON numbers; on input they may also arrive as numeric strings.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in the account currency.
type Amount struct {
	decimal.Decimal
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{decimal.Zero}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{d}
}

// AmountFromCents builds an amount from an integer number of cents.
func AmountFromCents(cents int64) Amount {
	return Amount{decimal.New(cents, -2)}
}

// ParseAmount converts user input into an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative values and malformed input are rejected; zero is accepted
// here and rejected by Validate.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroAmount, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return ZeroAmount, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroAmount, ErrInvalidAmount
	}
	return Amount{d}, nil
}

// MustAmount builds an Amount from a decimal literal known to be valid.
// Unlike ParseAmount it accepts signed values.
func MustAmount(s string) Amount {
	return Amount{decimal.RequireFromString(s)}
}

// Plus returns a + b.
func (a Amount) Plus(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}

// Minus returns a - b.
func (a Amount) Minus(b Amount) Amount {
	return Amount{a.Decimal.Sub(b.Decimal)}
}

// Cents returns the amount in cents, rounded half away from zero.
func (a Amount) Cents() int64 {
	return a.Decimal.Shift(2).Round(0).IntPart()
}

// Equals reports whether a and b denote the same value regardless of scale.
func (a Amount) Equals(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

func (a Amount) Validate() error {
	if !a.Decimal.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON always emits a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*a = ZeroAmount
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return ErrInvalidAmount
		}
		*a = Amount{d}
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return ErrInvalidAmount
	}
	*a = Amount{d}
	return nil
}
