// Package valueobjects - Amount is the monetary value object for the wallet core.
// The service is single-currency, so an Amount is a bare fixed-precision decimal.
//
// Value Object Pattern:
// - Immutable: all operations return new Amount instances
// - Self-validating: cannot create a negative or malformed Amount
package valueobjects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every amount.
// Inputs with more digits are rounded half-even before storage.
const Scale = 4

// Operation bounds for client-supplied amounts. Balances themselves are not
// bounded above (they grow by repeated deposits).
var (
	minOperationAmount = decimal.RequireFromString("0.01")
	maxOperationAmount = decimal.RequireFromString("1000000.00")
)

// Common domain errors for Amount operations.
var (
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrInvalidAmount      = errors.New("invalid amount format")
	ErrAmountOutOfRange   = errors.New("amount out of allowed range")
	ErrInsufficientAmount = errors.New("insufficient amount")
)

// Amount represents a non-negative monetary value with Scale fractional digits.
type Amount struct {
	value decimal.Decimal
}

// ParseAmount parses a decimal string into an Amount.
// Scientific notation is rejected; excess fractional digits are rounded
// half-even to Scale.
func ParseAmount(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.ContainsAny(trimmed, "eE") {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	if d.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}

	return Amount{value: d.RoundBank(Scale)}, nil
}

// ParseOperationAmount parses a client-supplied operation amount and enforces
// the per-operation bounds (0.01 .. 1,000,000.00 inclusive).
func ParseOperationAmount(s string) (Amount, error) {
	a, err := ParseAmount(s)
	if err != nil {
		return Amount{}, err
	}

	if a.value.Cmp(minOperationAmount) < 0 || a.value.Cmp(maxOperationAmount) > 0 {
		return Amount{}, fmt.Errorf("%w: %s", ErrAmountOutOfRange, a.String())
	}

	return a, nil
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{value: decimal.Zero}
}

// MustAmount parses a decimal string and panics on error. Test helper.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a new Amount with the sum of the two values.
func (a Amount) Add(other Amount) Amount {
	return Amount{value: a.value.Add(other.value)}
}

// Sub returns a new Amount with the difference.
// Returns ErrInsufficientAmount if the result would be negative.
func (a Amount) Sub(other Amount) (Amount, error) {
	diff := a.value.Sub(other.value)
	if diff.Sign() < 0 {
		return Amount{}, ErrInsufficientAmount
	}
	return Amount{value: diff}, nil
}

// Cmp compares two amounts: -1 if a < other, 0 if equal, +1 if a > other.
func (a Amount) Cmp(other Amount) int {
	return a.value.Cmp(other.value)
}

// Equal reports whether two amounts represent the same value.
func (a Amount) Equal(other Amount) bool {
	return a.value.Cmp(other.value) == 0
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool {
	return a.value.Sign() > 0
}

// String renders the amount with exactly Scale fractional digits.
// This is the canonical wire and storage representation.
func (a Amount) String() string {
	return a.value.StringFixed(Scale)
}

// Decimal returns the underlying decimal value (a copy).
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// MarshalJSON encodes the amount as a JSON string to keep precision stable
// across schema versions.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes an amount from a JSON string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
