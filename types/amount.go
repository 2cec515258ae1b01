// Package types provides the value types shared across the issuance ledger.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Arithmetic errors.
var (
	ErrOverflow     = errors.New("types: amount overflow")
	ErrUnderflow    = errors.New("types: amount underflow")
	ErrDivideByZero = errors.New("types: division by zero")
	ErrSyntax       = errors.New("types: invalid amount")
)

// Amount is an unsigned quantity in the smallest indivisible unit: wei for
// the native payment currency, 10^-decimals of a whole unit for ledger
// balances. The zero value is zero.
//
// Arithmetic never wraps. Every operation that can leave the 256-bit range
// returns an error instead.
//
//nolint:recvcheck // Value receivers for arithmetic, pointer receiver for UnmarshalText.
type Amount struct {
	v uint256.Int
}

// Zero is the zero Amount.
var Zero Amount

// NewAmount returns n as an Amount.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Pow10 returns 10^exp. It panics for exponents that do not fit 256 bits.
func Pow10(exp uint8) Amount {
	if exp > 77 {
		panic(fmt.Sprintf("types: 10^%d exceeds 256 bits", exp))
	}
	var a Amount
	a.v.Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
	return a
}

// Whole returns n whole units expressed with the given number of decimals.
func Whole(n uint64, decimals uint8) (Amount, error) {
	return NewAmount(n).Mul(Pow10(decimals))
}

// Hundredths returns n hundredths of a unit expressed with the given
// number of decimals. Decimals must be at least 2.
func Hundredths(n uint64, decimals uint8) (Amount, error) {
	if decimals < 2 {
		return Zero, fmt.Errorf("%w: hundredths need at least 2 decimals, got %d", ErrSyntax, decimals)
	}
	return NewAmount(n).Mul(Pow10(decimals - 2))
}

// ParseAmount parses a base-10 integer string.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("%w %q: %v", ErrSyntax, s, err)
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is like ParseAmount but panics on error. Use for constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ──────────────────────────────────────────────────
// Arithmetic
// ──────────────────────────────────────────────────

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	var r Amount
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow {
		return Zero, ErrOverflow
	}
	return r, nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Zero, ErrUnderflow
	}
	return r, nil
}

// Mul returns a*b or ErrOverflow.
func (a Amount) Mul(b Amount) (Amount, error) {
	var r Amount
	if _, overflow := r.v.MulOverflow(&a.v, &b.v); overflow {
		return Zero, ErrOverflow
	}
	return r, nil
}

// MulDiv returns floor(a*mul/div). The intermediate product is computed
// in 512 bits, so only a quotient that does not fit 256 bits overflows.
func (a Amount) MulDiv(mul, div Amount) (Amount, error) {
	if div.IsZero() {
		return Zero, ErrDivideByZero
	}
	var r Amount
	if _, overflow := r.v.MulDivOverflow(&a.v, &mul.v, &div.v); overflow {
		return Zero, ErrOverflow
	}
	return r, nil
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.v.Lt(&b.v) {
		return a
	}
	return b
}

// Sum adds all values, failing on the first overflow.
func Sum(values ...Amount) (Amount, error) {
	total := Zero
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Zero, err
		}
	}
	return total, nil
}

// ──────────────────────────────────────────────────
// Comparison
// ──────────────────────────────────────────────────

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.v.Gt(&b.v) }

// Equal reports a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// Uint64 returns a as uint64 and whether it fit.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// ──────────────────────────────────────────────────
// Formatting
// ──────────────────────────────────────────────────

// String returns the base-10 integer representation.
func (a Amount) String() string { return a.v.Dec() }

// Format renders a as whole units with the given number of decimals,
// truncated to places fractional digits. Format(2, 2) of 28571 is "285.71".
func (a Amount) Format(decimals uint8, places int) string {
	if places < 0 {
		places = 0
	}
	if places > int(decimals) {
		places = int(decimals)
	}

	scale := Pow10(decimals)
	var whole, frac uint256.Int
	whole.DivMod(&a.v, &scale.v, &frac)
	if places == 0 {
		return whole.Dec()
	}

	drop := Pow10(decimals - uint8(places))
	frac.Div(&frac, &drop.v)
	digits := frac.Dec()
	if pad := places - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return whole.Dec() + "." + digits
}

// MarshalText implements encoding.TextMarshaler as a base-10 string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Zero
		return nil
	}
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Bytes32 returns the 32-byte big-endian encoding of a.
func (a Amount) Bytes32() [32]byte { return a.v.Bytes32() }
