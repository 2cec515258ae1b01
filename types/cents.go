package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a price in the stable accounting currency, in hundredths.
// 20338 is 203.38.
type Cents uint64

// ParseCents parses a decimal currency string such as "203.38" or "200".
// Digits beyond the second fractional place are truncated. Signs,
// exponents and separators are rejected.
func ParseCents(text string) (Cents, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty rate", ErrSyntax)
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if whole == "" && (!hasPoint || frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, text)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, text)
	}

	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrSyntax, text, err)
	}
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrSyntax, text, err)
	}
	if w > (^uint64(0)-f)/100 {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, text)
	}
	return Cents(w*100 + f), nil
}

// Amount converts c to an Amount for fixed-point arithmetic.
func (c Cents) Amount() Amount { return NewAmount(uint64(c)) }

// String formats c as "203.38".
func (c Cents) String() string {
	return fmt.Sprintf("%d.%02d", uint64(c)/100, uint64(c)%100)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
