// Package amount converts between base-unit integers and decimal display
// strings. All arithmetic is integer; binary floating point is never used,
// so conversions are exact in both directions.
package amount

import (
	"errors"
	"math/big"
	"strings"
)

// ErrInvalidFormat is returned for display strings that are not a plain
// non-negative decimal number.
var ErrInvalidFormat = errors.New("amount: invalid format")

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ToBase parses a display string like "12.345" into base units at the given
// number of decimals. The fractional part is right-padded or truncated to
// decimals digits, then combined as whole*10^decimals + fractional.
func ToBase(display string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrInvalidFormat
	}
	s := strings.TrimSpace(display)
	if s == "" {
		return nil, ErrInvalidFormat
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
		if strings.IndexByte(frac, '.') >= 0 {
			return nil, ErrInvalidFormat
		}
	}
	if whole == "" && frac == "" {
		// A lone "." carries no digits at all.
		return nil, ErrInvalidFormat
	}
	if whole == "" {
		whole = "0"
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, ErrInvalidFormat
	}
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	for len(frac) < decimals {
		frac += "0"
	}
	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, ErrInvalidFormat
	}
	out := new(big.Int).Mul(w, pow10(decimals))
	if frac != "" {
		f, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, ErrInvalidFormat
		}
		out.Add(out, f)
	}
	return out, nil
}

// ToDisplay renders base units as "whole.fraction" with the fractional part
// left-padded with zeros to decimals digits. decimals == 0 renders the whole
// part only.
func ToDisplay(base *big.Int, decimals int) string {
	return ToDisplayTrunc(base, decimals, decimals)
}

// ToDisplayTrunc is ToDisplay with the fractional part truncated to
// precision digits. Truncation is lossy; the round-trip law
// ToBase(ToDisplay(b, d), d) == b holds only for the untruncated form.
func ToDisplayTrunc(base *big.Int, decimals, precision int) string {
	if base == nil {
		base = big.NewInt(0)
	}
	if decimals <= 0 {
		return base.String()
	}
	if precision > decimals {
		precision = decimals
	}
	div := pow10(decimals)
	whole, frac := new(big.Int), new(big.Int)
	whole.QuoRem(base, div, frac)
	fs := frac.String()
	for len(fs) < decimals {
		fs = "0" + fs
	}
	if precision <= 0 {
		return whole.String()
	}
	return whole.String() + "." + fs[:precision]
}
