package lendform

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// DefaultDecimals is the USDT unit precision.
const DefaultDecimals = 6

// decimalPattern admits plain signed decimals with an optional exponent. Go
// literal syntax such as digit separators or hex, octal and binary prefixes is
// not a number to a user typing into the field.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ValidateAmount applies the field rule: the value must parse to a finite
// number strictly greater than zero.
func ValidateAmount(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if !decimalPattern.MatchString(trimmed) {
		return ErrAmountNotPositive
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return ErrAmountNotPositive
	}
	return nil
}

// ScaleAmount converts a decimal amount into integer token units
// (amount * 10^decimals). The conversion is exact; digits finer than one unit
// are truncated. Results of zero or beyond uint256 are rejected.
func ScaleAmount(raw string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if !decimalPattern.MatchString(trimmed) {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if rat.Sign() <= 0 {
		return nil, ErrAmountNotPositive
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat.Mul(rat, new(big.Rat).SetInt(scale))
	units := new(big.Int).Quo(rat.Num(), rat.Denom())
	if units.Sign() == 0 {
		return nil, fmt.Errorf("amount %s is below the smallest unit (%d decimals)", trimmed, decimals)
	}
	if _, overflow := uint256.FromBig(units); overflow {
		return nil, fmt.Errorf("amount %s exceeds uint256", trimmed)
	}
	return units, nil
}
