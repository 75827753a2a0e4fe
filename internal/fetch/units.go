// internal/fetch/units.go
package fetch

import (
	"fmt"
	"math/big"
	"strings"
)

// FormatUnits renders a smallest-unit integer as a decimal string, trimming
// trailing zeros from the fraction.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(raw, divisor, new(big.Int))

	neg := ""
	if whole.Sign() < 0 || frac.Sign() < 0 {
		neg = "-"
		whole.Abs(whole)
		frac.Abs(frac)
	}

	if frac.Sign() == 0 {
		return neg + whole.String()
	}

	fracStr := fmt.Sprintf("%0*s", decimals, frac.String())
	fracStr = strings.TrimRight(fracStr, "0")
	return neg + whole.String() + "." + fracStr
}

// ParseUnits converts a decimal string into a smallest-unit integer.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}

	neg := false
	if strings.HasPrefix(amount, "-") {
		neg = true
		amount = amount[1:]
	}

	parts := strings.SplitN(amount, ".", 2)
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q exceeds %d decimal places", amount, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if neg {
		value.Neg(value)
	}
	return value, nil
}
