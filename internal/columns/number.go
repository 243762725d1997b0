package columns

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxExponent bounds scientific notation to what a float64 cell can hold.
const maxExponent = 324

// ParseDecimal implements the numeric coercion rule: nil or blank is no value, thousands commas are
// stripped, anything that is not a complete number is no value. Zero and negatives are values.
func ParseDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Decimal{}, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Decimal{}, false
		}
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.Exponent() > maxExponent || d.Exponent() < -maxExponent {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// ParseNumber is ParseDecimal as a nullable float.
func ParseNumber(v any) *float64 {
	d, ok := ParseDecimal(v)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return nil
	}
	return &f
}
