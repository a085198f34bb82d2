package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ToDecimal converts an arbitrary cell value to an exact base-10 decimal.
// Thousand separators and surrounding whitespace are stripped before
// parsing. Null, missing or unparseable input returns the default; the
// function never fails.
//
//	ToDecimal("1,234,567.89", 0) == decimal "1234567.89"
//	ToDecimal(nil, 0)            == decimal "0"
//	ToDecimal("abc", 50)         == decimal "50"
func ToDecimal(value any, def int64) decimal.Decimal {
	s, ok := cleanNumeric(value)
	if !ok {
		return decimal.NewFromInt(def)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NewFromInt(def)
	}
	return d
}

// ToInt converts an arbitrary cell value to an integer. The cleaned string
// is parsed as a float first so that inputs like "1,234.0" succeed, then
// truncated toward zero. Null, missing or unparseable input returns the
// default; the function never fails.
func ToInt(value any, def int64) int64 {
	s, ok := cleanNumeric(value)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int64(f)
}

// cleanNumeric normalizes a cell value to a parseable numeric string.
// Returns false for null-equivalent input (nil, NaN, empty string).
func cleanNumeric(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if s == "" {
			return "", false
		}
		return s, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return cleanNumeric(float64(v))
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case decimal.Decimal:
		return v.String(), true
	default:
		return "", false
	}
}
