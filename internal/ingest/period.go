package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const periodLayout = "2006-01"

var (
	fullDateRe = regexp.MustCompile(`^(\d{4})[-./](\d{1,2})[-./](\d{1,2})(?:[T ].*)?$`)
	yearMonthRe = regexp.MustCompile(`^(\d{4})[\s./-]+(\d{1,2})$`)
	yearOnlyRe  = regexp.MustCompile(`^\d{4}$`)
	sixDigitRe  = regexp.MustCompile(`^\d{6}$`)
)

// timestampLayouts are tried, in order, for date-like strings that match
// none of the structural period patterns.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006年01月02日",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// NormalizePeriod converts an arbitrary date-like cell value into the
// canonical "YYYY-MM" period key. Null-equivalent input yields "".
// Recognition rules are tried in a fixed order and the first match wins:
// full dates are truncated to their month, bare years default to January,
// six-digit YYYYMM numerals are split, decimal-formatted numerals are
// truncated to integers and re-dispatched, time.Time values and generic
// timestamps are formatted directly.
//
// Unrecognized strings degrade to their first seven characters (shorter
// input passes through trimmed). The function never fails.
func NormalizePeriod(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(periodLayout)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return normalizePeriodString(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return NormalizePeriod(float64(v))
	case int:
		return normalizePeriodString(strconv.Itoa(v))
	case int64:
		return normalizePeriodString(strconv.FormatInt(v, 10))
	case string:
		return normalizePeriodString(v)
	default:
		return normalizePeriodString(fmt.Sprint(v))
	}
}

func normalizePeriodString(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Full date: keep year and month, discard day.
	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		if p, ok := buildPeriod(m[1], m[2]); ok {
			return p
		}
	}

	// Year plus month, separator may be '.', '/', '-' or whitespace
	// (covers "2024. 5").
	if m := yearMonthRe.FindStringSubmatch(s); m != nil {
		if p, ok := buildPeriod(m[1], m[2]); ok {
			return p
		}
	}

	// Bare four-digit year: reporting starts in January by convention.
	if yearOnlyRe.MatchString(s) {
		return s + "-01"
	}

	// Decimal representation of a year or year-month (2024.0, 202405.0):
	// truncate and re-dispatch through the integer rules.
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			intStr := strconv.FormatInt(int64(f), 10)
			if yearOnlyRe.MatchString(intStr) {
				return intStr + "-01"
			}
			if sixDigitRe.MatchString(intStr) {
				return intStr[:4] + "-" + intStr[4:]
			}
		}
	}

	// Bare six-digit YYYYMM numeral.
	if sixDigitRe.MatchString(s) {
		return s[:4] + "-" + s[4:]
	}

	// Generic timestamp forms.
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(periodLayout)
		}
	}

	// Fallback: truncate to the canonical key length.
	if r := []rune(s); len(r) > 7 {
		return string(r[:7])
	}
	return s
}

// buildPeriod assembles "YYYY-MM" from year and month strings, zero-padding
// the month. Months outside 1-12 are rejected so that decimal artifacts
// like "2024.0" fall through to the numeric rules.
func buildPeriod(year, month string) (string, bool) {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	return fmt.Sprintf("%s-%02d", year, m), true
}
