package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePeriod(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "nil", value: nil, want: ""},
		{name: "NaN", value: math.NaN(), want: ""},
		{name: "empty string", value: "   ", want: ""},

		{name: "full date dashes", value: "2024-05-03", want: "2024-05"},
		{name: "full date dots", value: "2024.5.3", want: "2024-05"},
		{name: "full date slashes", value: "2024/05/03", want: "2024-05"},
		{name: "full date with time", value: "2024-05-03 14:30:00", want: "2024-05"},

		{name: "year month dash", value: "2024-05", want: "2024-05"},
		{name: "year month dot", value: "2024.05", want: "2024-05"},
		{name: "year month slash", value: "2024/05", want: "2024-05"},
		{name: "year month single digit", value: "2024-5", want: "2024-05"},
		{name: "year month dot space", value: "2024. 5", want: "2024-05"},

		{name: "bare year defaults to january", value: "2024", want: "2024-01"},
		{name: "bare year integer", value: 2024, want: "2024-01"},

		{name: "decimal year", value: "2024.0", want: "2024-01"},
		{name: "decimal year float", value: float64(2024.0), want: "2024-01"},
		{name: "decimal year-month", value: "202405.0", want: "2024-05"},
		{name: "decimal year-month float", value: float64(202405.0), want: "2024-05"},

		{name: "six digit numeral", value: "202405", want: "2024-05"},
		{name: "six digit integer", value: int64(202405), want: "2024-05"},

		{name: "time value", value: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), want: "2024-05"},
		{name: "zero time", value: time.Time{}, want: ""},
		{name: "rfc3339 string", value: "2024-05-03T14:30:00Z", want: "2024-05"},
		{name: "english long date", value: "January 2, 2024", want: "2024-01"},

		{name: "fallback short passthrough", value: "Q1 24", want: "Q1 24"},
		{name: "fallback long truncated to seven", value: "unrecognized-period", want: "unrecog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePeriod(tt.value))
		})
	}
}

// Equivalent spellings of the same month must collapse to one key.
func TestNormalizePeriodEquivalence(t *testing.T) {
	want := "2024-05"
	for _, v := range []any{"2024-05", "2024.05", "2024/05", "202405", float64(202405.0)} {
		assert.Equal(t, want, NormalizePeriod(v), "input %v", v)
	}
}

func TestNormalizePeriodIdempotent(t *testing.T) {
	inputs := []any{"2024-05-03", "2024.05", "2024", "202405", "2024.0", float64(202405.0)}
	for _, v := range inputs {
		once := NormalizePeriod(v)
		assert.Equal(t, once, NormalizePeriod(once), "input %v", v)
	}
}
