package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestAggregatorSums(t *testing.T) {
	agg := NewAggregator()
	agg.AddAll([]Record{
		{Period: "2024-01", Unit: "공과대학", Revenue: dec(t, "100"), Expenditure: dec(t, "10"), PaperCount: 2, ProjectID: "P1"},
		{Period: "2024-01", Unit: "공과대학", Revenue: dec(t, "50"), Expenditure: dec(t, "5"), PaperCount: 3, ProjectID: "P2"},
		{Period: "2024-01", Unit: "인문대학", Revenue: dec(t, "7"), ProjectID: "P3"},
	})

	require.Equal(t, 2, agg.Len())
	s := agg.Summary(Key{Period: "2024-01", Unit: "공과대학"})
	require.NotNil(t, s)
	assert.Equal(t, "150", s.Revenue.String())
	assert.Equal(t, "15", s.Expenditure.String())
	assert.Equal(t, int64(5), s.PaperCount)
}

func TestAggregatorBudgetDedup(t *testing.T) {
	agg := NewAggregator()
	agg.AddAll([]Record{
		{Period: "2024-01", Unit: "공과대학", Budget: dec(t, "100"), Expenditure: dec(t, "30"), ProjectID: "P1"},
		{Period: "2024-01", Unit: "공과대학", Budget: dec(t, "200"), Expenditure: dec(t, "40"), ProjectID: "P1"},
	})

	s := agg.Summary(Key{Period: "2024-01", Unit: "공과대학"})
	require.NotNil(t, s)
	// First-seen budget wins; expenditure is never deduplicated.
	assert.Equal(t, "100", s.Budget.String())
	assert.Equal(t, "70", s.Expenditure.String())
}

func TestAggregatorBudgetDedupScopedPerKey(t *testing.T) {
	agg := NewAggregator()
	agg.AddAll([]Record{
		{Period: "2024-01", Unit: "공과대학", Budget: dec(t, "100"), ProjectID: "P1"},
		{Period: "2024-02", Unit: "공과대학", Budget: dec(t, "100"), ProjectID: "P1"},
		{Period: "2024-01", Unit: "인문대학", Budget: dec(t, "100"), ProjectID: "P1"},
	})

	// Same project under a different period or unit contributes again.
	assert.Equal(t, "100", agg.Summary(Key{Period: "2024-01", Unit: "공과대학"}).Budget.String())
	assert.Equal(t, "100", agg.Summary(Key{Period: "2024-02", Unit: "공과대학"}).Budget.String())
	assert.Equal(t, "100", agg.Summary(Key{Period: "2024-01", Unit: "인문대학"}).Budget.String())
}

func TestAggregatorEmptyProjectIDIsAToken(t *testing.T) {
	agg := NewAggregator()
	agg.AddAll([]Record{
		{Period: "2024-01", Unit: "공과대학", Budget: dec(t, "100")},
		{Period: "2024-01", Unit: "공과대학", Budget: dec(t, "200")},
	})

	s := agg.Summary(Key{Period: "2024-01", Unit: "공과대학"})
	assert.Equal(t, "100", s.Budget.String())
}

func TestAggregatorCustomDedupKey(t *testing.T) {
	agg := NewAggregator(WithDedupKey(func(r Record) string { return r.ExtraText }))
	agg.AddAll([]Record{
		{Period: "2024-01", Unit: "A", Budget: dec(t, "10"), ExtraText: "x"},
		{Period: "2024-01", Unit: "A", Budget: dec(t, "20"), ExtraText: "x"},
		{Period: "2024-01", Unit: "A", Budget: dec(t, "30"), ExtraText: "y"},
	})

	assert.Equal(t, "40", agg.Summary(Key{Period: "2024-01", Unit: "A"}).Budget.String())
}

func TestAggregatorLastWriteWinsExtras(t *testing.T) {
	one := dec(t, "1")
	two := dec(t, "2")
	agg := NewAggregator()
	agg.AddAll([]Record{
		{Period: "2024-01", Unit: "A", ExtraMetric1: &one, ExtraText: "first", ProjectID: "P1"},
		{Period: "2024-01", Unit: "A", ProjectID: "P2"},
		{Period: "2024-01", Unit: "A", ExtraMetric1: &two, ExtraText: "last", ProjectID: "P3"},
	})

	s := agg.Summary(Key{Period: "2024-01", Unit: "A"})
	require.NotNil(t, s.ExtraMetric1)
	// A record without a value must not clobber the previous one.
	assert.Equal(t, "2", s.ExtraMetric1.String())
	assert.Equal(t, "last", s.ExtraText)
}

func TestAggregatorSummariesOrdered(t *testing.T) {
	agg := NewAggregator()
	agg.AddAll([]Record{
		{Period: "2024-02", Unit: "B"},
		{Period: "2024-01", Unit: "B"},
		{Period: "2024-01", Unit: "A"},
	})

	out := agg.Summaries()
	require.Len(t, out, 3)
	assert.Equal(t, Key{"2024-01", "A"}, Key{out[0].Period, out[0].Unit})
	assert.Equal(t, Key{"2024-01", "B"}, Key{out[1].Period, out[1].Unit})
	assert.Equal(t, Key{"2024-02", "B"}, Key{out[2].Period, out[2].Unit})

	assert.Equal(t, []string{"2024-01", "2024-02"}, agg.Periods())
}
