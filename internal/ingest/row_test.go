package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveHeaders(t *testing.T, headers ...string) Resolution {
	t.Helper()
	return DefaultSchema().Resolve(headers)
}

func TestTransformerTransform(t *testing.T) {
	res := resolveHeaders(t, "기준년월", "부서명", "매출액", "논문수", "비고", "과제번호")
	tr := NewTransformer(res)

	rec, err := tr.Transform(Row{
		"기준년월": "2024.05",
		"부서명":  " 공과대학 ",
		"매출액":  "1,500,000",
		"논문수":  "12.0",
		"비고":   "상반기",
		"과제번호": "P1",
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "2024-05", rec.Period)
	assert.Equal(t, "공과대학", rec.Unit)
	assert.Equal(t, "1500000", rec.Revenue.String())
	assert.Equal(t, int64(12), rec.PaperCount)
	assert.Equal(t, "상반기", rec.ExtraText)
	assert.Equal(t, "P1", rec.ProjectID)
	assert.Nil(t, rec.ExtraMetric1)
	assert.Nil(t, rec.ExtraMetric2)
}

func TestTransformerSkipsMissingPeriod(t *testing.T) {
	res := resolveHeaders(t, "기준년월", "부서명")
	tr := NewTransformer(res)

	rec, err := tr.Transform(Row{"기준년월": "", "부서명": "공과대학"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestTransformerDefaultsForAbsentFields(t *testing.T) {
	res := resolveHeaders(t, "기준년월")
	tr := NewTransformer(res)

	rec, err := tr.Transform(Row{"기준년월": "2024-01"})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "", rec.Unit)
	assert.True(t, rec.Revenue.IsZero())
	assert.True(t, rec.Budget.IsZero())
	assert.Equal(t, int64(0), rec.PaperCount)
	assert.Nil(t, rec.ExtraMetric1)
}

func TestTransformerOptionalMetricZeroDistinctFromAbsent(t *testing.T) {
	res := resolveHeaders(t, "기준년월", "추가지표1")
	tr := NewTransformer(res)

	withZero, err := tr.Transform(Row{"기준년월": "2024-01", "추가지표1": "0"})
	require.NoError(t, err)
	require.NotNil(t, withZero.ExtraMetric1)
	assert.True(t, withZero.ExtraMetric1.IsZero())

	absent, err := tr.Transform(Row{"기준년월": "2024-01", "추가지표1": ""})
	require.NoError(t, err)
	assert.Nil(t, absent.ExtraMetric1)
}

func TestTransformerHundredMillionScale(t *testing.T) {
	res := resolveHeaders(t, "평가년도", "단과대학", "연간 기술이전 수입액 (억원)")
	tr := NewTransformer(res)

	rec, err := tr.Transform(Row{
		"평가년도":             "2023",
		"단과대학":             "공과대학",
		"연간 기술이전 수입액 (억원)": "15.5",
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "2023-01", rec.Period)
	assert.Equal(t, "1550000000", rec.Revenue.String())
}

func TestTransformAllDiagnostics(t *testing.T) {
	res := resolveHeaders(t, "기준년월", "부서명", "매출액")
	tr := NewTransformer(res)

	records, diags := tr.TransformAll([]Row{
		{"기준년월": "2024-01", "부서명": "A", "매출액": "100"},
		{"기준년월": nil, "부서명": "B", "매출액": "200"},
		{"기준년월": "2024-02", "부서명": "C", "매출액": "300"},
	})

	assert.Len(t, records, 2)
	require.Len(t, diags, 1)
	// Header is row 1, so the second data row reports as row 3.
	assert.Contains(t, diags[0], "row 3")
}
