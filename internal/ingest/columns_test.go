package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaResolve(t *testing.T) {
	schema := DefaultSchema()

	tests := []struct {
		name    string
		headers []string
		want    map[Field]string
	}{
		{
			name:    "exact korean synonyms",
			headers: []string{"기준년월", "부서명", "매출액", "예산", "지출액"},
			want: map[Field]string{
				FieldPeriod:      "기준년월",
				FieldUnit:        "부서명",
				FieldRevenue:     "매출액",
				FieldBudget:      "예산",
				FieldExpenditure: "지출액",
			},
		},
		{
			name:    "college beats department for unit",
			headers: []string{"단과대학", "학과", "매출"},
			want: map[Field]string{
				FieldUnit:    "단과대학",
				FieldRevenue: "매출",
			},
		},
		{
			name:    "period priority prefers reference over execution date",
			headers: []string{"집행일자", "기준년월"},
			want: map[Field]string{
				FieldPeriod: "기준년월",
			},
		},
		{
			name:    "english headers case insensitive",
			headers: []string{"Date", "Department", "Revenue"},
			want: map[Field]string{
				FieldPeriod:  "Date",
				FieldUnit:    "Department",
				FieldRevenue: "Revenue",
			},
		},
		{
			name:    "research project shape",
			headers: []string{"집행일자", "소속학과", "과제번호", "총연구비", "집행금액"},
			want: map[Field]string{
				FieldPeriod:      "집행일자",
				FieldUnit:        "소속학과",
				FieldProjectID:   "과제번호",
				FieldBudget:      "총연구비",
				FieldExpenditure: "집행금액",
			},
		},
		{
			name:    "keyword fallback for unknown period header",
			headers: []string{"데이터기준월분", "부서명"},
			want: map[Field]string{
				FieldPeriod: "데이터기준월분",
				FieldUnit:   "부서명",
			},
		},
		{
			name:    "keyword fallback for unit",
			headers: []string{"기준년월", "책임부서담당"},
			want: map[Field]string{
				FieldPeriod: "기준년월",
				FieldUnit:   "책임부서담당",
			},
		},
		{
			name:    "bom and whitespace cleaned",
			headers: []string{"\uFEFF기준년월", " 부서명 "},
			want: map[Field]string{
				FieldPeriod: "기준년월",
				FieldUnit:   "부서명",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := schema.Resolve(tt.headers)
			for field, header := range tt.want {
				assert.Equal(t, header, res.ByField[field], "field %s", field)
			}
			// At most one header claimed per field, both maps consistent.
			assert.Equal(t, len(res.ByField), len(res.ByHeader))
			for h, f := range res.ByHeader {
				assert.Equal(t, h, res.ByField[f])
			}
		})
	}
}

func TestSchemaResolveScaledMarkers(t *testing.T) {
	schema := DefaultSchema()
	res := schema.Resolve([]string{"평가년도", "단과대학", "연간 기술이전 수입액 (억원)"})

	require.Equal(t, "연간 기술이전 수입액 (억원)", res.ByField[FieldRevenue])
	assert.True(t, res.Scaled["연간 기술이전 수입액 (억원)"])
	assert.False(t, res.Scaled["평가년도"])
}

func TestSchemaResolveTableFirstColumnHeuristic(t *testing.T) {
	schema := DefaultSchema()
	table := &Table{
		Headers: []string{"구분", "부서명", "매출액"},
		Rows: []Row{
			{"구분": "202401", "부서명": "공과대학", "매출액": "100"},
		},
	}

	res := schema.ResolveTable(table)
	assert.Equal(t, "구분", res.ByField[FieldPeriod])
}

func TestSchemaResolveTableHeuristicRejectsText(t *testing.T) {
	schema := DefaultSchema()
	table := &Table{
		Headers: []string{"구분", "매출액"},
		Rows: []Row{
			{"구분": "합계", "매출액": "100"},
		},
	}

	res := schema.ResolveTable(table)
	_, ok := res.ByField[FieldPeriod]
	assert.False(t, ok)
}
