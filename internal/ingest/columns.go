package ingest

import (
	"strings"
)

// Field identifies one canonical field of the target schema.
type Field string

const (
	FieldPeriod       Field = "period"
	FieldUnit         Field = "organizational_unit"
	FieldUnitCode     Field = "unit_code"
	FieldRevenue      Field = "revenue"
	FieldBudget       Field = "budget"
	FieldExpenditure  Field = "expenditure"
	FieldPaperCount   Field = "paper_count"
	FieldPatentCount  Field = "patent_count"
	FieldProjectCount Field = "project_count"
	FieldExtraMetric1 Field = "extra_metric_1"
	FieldExtraMetric2 Field = "extra_metric_2"
	FieldExtraText    Field = "extra_text"
	FieldProjectID    Field = "project_identifier"
)

// HundredMillionScale is the fixed multiplier for metrics reported in the
// Korean hundred-million-won unit (억원).
const HundredMillionScale = 100_000_000

// Schema is the immutable resolution configuration: the synonym lookup
// table, per-field priority orders for conflicting headers, and the keyword
// sets used as a fallback when no header matches exactly.
type Schema struct {
	Synonyms map[string]Field
	// Priority lists, per field, of source headers preferred when several
	// present headers map to the same canonical field. Fields without an
	// entry resolve to the first matching header in column order.
	Priority map[Field][]string
	// ScaledMarkers are substrings of a header that flag its values as
	// expressed in hundred-million won.
	PeriodKeywords []string
	UnitKeywords   []string
	ScaledMarkers  []string
}

// Resolution maps a concrete file's headers onto the canonical schema.
// At most one raw header is claimed per canonical field; unclaimed headers
// are ignored downstream.
type Resolution struct {
	ByHeader map[string]Field
	ByField  map[Field]string
	// Scaled flags raw headers whose numeric values must be multiplied by
	// HundredMillionScale before accumulation.
	Scaled map[string]bool
	// Headers are the cleaned source headers in column order, kept for
	// diagnostics when resolution fails.
	Headers []string
}

// DefaultSchema returns the built-in synonym and keyword configuration.
// The table covers the Korean long-form, Korean short-form and English
// spellings observed across department KPI sheets, publication lists and
// research project execution exports.
func DefaultSchema() Schema {
	return Schema{
		Synonyms: map[string]Field{
			// period
			"기준년월":           FieldPeriod,
			"기준 년월":          FieldPeriod,
			"기준월":            FieldPeriod,
			"년월":             FieldPeriod,
			"연월":             FieldPeriod,
			"평가년도":           FieldPeriod,
			"평가연도":           FieldPeriod,
			"게재일":            FieldPeriod,
			"게재일자":           FieldPeriod,
			"집행일자":           FieldPeriod,
			"집행일":            FieldPeriod,
			"일자":             FieldPeriod,
			"날짜":             FieldPeriod,
			"reference_date": FieldPeriod,
			"date":           FieldPeriod,
			"year_month":     FieldPeriod,

			// organizational unit
			"단과대학":         FieldUnit,
			"학과":           FieldUnit,
			"소속학과":         FieldUnit,
			"소속부서":         FieldUnit,
			"부서명":          FieldUnit,
			"부서":           FieldUnit,
			"조직명":          FieldUnit,
			"팀명":           FieldUnit,
			"department":   FieldUnit,
			"college":      FieldUnit,
			"organization": FieldUnit,
			"unit":         FieldUnit,

			// unit code
			"부서코드":            FieldUnitCode,
			"조직코드":            FieldUnitCode,
			"학과코드":            FieldUnitCode,
			"department_code": FieldUnitCode,
			"unit_code":       FieldUnitCode,

			// revenue
			"매출액":              FieldRevenue,
			"매출":               FieldRevenue,
			"수입액":              FieldRevenue,
			"수입":               FieldRevenue,
			"기술이전 수입액":         FieldRevenue,
			"연간 기술이전 수입액 (억원)": FieldRevenue,
			"revenue":          FieldRevenue,
			"sales":            FieldRevenue,

			// budget
			"예산":           FieldBudget,
			"예산액":          FieldBudget,
			"총연구비":         FieldBudget,
			"연구비":          FieldBudget,
			"budget":       FieldBudget,
			"total_budget": FieldBudget,

			// expenditure
			"지출액":         FieldExpenditure,
			"지출":          FieldExpenditure,
			"집행금액":        FieldExpenditure,
			"집행액":         FieldExpenditure,
			"비용":          FieldExpenditure,
			"expenditure": FieldExpenditure,
			"spending":    FieldExpenditure,

			// research output counts
			"논문수":            FieldPaperCount,
			"논문 수":           FieldPaperCount,
			"논문":             FieldPaperCount,
			"게재논문수":          FieldPaperCount,
			"paper_count":    FieldPaperCount,
			"papers":         FieldPaperCount,
			"특허수":            FieldPatentCount,
			"특허 수":           FieldPatentCount,
			"특허":             FieldPatentCount,
			"출원특허수":          FieldPatentCount,
			"patent_count":   FieldPatentCount,
			"patents":        FieldPatentCount,
			"프로젝트수":          FieldProjectCount,
			"프로젝트":           FieldProjectCount,
			"과제수":            FieldProjectCount,
			"국제학술대회 개최 횟수":   FieldProjectCount,
			"project_count":  FieldProjectCount,
			"projects":       FieldProjectCount,

			// optional extras
			"추가지표1":          FieldExtraMetric1,
			"졸업생 취업률 (%)":    FieldExtraMetric1,
			"취업률":            FieldExtraMetric1,
			"extra_metric_1": FieldExtraMetric1,
			"추가지표2":          FieldExtraMetric2,
			"전임교원 수 (명)":     FieldExtraMetric2,
			"전임교원수":          FieldExtraMetric2,
			"extra_metric_2": FieldExtraMetric2,
			"비고":             FieldExtraText,
			"메모":             FieldExtraText,
			"extra_text":     FieldExtraText,
			"remarks":        FieldExtraText,

			// project identity, used only for budget dedup
			"과제번호":       FieldProjectID,
			"과제 번호":      FieldProjectID,
			"과제id":       FieldProjectID,
			"project_id": FieldProjectID,
			"project_no": FieldProjectID,
		},
		Priority: map[Field][]string{
			FieldUnit:   {"단과대학", "학과", "소속학과", "부서명", "부서"},
			FieldPeriod: {"기준년월", "기준 년월", "reference_date", "평가년도", "평가연도", "게재일", "게재일자", "집행일자", "집행일", "일자", "날짜", "date"},
		},
		PeriodKeywords: []string{"년월", "연도", "년도", "일자", "날짜", "기준", "date", "year", "month"},
		UnitKeywords:   []string{"대학", "학과", "부서", "조직", "팀", "department", "college", "unit"},
		ScaledMarkers:  []string{"억원", "억 원"},
	}
}

// Resolve maps raw headers to canonical fields using exact synonym matches,
// per-field priority conflict resolution and keyword fallback. It never
// fails; an unresolved period column is reported by the engine, not here.
func (s Schema) Resolve(headers []string) Resolution {
	res := Resolution{
		ByHeader: make(map[string]Field),
		ByField:  make(map[Field]string),
		Scaled:   make(map[string]bool),
		Headers:  make([]string, 0, len(headers)),
	}

	// Exact matches, collected per field in column order.
	candidates := make(map[Field][]string)
	for _, raw := range headers {
		h := CleanHeader(raw)
		if h == "" {
			continue
		}
		res.Headers = append(res.Headers, h)
		if f, ok := s.Synonyms[h]; ok {
			candidates[f] = append(candidates[f], h)
		} else if f, ok := s.Synonyms[strings.ToLower(h)]; ok {
			candidates[f] = append(candidates[f], h)
		}
	}

	for field, headers := range candidates {
		res.claim(field, s.pick(field, headers))
	}

	// Keyword fallback when no header resolved exactly.
	if _, ok := res.ByField[FieldPeriod]; !ok {
		if h := res.firstUnclaimedByKeyword(s.PeriodKeywords); h != "" {
			res.claim(FieldPeriod, h)
		}
	}
	if _, ok := res.ByField[FieldUnit]; !ok {
		if h := res.firstUnclaimedByKeyword(s.UnitKeywords); h != "" {
			res.claim(FieldUnit, h)
		}
	}

	// Flag hundred-million-won columns.
	for h, f := range res.ByHeader {
		if f != FieldRevenue && f != FieldBudget && f != FieldExpenditure &&
			f != FieldExtraMetric1 && f != FieldExtraMetric2 {
			continue
		}
		for _, marker := range s.ScaledMarkers {
			if strings.Contains(h, marker) {
				res.Scaled[h] = true
				break
			}
		}
	}

	return res
}

// ResolveTable resolves a table's headers and, as a last resort for the
// period field, inspects the first non-null value of the first column: if
// it looks like a year or year-month numeral the column is bound to period.
func (s Schema) ResolveTable(t *Table) Resolution {
	res := s.Resolve(t.Headers)
	if _, ok := res.ByField[FieldPeriod]; ok || len(res.Headers) == 0 {
		return res
	}

	first := res.Headers[0]
	if _, claimed := res.ByHeader[first]; claimed {
		return res
	}
	for _, row := range t.Rows {
		v, ok := row[first]
		if !ok || v == nil {
			continue
		}
		sv := strings.TrimSpace(cellString(v))
		if sv == "" {
			continue
		}
		if yearOnlyRe.MatchString(sv) || sixDigitRe.MatchString(sv) || yearMonthRe.MatchString(sv) {
			res.claim(FieldPeriod, first)
		}
		break
	}
	return res
}

// pick applies the field's priority order, falling back to column order.
func (s Schema) pick(field Field, headers []string) string {
	if len(headers) == 1 {
		return headers[0]
	}
	for _, preferred := range s.Priority[field] {
		for _, h := range headers {
			if h == preferred {
				return h
			}
		}
	}
	return headers[0]
}

func (r *Resolution) claim(field Field, header string) {
	if header == "" {
		return
	}
	if _, taken := r.ByField[field]; taken {
		return
	}
	if _, taken := r.ByHeader[header]; taken {
		return
	}
	r.ByField[field] = header
	r.ByHeader[header] = field
}

func (r *Resolution) firstUnclaimedByKeyword(keywords []string) string {
	for _, h := range r.Headers {
		if _, claimed := r.ByHeader[h]; claimed {
			continue
		}
		lower := strings.ToLower(h)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return h
			}
		}
	}
	return ""
}

// CleanHeader trims surrounding whitespace and any UTF-8 byte-order-mark
// artifact from a source header.
func CleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
}
