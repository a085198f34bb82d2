package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one source row mapped onto the canonical schema. Period is never
// empty in a Record handed to the aggregator; the optional extra metrics are
// pointers so that an absent value stays distinguishable from an explicit
// zero.
type Record struct {
	Period       string
	Unit         string
	UnitCode     string
	Revenue      decimal.Decimal
	Budget       decimal.Decimal
	Expenditure  decimal.Decimal
	PaperCount   int64
	PatentCount  int64
	ProjectCount int64
	ExtraMetric1 *decimal.Decimal
	ExtraMetric2 *decimal.Decimal
	ExtraText    string
	ProjectID    string
}

// Transformer turns raw rows into canonical records under one resolved
// column mapping. It applies the hundred-million-won scale factor to flagged
// source columns; the aggregator receives already-scaled values.
type Transformer struct {
	res   Resolution
	scale decimal.Decimal
}

func NewTransformer(res Resolution) *Transformer {
	return &Transformer{res: res, scale: decimal.NewFromInt(HundredMillionScale)}
}

// Transform maps one raw row to a Record. A row without a resolvable period
// returns (nil, nil): skipped, not an error. Coercion is total, so the only
// error path is a malformed row value surfaced by a cell accessor.
func (t *Transformer) Transform(row Row) (*Record, error) {
	period := NormalizePeriod(t.cell(row, FieldPeriod))
	if period == "" {
		return nil, nil
	}

	rec := &Record{
		Period:       period,
		Unit:         strings.TrimSpace(cellString(t.cell(row, FieldUnit))),
		UnitCode:     strings.TrimSpace(cellString(t.cell(row, FieldUnitCode))),
		Revenue:      t.money(row, FieldRevenue),
		Budget:       t.money(row, FieldBudget),
		Expenditure:  t.money(row, FieldExpenditure),
		PaperCount:   ToInt(t.cell(row, FieldPaperCount), 0),
		PatentCount:  ToInt(t.cell(row, FieldPatentCount), 0),
		ProjectCount: ToInt(t.cell(row, FieldProjectCount), 0),
		ExtraText:    strings.TrimSpace(cellString(t.cell(row, FieldExtraText))),
		ProjectID:    strings.TrimSpace(cellString(t.cell(row, FieldProjectID))),
	}
	rec.ExtraMetric1 = t.optional(row, FieldExtraMetric1)
	rec.ExtraMetric2 = t.optional(row, FieldExtraMetric2)
	return rec, nil
}

// TransformAll maps a row batch, skipping period-less rows with a non-fatal
// diagnostic. Diagnostics are positional: the header occupies row 1, so the
// first data row reports as row 2.
func (t *Transformer) TransformAll(rows []Row) ([]Record, []string) {
	records := make([]Record, 0, len(rows))
	var diags []string
	for i, row := range rows {
		rec, err := t.Transform(row)
		if err != nil {
			diags = append(diags, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		if rec == nil {
			diags = append(diags, fmt.Sprintf("row %d: missing period, skipped", i+2))
			continue
		}
		records = append(records, *rec)
	}
	return records, diags
}

func (t *Transformer) cell(row Row, field Field) any {
	header, ok := t.res.ByField[field]
	if !ok {
		return nil
	}
	return row[header]
}

func (t *Transformer) money(row Row, field Field) decimal.Decimal {
	d := ToDecimal(t.cell(row, field), 0)
	if t.scaled(field) {
		d = d.Mul(t.scale)
	}
	return d
}

// optional returns nil when the cell is absent or null-equivalent, so a
// stored zero survives as a zero rather than vanishing.
func (t *Transformer) optional(row Row, field Field) *decimal.Decimal {
	v := t.cell(row, field)
	if isNullCell(v) {
		return nil
	}
	d := ToDecimal(v, 0)
	if t.scaled(field) {
		d = d.Mul(t.scale)
	}
	return &d
}

func (t *Transformer) scaled(field Field) bool {
	header, ok := t.res.ByField[field]
	return ok && t.res.Scaled[header]
}

// cellString renders any cell value as text. Float-typed cells from
// spreadsheet decoding print without exponent notation.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return ""
		}
		return strconv.FormatFloat(c, 'f', -1, 64)
	case time.Time:
		return c.Format("2006-01-02")
	default:
		return fmt.Sprint(c)
	}
}

func isNullCell(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(c) == ""
	case float64:
		return math.IsNaN(c)
	default:
		return false
	}
}
