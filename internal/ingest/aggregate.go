package ingest

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Key identifies one aggregation bucket.
type Key struct {
	Period string
	Unit   string
}

// Summary is the accumulated metrics for one (period, unit) key. Revenue,
// expenditure and the count fields are plain sums; budget is deduplicated
// per project; the extra fields carry the last non-null value seen.
type Summary struct {
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
}

// Aggregator folds canonical records into one Summary per (period, unit).
// Each ingestion run owns its own Aggregator; it is not safe for concurrent
// use.
//
// Budget deduplication: a (key, dedup token) pair contributes budget at most
// once, first seen wins. Subsequent records for the same token still add
// their expenditure, modeling several execution lines against one funded
// project. The token defaults to the record's project identifier; an empty
// identifier is itself a valid token.
type Aggregator struct {
	summaries map[Key]*Summary
	seen      map[Key]map[string]struct{}
	dedupKey  func(Record) string
}

// An Option configures an Aggregator.
type Option func(*Aggregator)

// WithDedupKey overrides the budget deduplication token function.
func WithDedupKey(fn func(Record) string) Option {
	return func(a *Aggregator) { a.dedupKey = fn }
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		summaries: make(map[Key]*Summary),
		seen:      make(map[Key]map[string]struct{}),
		dedupKey:  func(r Record) string { return r.ProjectID },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add folds one record into its (period, unit) bucket.
func (a *Aggregator) Add(rec Record) {
	key := Key{Period: rec.Period, Unit: rec.Unit}
	s, ok := a.summaries[key]
	if !ok {
		s = &Summary{Period: rec.Period, Unit: rec.Unit}
		a.summaries[key] = s
		a.seen[key] = make(map[string]struct{})
	}

	s.Revenue = s.Revenue.Add(rec.Revenue)
	s.Expenditure = s.Expenditure.Add(rec.Expenditure)
	s.PaperCount += rec.PaperCount
	s.PatentCount += rec.PatentCount
	s.ProjectCount += rec.ProjectCount

	token := a.dedupKey(rec)
	if _, dup := a.seen[key][token]; !dup {
		a.seen[key][token] = struct{}{}
		s.Budget = s.Budget.Add(rec.Budget)
	}

	if rec.UnitCode != "" {
		s.UnitCode = rec.UnitCode
	}
	if rec.ExtraMetric1 != nil {
		v := *rec.ExtraMetric1
		s.ExtraMetric1 = &v
	}
	if rec.ExtraMetric2 != nil {
		v := *rec.ExtraMetric2
		s.ExtraMetric2 = &v
	}
	if rec.ExtraText != "" {
		s.ExtraText = rec.ExtraText
	}
}

// AddAll folds a record batch in order.
func (a *Aggregator) AddAll(records []Record) {
	for _, rec := range records {
		a.Add(rec)
	}
}

// Len reports the number of distinct (period, unit) buckets.
func (a *Aggregator) Len() int { return len(a.summaries) }

// Summary returns the bucket for key, or nil when no record touched it.
func (a *Aggregator) Summary(key Key) *Summary { return a.summaries[key] }

// Summaries returns all buckets ordered by period then unit, so output and
// persistence order are deterministic regardless of map iteration.
func (a *Aggregator) Summaries() []Summary {
	out := make([]Summary, 0, len(a.summaries))
	for _, s := range a.summaries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].Unit < out[j].Unit
	})
	return out
}

// Periods returns the distinct periods observed, sorted ascending. The
// storage collaborator deletes exactly these periods before re-inserting.
func (a *Aggregator) Periods() []string {
	set := make(map[string]struct{})
	for key := range a.summaries {
		set[key.Period] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
