package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrNoPeriodColumn reports that no resolution strategy bound a period
	// column. The wrapping error carries the headers actually found.
	ErrNoPeriodColumn = errors.New("no period column found")
	// ErrNoValidRows reports a structurally valid file in which every row
	// was skipped during transformation.
	ErrNoValidRows = errors.New("no valid rows in file")
)

// Result is the outcome of one successful ingestion run. Warnings are
// non-fatal row diagnostics; callers surface them alongside the summaries.
type Result struct {
	Records   []Record
	Summaries []Summary
	Periods   []string
	Warnings  []string
	RowCount  int
}

// Engine runs the full ingestion pipeline for a single upload. It holds no
// state across runs; one Engine value can serve concurrent callers because
// each run owns its own aggregation scope.
type Engine struct {
	schema Schema
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{schema: DefaultSchema(), logger: logger}
}

// Ingest decodes, resolves, transforms and aggregates one file. Fatal
// failures (decode, schema, empty result) return an error and no partial
// result; row-level failures are collected as warnings.
func (e *Engine) Ingest(ctx context.Context, data []byte, filename string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := Decode(data, filename)
	if err != nil {
		return nil, err
	}

	res := e.schema.ResolveTable(table)
	if _, ok := res.ByField[FieldPeriod]; !ok {
		return nil, fmt.Errorf("%w (headers: %s)", ErrNoPeriodColumn, strings.Join(res.Headers, ", "))
	}

	records, warnings := NewTransformer(res).TransformAll(table.Rows)
	if len(records) == 0 {
		return nil, ErrNoValidRows
	}

	agg := NewAggregator()
	agg.AddAll(records)

	e.logger.InfoContext(ctx, "ingestion complete",
		slog.String("filename", filename),
		slog.Int("rows", len(table.Rows)),
		slog.Int("records", len(records)),
		slog.Int("summaries", agg.Len()),
		slog.Int("warnings", len(warnings)),
	)

	return &Result{
		Records:   records,
		Summaries: agg.Summaries(),
		Periods:   agg.Periods(),
		Warnings:  warnings,
		RowCount:  len(table.Rows),
	}, nil
}
