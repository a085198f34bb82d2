// Command loader bulk-ingests spreadsheet exports from a directory into the
// performance database. All files are folded into one aggregation pass so
// that metrics for the same period and unit coming from different exports
// end up in a single summary row.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"perfhub/internal/config"
	"perfhub/internal/infrastructure"
	"perfhub/internal/ingest"
	"perfhub/internal/store"
	"perfhub/internal/validation"
)

func main() {
	inDir := flag.String("dir", "sample_data", "input directory with .csv/.xlsx exports")
	dbPath := flag.String("db", "", "database path (defaults to the configured storage path)")
	clear := flag.Bool("clear", false, "delete all stored records before loading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	logger := infrastructure.MustInitializeLogger(cfg.Logging)

	if *dbPath == "" {
		*dbPath = cfg.Storage.DatabasePath
	}

	ctx := infrastructure.EnsureTraceID(context.Background())
	if err := run(ctx, *inDir, *dbPath, *clear, logger); err != nil {
		logger.Error("Load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dir, dbPath string, clear bool, logger *slog.Logger) error {
	fv := validation.NewFileValidator(logger)
	if err := fv.ValidateInputDirectory(dir, "*.csv"); err != nil {
		return err
	}

	files, err := listInputFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .csv or .xlsx files found in %s", dir)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if clear {
		logger.Info("Clearing existing records")
		if err := st.Clear(ctx); err != nil {
			return err
		}
	}

	schema := ingest.DefaultSchema()
	agg := ingest.NewAggregator()
	periodSet := map[string]struct{}{}

	for _, path := range files {
		records, warnings, err := loadFile(schema, path)
		if err != nil {
			logger.Error("Skipping file",
				slog.String("file", path),
				slog.String("error", err.Error()))
			if _, auditErr := st.RecordUpload(ctx, store.UploadLog{
				Filename:     filepath.Base(path),
				Status:       store.UploadStatusFailed,
				ErrorMessage: err.Error(),
			}); auditErr != nil {
				logger.Error("Failed to record audit entry", slog.String("error", auditErr.Error()))
			}
			continue
		}

		filePeriods := map[string]struct{}{}
		for _, rec := range records {
			filePeriods[rec.Period] = struct{}{}
			periodSet[rec.Period] = struct{}{}
			agg.Add(rec)
		}

		if _, err := st.RecordUpload(ctx, store.UploadLog{
			Period:   joinSorted(filePeriods),
			Filename: filepath.Base(path),
			RowCount: len(records),
			Status:   store.UploadStatusSuccess,
		}); err != nil {
			logger.Error("Failed to record audit entry", slog.String("error", err.Error()))
		}

		logger.Info("Loaded file",
			slog.String("file", filepath.Base(path)),
			slog.Int("records", len(records)),
			slog.Int("warnings", len(warnings)))
		for _, w := range warnings {
			logger.Warn("Row skipped", slog.String("file", filepath.Base(path)), slog.String("detail", w))
		}
	}

	periods := make([]string, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	summaries := agg.Summaries()
	if err := st.ReplacePeriods(ctx, periods, summaries); err != nil {
		return err
	}

	logger.Info("Load complete",
		slog.Int("files", len(files)),
		slog.Int("summaries", len(summaries)),
		slog.Any("periods", periods))
	return nil
}

// loadFile runs the ingestion pipeline on one export and returns the
// transformed records.
func loadFile(schema ingest.Schema, path string) ([]ingest.Record, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	table, err := ingest.Decode(data, path)
	if err != nil {
		return nil, nil, err
	}

	res := schema.ResolveTable(table)
	if _, ok := res.ByField[ingest.FieldPeriod]; !ok {
		return nil, nil, fmt.Errorf("%w (headers: %s)",
			ingest.ErrNoPeriodColumn, strings.Join(res.Headers, ", "))
	}

	records, warnings := ingest.NewTransformer(res).TransformAll(table.Rows)
	if len(records) == 0 {
		return nil, nil, ingest.ErrNoValidRows
	}

	// Publication-style exports list one paper per row and carry no count
	// column at all. Count rows directly in that case.
	if !hasMetricColumn(res) {
		for i := range records {
			records[i].PaperCount = 1
		}
	}

	return records, warnings, nil
}

// hasMetricColumn reports whether the resolution claimed any numeric metric.
func hasMetricColumn(res ingest.Resolution) bool {
	for _, f := range []ingest.Field{
		ingest.FieldRevenue,
		ingest.FieldBudget,
		ingest.FieldExpenditure,
		ingest.FieldPaperCount,
		ingest.FieldPatentCount,
		ingest.FieldProjectCount,
		ingest.FieldExtraMetric1,
		ingest.FieldExtraMetric2,
	} {
		if _, ok := res.ByField[f]; ok {
			return true
		}
	}
	return false
}

func listInputFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.csv", "*.xlsx", "*.xls"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func joinSorted(set map[string]struct{}) string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
