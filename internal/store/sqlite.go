// Package store persists aggregated performance summaries and upload audit
// entries in SQLite.
//
// Persistence follows a replace-by-period discipline: ingesting data for a
// period fully supersedes prior data for that exact period, as one
// all-or-nothing transaction per run. Decimal metrics are stored as TEXT to
// preserve exactness; SQLite runs in WAL mode for concurrent readers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"perfhub/internal/ingest"
)

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS performance_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period TEXT NOT NULL,
		unit TEXT NOT NULL,
		unit_code TEXT NOT NULL DEFAULT '',
		revenue TEXT NOT NULL DEFAULT '0',
		budget TEXT NOT NULL DEFAULT '0',
		expenditure TEXT NOT NULL DEFAULT '0',
		paper_count INTEGER NOT NULL DEFAULT 0,
		patent_count INTEGER NOT NULL DEFAULT 0,
		project_count INTEGER NOT NULL DEFAULT 0,
		extra_metric_1 TEXT,
		extra_metric_2 TEXT,
		extra_text TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_period ON performance_records(period);
	CREATE INDEX IF NOT EXISTS idx_records_unit ON performance_records(unit);
	CREATE INDEX IF NOT EXISTS idx_records_period_unit ON performance_records(period, unit);

	CREATE TABLE IF NOT EXISTS upload_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_uploads_created ON upload_logs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// PersistedRecord is one stored (period, unit) summary row.
type PersistedRecord struct {
	ID           int64            `json:"id"`
	Period       string           `json:"period"`
	Unit         string           `json:"unit"`
	UnitCode     string           `json:"unit_code,omitempty"`
	Revenue      decimal.Decimal  `json:"revenue"`
	Budget       decimal.Decimal  `json:"budget"`
	Expenditure  decimal.Decimal  `json:"expenditure"`
	PaperCount   int64            `json:"paper_count"`
	PatentCount  int64            `json:"patent_count"`
	ProjectCount int64            `json:"project_count"`
	ExtraMetric1 *decimal.Decimal `json:"extra_metric_1,omitempty"`
	ExtraMetric2 *decimal.Decimal `json:"extra_metric_2,omitempty"`
	ExtraText    string           `json:"extra_text,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// UploadLog is one audit entry for an ingestion attempt.
type UploadLog struct {
	ID           int64     `json:"id"`
	Period       string    `json:"period,omitempty"`
	Filename     string    `json:"filename"`
	RowCount     int       `json:"row_count"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	UploadStatusSuccess = "success"
	UploadStatusFailed  = "failed"
)

// ReplacePeriods deletes every stored record for the observed periods and
// inserts the new summaries, as a single transaction. A failure mid-way
// leaves prior data untouched.
func (s *Store) ReplacePeriods(ctx context.Context, periods []string, summaries []ingest.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, period := range periods {
		if _, err := tx.ExecContext(ctx, `DELETE FROM performance_records WHERE period = ?`, period); err != nil {
			return fmt.Errorf("clearing period %s: %w", period, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO performance_records
			(period, unit, unit_code, revenue, budget, expenditure,
			 paper_count, patent_count, project_count,
			 extra_metric_1, extra_metric_2, extra_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, sum := range summaries {
		_, err := stmt.ExecContext(ctx,
			sum.Period, sum.Unit, sum.UnitCode,
			sum.Revenue.String(), sum.Budget.String(), sum.Expenditure.String(),
			sum.PaperCount, sum.PatentCount, sum.ProjectCount,
			nullableDecimal(sum.ExtraMetric1), nullableDecimal(sum.ExtraMetric2),
			sum.ExtraText, now,
		)
		if err != nil {
			return fmt.Errorf("inserting %s/%s: %w", sum.Period, sum.Unit, err)
		}
	}

	return tx.Commit()
}

// RecordUpload appends one audit entry and returns its id.
func (s *Store) RecordUpload(ctx context.Context, log UploadLog) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_logs (period, filename, row_count, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		log.Period, log.Filename, log.RowCount, log.Status, log.ErrorMessage,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("recording upload: %w", err)
	}
	return res.LastInsertId()
}

// RecordFilter narrows Records queries. Unit matches as a substring.
type RecordFilter struct {
	Period string
	Unit   string
}

// Records returns stored summaries matching the filter, ordered by period
// then unit.
func (s *Store) Records(ctx context.Context, f RecordFilter) ([]PersistedRecord, error) {
	query := `
		SELECT id, period, unit, unit_code, revenue, budget, expenditure,
		       paper_count, patent_count, project_count,
		       extra_metric_1, extra_metric_2, extra_text, created_at
		FROM performance_records`
	var conds []string
	var args []any
	if f.Period != "" {
		conds = append(conds, "period = ?")
		args = append(args, f.Period)
	}
	if f.Unit != "" {
		conds = append(conds, "unit LIKE ?")
		args = append(args, "%"+f.Unit+"%")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY period, unit"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []PersistedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UploadLogs returns audit entries, newest first, up to limit (0 = all).
func (s *Store) UploadLogs(ctx context.Context, limit int) ([]UploadLog, error) {
	query := `
		SELECT id, period, filename, row_count, status, error_message, created_at
		FROM upload_logs ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying upload logs: %w", err)
	}
	defer rows.Close()

	var out []UploadLog
	for rows.Next() {
		var l UploadLog
		var created string
		if err := rows.Scan(&l.ID, &l.Period, &l.Filename, &l.RowCount, &l.Status, &l.ErrorMessage, &created); err != nil {
			return nil, fmt.Errorf("scanning upload log: %w", err)
		}
		l.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, l)
	}
	return out, rows.Err()
}

// TrendPoint is one month of the dashboard trend.
type TrendPoint struct {
	Period      string          `json:"period"`
	Revenue     decimal.Decimal `json:"revenue"`
	Expenditure decimal.Decimal `json:"expenditure"`
}

// UnitRank is one row of the per-unit revenue ranking.
type UnitRank struct {
	Unit       string          `json:"unit"`
	Revenue    decimal.Decimal `json:"revenue"`
	PaperCount int64           `json:"paper_count"`
}

// DashboardSummary aggregates the whole store for the summary endpoint.
type DashboardSummary struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalBudget      decimal.Decimal `json:"total_budget"`
	TotalExpenditure decimal.Decimal `json:"total_expenditure"`
	TotalPapers      int64           `json:"total_papers"`
	TotalPatents     int64           `json:"total_patents"`
	TotalProjects    int64           `json:"total_projects"`
	MonthlyTrend     []TrendPoint    `json:"monthly_trend"`
	UnitRanking      []UnitRank      `json:"unit_ranking"`
	Periods          []string        `json:"periods"`
	RecordCount      int             `json:"record_count"`
}

// Summary folds all stored records into dashboard aggregates. Totals are
// computed in Go with exact decimals; SQLite's float SUM would reintroduce
// the drift the TEXT columns exist to avoid.
func (s *Store) Summary(ctx context.Context) (*DashboardSummary, error) {
	records, err := s.Records(ctx, RecordFilter{})
	if err != nil {
		return nil, err
	}

	sum := &DashboardSummary{RecordCount: len(records)}
	trend := make(map[string]*TrendPoint)
	ranking := make(map[string]*UnitRank)
	periodSet := make(map[string]struct{})

	for _, rec := range records {
		sum.TotalRevenue = sum.TotalRevenue.Add(rec.Revenue)
		sum.TotalBudget = sum.TotalBudget.Add(rec.Budget)
		sum.TotalExpenditure = sum.TotalExpenditure.Add(rec.Expenditure)
		sum.TotalPapers += rec.PaperCount
		sum.TotalPatents += rec.PatentCount
		sum.TotalProjects += rec.ProjectCount
		periodSet[rec.Period] = struct{}{}

		tp, ok := trend[rec.Period]
		if !ok {
			tp = &TrendPoint{Period: rec.Period}
			trend[rec.Period] = tp
		}
		tp.Revenue = tp.Revenue.Add(rec.Revenue)
		tp.Expenditure = tp.Expenditure.Add(rec.Expenditure)

		ur, ok := ranking[rec.Unit]
		if !ok {
			ur = &UnitRank{Unit: rec.Unit}
			ranking[rec.Unit] = ur
		}
		ur.Revenue = ur.Revenue.Add(rec.Revenue)
		ur.PaperCount += rec.PaperCount
	}

	for p := range periodSet {
		sum.Periods = append(sum.Periods, p)
	}
	sort.Strings(sum.Periods)

	for _, tp := range trend {
		sum.MonthlyTrend = append(sum.MonthlyTrend, *tp)
	}
	sort.Slice(sum.MonthlyTrend, func(i, j int) bool {
		return sum.MonthlyTrend[i].Period < sum.MonthlyTrend[j].Period
	})

	for _, ur := range ranking {
		sum.UnitRanking = append(sum.UnitRanking, *ur)
	}
	sort.Slice(sum.UnitRanking, func(i, j int) bool {
		if !sum.UnitRanking[i].Revenue.Equal(sum.UnitRanking[j].Revenue) {
			return sum.UnitRanking[i].Revenue.GreaterThan(sum.UnitRanking[j].Revenue)
		}
		return sum.UnitRanking[i].Unit < sum.UnitRanking[j].Unit
	})
	if len(sum.UnitRanking) > 10 {
		sum.UnitRanking = sum.UnitRanking[:10]
	}

	return sum, nil
}

// Clear removes every stored record. Audit entries are kept.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM performance_records`)
	return err
}

func scanRecord(rows *sql.Rows) (PersistedRecord, error) {
	var rec PersistedRecord
	var revenue, budget, expenditure, created string
	var extra1, extra2 sql.NullString
	err := rows.Scan(&rec.ID, &rec.Period, &rec.Unit, &rec.UnitCode,
		&revenue, &budget, &expenditure,
		&rec.PaperCount, &rec.PatentCount, &rec.ProjectCount,
		&extra1, &extra2, &rec.ExtraText, &created)
	if err != nil {
		return rec, fmt.Errorf("scanning record: %w", err)
	}

	if rec.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return rec, fmt.Errorf("parsing revenue %q: %w", revenue, err)
	}
	if rec.Budget, err = decimal.NewFromString(budget); err != nil {
		return rec, fmt.Errorf("parsing budget %q: %w", budget, err)
	}
	if rec.Expenditure, err = decimal.NewFromString(expenditure); err != nil {
		return rec, fmt.Errorf("parsing expenditure %q: %w", expenditure, err)
	}
	if rec.ExtraMetric1, err = parseNullableDecimal(extra1); err != nil {
		return rec, err
	}
	if rec.ExtraMetric2, err = parseNullableDecimal(extra2); err != nil {
		return rec, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return rec, nil
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullableDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing stored decimal %q: %w", ns.String, err)
	}
	return &d, nil
}
