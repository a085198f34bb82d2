package services

import (
	"context"
	"log/slog"

	"perfhub/internal/store"
)

// DataService serves stored records, dashboard summaries and the upload
// audit log.
type DataService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewDataService creates a new data service.
func NewDataService(st *store.Store, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		store:  st,
		logger: logger.With(slog.String("component", "data_service")),
	}
}

// Records returns stored summaries, optionally filtered by exact period and
// unit substring.
func (s *DataService) Records(ctx context.Context, period, unit string) ([]store.PersistedRecord, error) {
	records, err := s.store.Records(ctx, store.RecordFilter{Period: period, Unit: unit})
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "records queried",
		slog.String("period", period),
		slog.String("unit", unit),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// Summary returns the dashboard aggregates over all stored records.
func (s *DataService) Summary(ctx context.Context) (*store.DashboardSummary, error) {
	return s.store.Summary(ctx)
}

// UploadLogs returns audit entries, newest first.
func (s *DataService) UploadLogs(ctx context.Context, limit int) ([]store.UploadLog, error) {
	return s.store.UploadLogs(ctx, limit)
}
