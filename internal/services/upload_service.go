// Package services orchestrates the ingestion engine, storage and
// validation behind the HTTP handlers and the batch loader.
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"perfhub/internal/config"
	"perfhub/internal/infrastructure"
	"perfhub/internal/ingest"
	"perfhub/internal/store"
	"perfhub/internal/validation"
)

// UploadResult is the outcome of one processed upload.
type UploadResult struct {
	CreatedCount int      `json:"created_count"`
	RowCount     int      `json:"row_count"`
	Periods      []string `json:"periods"`
	Warnings     []string `json:"warnings,omitempty"`
	UploadLogID  int64    `json:"upload_log_id"`
}

// UploadService runs the full upload flow: validate, ingest, persist
// replace-by-period, and record an audit entry for every attempt.
type UploadService struct {
	engine    *ingest.Engine
	store     *store.Store
	validator *validation.UploadValidator
	metrics   *infrastructure.Metrics
	logger    *slog.Logger
}

// NewUploadService creates an upload service.
func NewUploadService(cfg *config.Config, st *store.Store, metrics *infrastructure.Metrics, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		engine:    ingest.NewEngine(logger),
		store:     st,
		validator: validation.NewUploadValidator(cfg, logger),
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "upload_service")),
	}
}

// ProcessUpload ingests one uploaded file. Fatal ingestion failures are
// recorded in the audit log and returned; nothing is persisted for them.
func (s *UploadService) ProcessUpload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	start := time.Now()

	if err := s.validator.ValidateUpload(filename, int64(len(data))); err != nil {
		s.auditFailure(ctx, filename, 0, err)
		s.observe("rejected", 0, 0, 0, start)
		return nil, err
	}

	res, err := s.engine.Ingest(ctx, data, filename)
	if err != nil {
		s.auditFailure(ctx, filename, 0, err)
		s.observe("failed", 0, 0, 0, start)
		return nil, err
	}

	if err := s.store.ReplacePeriods(ctx, res.Periods, res.Summaries); err != nil {
		s.auditFailure(ctx, filename, res.RowCount, err)
		s.observe("failed", res.RowCount, len(res.Warnings), 0, start)
		return nil, err
	}

	logID, err := s.store.RecordUpload(ctx, store.UploadLog{
		Period:   strings.Join(res.Periods, ","),
		Filename: filename,
		RowCount: res.RowCount,
		Status:   store.UploadStatusSuccess,
	})
	if err != nil {
		// The data is already committed; a lost audit row is logged, not
		// surfaced as an upload failure.
		s.logger.ErrorContext(ctx, "failed to record upload audit entry",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
	}

	s.observe("success", res.RowCount, len(res.Warnings), len(res.Summaries), start)
	s.logger.InfoContext(ctx, "upload processed",
		slog.String("filename", filename),
		slog.Int("rows", res.RowCount),
		slog.Int("summaries", len(res.Summaries)),
		slog.Any("periods", res.Periods),
	)

	return &UploadResult{
		CreatedCount: len(res.Summaries),
		RowCount:     res.RowCount,
		Periods:      res.Periods,
		Warnings:     res.Warnings,
		UploadLogID:  logID,
	}, nil
}

func (s *UploadService) auditFailure(ctx context.Context, filename string, rows int, cause error) {
	if _, err := s.store.RecordUpload(ctx, store.UploadLog{
		Filename:     filename,
		RowCount:     rows,
		Status:       store.UploadStatusFailed,
		ErrorMessage: cause.Error(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record upload audit entry",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
	}
}

func (s *UploadService) observe(status string, rows, rowErrors, summaries int, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveUpload(status, rows, rowErrors, summaries, time.Since(start).Seconds())
}
