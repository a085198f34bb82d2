package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "perfhub/internal/errors"
	"perfhub/internal/services"
)

// DataHandler serves stored records, dashboard summaries and upload logs
type DataHandler struct {
	service        *services.DataService
	uploadLogLimit int
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler
func NewDataHandler(service *services.DataService, uploadLogLimit int, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:        service,
		uploadLogLimit: uploadLogLimit,
		logger:         logger.With(slog.String("component", "data_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the data routes
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/data", h.GetRecords)
	r.Get("/summary", h.GetSummary)
	r.Get("/uploads", h.GetUploadLogs)
	return r
}

// GetRecords returns stored records filtered by period and unit substring.
func (h *DataHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	unit := r.URL.Query().Get("unit")

	records, err := h.service.Records(r.Context(), period, unit)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.StorageError("records query", err))
		return
	}

	render.JSON(w, r, map[string]any{
		"count":   len(records),
		"results": records,
	})
}

// GetSummary returns the dashboard aggregates.
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.StorageError("summary query", err))
		return
	}
	render.JSON(w, r, summary)
}

// GetUploadLogs returns audit entries, newest first. A "limit" query
// parameter overrides the configured default.
func (h *DataHandler) GetUploadLogs(w http.ResponseWriter, r *http.Request) {
	limit := h.uploadLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	logs, err := h.service.UploadLogs(r.Context(), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.StorageError("upload log query", err))
		return
	}

	render.JSON(w, r, map[string]any{
		"count":   len(logs),
		"results": logs,
	})
}
