package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"perfhub/internal/store"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     *store.Store
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// NewHealthService creates a new health service.
func NewHealthService(version string, st *store.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     st,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Check reports overall health including the storage connection.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: map[string]interface{}{},
	}

	if err := s.store.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Services["storage"] = map[string]string{
			"status":  "down",
			"message": err.Error(),
		}
		s.logger.ErrorContext(ctx, "storage health check failed",
			slog.String("error", err.Error()))
	} else {
		status.Services["storage"] = map[string]string{"status": "up"}
	}

	return status
}

// Ready reports whether the service can accept traffic.
func (s *HealthService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
