package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the ingestion pipeline.
type Metrics struct {
	registry *prometheus.Registry

	UploadsTotal       *prometheus.CounterVec
	RowsProcessed      prometheus.Counter
	RowErrors          prometheus.Counter
	SummariesPersisted prometheus.Counter
	UploadDuration     prometheus.Histogram
}

// NewMetrics registers the ingestion metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perfhub_uploads_total",
			Help: "Ingestion attempts by outcome.",
		}, []string{"status"}),
		RowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "perfhub_rows_processed_total",
			Help: "Source rows read across all uploads.",
		}),
		RowErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "perfhub_row_errors_total",
			Help: "Rows skipped with a diagnostic.",
		}),
		SummariesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "perfhub_summaries_persisted_total",
			Help: "Aggregated (period, unit) summaries written to storage.",
		}),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfhub_upload_duration_seconds",
			Help:    "End-to-end upload processing time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpload records one finished upload attempt.
func (m *Metrics) ObserveUpload(status string, rows, rowErrors, summaries int, seconds float64) {
	m.UploadsTotal.WithLabelValues(status).Inc()
	m.RowsProcessed.Add(float64(rows))
	m.RowErrors.Add(float64(rowErrors))
	m.SummariesPersisted.Add(float64(summaries))
	m.UploadDuration.Observe(seconds)
}
