package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfhub/internal/config"
	"perfhub/internal/infrastructure"
	"perfhub/internal/ingest"
	"perfhub/internal/store"
)

func newUploadService(t *testing.T) (*UploadService, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewUploadService(config.Default(), st, infrastructure.NewMetrics(), logger), st
}

func TestProcessUploadSuccess(t *testing.T) {
	svc, st := newUploadService(t)
	ctx := context.Background()

	data := []byte("기준년월,부서명,매출액\n2024-01,공과대학,100\n2024-01,인문대학,50\n")
	res, err := svc.ProcessUpload(ctx, data, "metrics.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, res.CreatedCount)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, []string{"2024-01"}, res.Periods)
	assert.Empty(t, res.Warnings)

	records, err := st.Records(ctx, store.RecordFilter{Period: "2024-01"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	logs, err := st.UploadLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, store.UploadStatusSuccess, logs[0].Status)
	assert.Equal(t, 2, logs[0].RowCount)
}

func TestProcessUploadReplacesPeriod(t *testing.T) {
	svc, st := newUploadService(t)
	ctx := context.Background()

	first := []byte("기준년월,부서명,매출액\n2024-05,공과대학,100\n")
	_, err := svc.ProcessUpload(ctx, first, "first.csv")
	require.NoError(t, err)

	second := []byte("기준년월,부서명,매출액\n2024-05,사회대학,30\n")
	_, err = svc.ProcessUpload(ctx, second, "second.csv")
	require.NoError(t, err)

	records, err := st.Records(ctx, store.RecordFilter{Period: "2024-05"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "사회대학", records[0].Unit)
}

func TestProcessUploadFailureIsAudited(t *testing.T) {
	svc, st := newUploadService(t)
	ctx := context.Background()

	// Structurally valid but no period column resolvable.
	data := []byte("부서명,매출액\n공과대학,100\n")
	_, err := svc.ProcessUpload(ctx, data, "broken.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrNoPeriodColumn)

	logs, err := st.UploadLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, store.UploadStatusFailed, logs[0].Status)
	assert.Contains(t, logs[0].ErrorMessage, "no period column")

	records, err := st.Records(ctx, store.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessUploadRejectsBadExtension(t *testing.T) {
	svc, st := newUploadService(t)
	ctx := context.Background()

	_, err := svc.ProcessUpload(ctx, []byte("x"), "report.pdf")
	require.Error(t, err)

	logs, err := st.UploadLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, store.UploadStatusFailed, logs[0].Status)
}

func TestDataServiceQueries(t *testing.T) {
	svc, st := newUploadService(t)
	ctx := context.Background()

	data := []byte("기준년월,부서명,매출액\n2024-01,공과대학,100\n2024-02,공과대학,200\n")
	_, err := svc.ProcessUpload(ctx, data, "metrics.csv")
	require.NoError(t, err)

	ds := NewDataService(st, nil)

	records, err := ds.Records(ctx, "2024-01", "")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	sum, err := ds.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "300", sum.TotalRevenue.String())

	logs, err := ds.UploadLogs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestHealthService(t *testing.T) {
	_, st := newUploadService(t)

	hs := NewHealthService("test", st, nil)
	status := hs.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.NoError(t, hs.Ready(context.Background()))
}
