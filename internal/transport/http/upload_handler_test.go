package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfhub/internal/config"
	apierrors "perfhub/internal/errors"
	"perfhub/internal/services"
	"perfhub/internal/store"
)

type testEnv struct {
	upload *UploadHandler
	data   *DataHandler
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	cfg := config.Default()

	uploadSvc := services.NewUploadService(cfg, st, nil, logger)
	dataSvc := services.NewDataService(st, logger)

	return &testEnv{
		upload: NewUploadHandler(uploadSvc, cfg.Upload.MaxFileSize, logger, errorHandler),
		data:   NewDataHandler(dataSvc, cfg.Upload.UploadLogLimit, logger, errorHandler),
		store:  st,
	}
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	csv := []byte("기준년월,부서명,매출액,지출액\n2024-01,공과대학,\"1,000\",300\n2024-01,인문대학,500,100\n")
	body, contentType := multipartBody(t, "metrics.csv", csv)

	r := httptest.NewRequest(http.MethodPost, "/", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.upload.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Result.CreatedCount)
	assert.Equal(t, []string{"2024-01"}, resp.Result.Periods)

	records, err := env.store.Records(context.Background(), store.RecordFilter{Period: "2024-01"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUploadWithRowWarnings(t *testing.T) {
	env := newTestEnv(t)

	csv := []byte("기준년월,부서명,매출액\n2024-01,공과대학,100\n,인문대학,200\n2024-02,사회대학,300\n")
	body, contentType := multipartBody(t, "metrics.csv", csv)

	r := httptest.NewRequest(http.MethodPost, "/", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.upload.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Warnings, 1)
	assert.Contains(t, resp.Result.Warnings[0], "row 3")
}

func TestUploadMissingFilePart(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("other", "x"))
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	env.upload.Routes().ServeHTTP(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadNoPeriodColumnReturns422(t *testing.T) {
	env := newTestEnv(t)

	csv := []byte("부서명,매출액\n공과대학,100\n")
	body, contentType := multipartBody(t, "metrics.csv", csv)

	r := httptest.NewRequest(http.MethodPost, "/", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.upload.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, apierrors.TypeNoPeriodColumn, problem["type"])
	// Schema failures report the headers actually found.
	assert.Contains(t, problem["detail"], "부서명")
}

func TestUploadUnsupportedExtensionRejected(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, "metrics.pdf", []byte("x"))
	r := httptest.NewRequest(http.MethodPost, "/", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.upload.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, apierrors.TypeValidation, problem["type"])
}
