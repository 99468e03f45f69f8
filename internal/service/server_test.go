package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"railseed/internal/seed"
	"railseed/internal/service"
	"railseed/internal/storage/history"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_RunLifecycle(t *testing.T) {
	svc := service.NewSeedService(fixture(t), zap.NewNop())
	router := service.NewRouter(svc)

	rec := do(t, router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "running": false}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/runs/last")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr service.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, service.ErrorCodeNoRuns, apiErr.Code)

	rec = do(t, router, http.MethodPost, "/runs")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, seed.StatusSuccess, report.Status)
	assert.Equal(t, int64(2), report.Stations.Inserted)

	rec = do(t, router, http.MethodGet, "/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)
	var last seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	assert.Equal(t, report.RunID, last.RunID)

	rec = do(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `railseed_runs_total{status="success"} 1`)
	assert.Contains(t, rec.Body.String(), `railseed_records_total{kind="stations",outcome="duplicate"} 1`)
}

func TestRouter_ConflictWhileRunning(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	svc := service.NewSeedService(fixture(t), zap.NewNop(), service.WithOpener(blockingOpener(entered, release)))
	router := service.NewRouter(svc)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", nil))
		done <- rec
	}()
	<-entered

	rec := do(t, router, http.MethodGet, "/healthz")
	assert.JSONEq(t, `{"status": "ok", "running": true}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/runs")
	require.Equal(t, http.StatusConflict, rec.Code)
	var apiErr service.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, service.ErrorCodeRunInProgress, apiErr.Code)

	close(release)
	assert.Equal(t, http.StatusOK, (<-done).Code)
}

func TestRouter_FailedRun(t *testing.T) {
	cfg := fixture(t)
	cfg.Sources.Stations.Config["filePath"] = "/definitely/not/here.json"
	router := service.NewRouter(service.NewSeedService(cfg, zap.NewNop()))

	rec := do(t, router, http.MethodPost, "/runs")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var report seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, seed.StatusError, report.Status)
	assert.Contains(t, report.Error, "read stations")
}

func TestRouter_History(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	cfg := fixture(t)
	router := service.NewRouter(service.NewSeedService(cfg, zap.NewNop(), service.WithHistory(store)))

	rec := do(t, router, http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	var ids []string
	for i := 0; i < 3; i++ {
		rec = do(t, router, http.MethodPost, "/runs")
		require.Equal(t, http.StatusOK, rec.Code)
		var r seed.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
		ids = append(ids, r.RunID)
	}

	rec = do(t, router, http.MethodGet, "/runs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, ids[2], listed[0].RunID)
	assert.Equal(t, ids[1], listed[1].RunID)

	rec = do(t, router, http.MethodGet, "/runs/"+ids[0])
	require.Equal(t, http.StatusOK, rec.Code)
	var first seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, int64(2), first.Stations.Inserted)

	rec = do(t, router, http.MethodGet, "/runs/does-not-exist")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr service.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, service.ErrorCodeRunNotFound, apiErr.Code)

	rec = do(t, router, http.MethodGet, "/runs?limit=lots")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A new service on the same store picks up where the last one stopped.
	restarted := service.NewRouter(service.NewSeedService(cfg, zap.NewNop(), service.WithHistory(store)))
	rec = do(t, restarted, http.MethodGet, "/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)
	var last seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	assert.Equal(t, ids[2], last.RunID)
}

func TestRouter_HistoryWithoutStore(t *testing.T) {
	router := service.NewRouter(service.NewSeedService(fixture(t), zap.NewNop()))

	rec := do(t, router, http.MethodPost, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var r seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))

	rec = do(t, router, http.MethodGet, "/runs")
	var listed []seed.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, r.RunID, listed[0].RunID)

	rec = do(t, router, http.MethodGet, "/runs/"+r.RunID)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/runs/other")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- service.Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop()) }()
	cancel()
	assert.NoError(t, <-errCh)
}
