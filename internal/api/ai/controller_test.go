package ai

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mangocats/wkmp/internal/buildinfo"
	"github.com/mangocats/wkmp/internal/conf"
	"github.com/mangocats/wkmp/internal/datastore"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/importpipeline"
)

func newTestStore(t *testing.T) *datastore.Store {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.Dialect = "sqlite"
	settings.Database.DSN = ":memory:"
	store, err := datastore.Open(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestController(t *testing.T) (*Controller, *echo.Echo) {
	t.Helper()
	store := newTestStore(t)
	bus := eventbus.New(64)
	settings := &conf.Settings{}
	settings.Import.MaxConcurrentFiles = 2
	orch := importpipeline.NewWorkflowOrchestrator(store, bus, settings)

	e := echo.New()
	c := New(orch, store, bus, &buildinfo.Context{Version: "test"})
	c.RegisterRoutes(e.Group(""))
	return c, e
}

func doRequest(e *echo.Echo, method, path string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsVersion(t *testing.T) {
	_, e := newTestController(t)
	rec := doRequest(e, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "wkmp-ai", body["module"])
	require.Equal(t, "test", body["version"])
}

func TestStartImportRejectsMissingRootFolder(t *testing.T) {
	_, e := newTestController(t)
	rec := doRequest(e, http.MethodPost, "/import/start", []byte(`{}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartImportRejectsNonexistentRootFolder(t *testing.T) {
	_, e := newTestController(t)
	rec := doRequest(e, http.MethodPost, "/import/start", []byte(`{"root_folder":"/does/not/exist"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartImportReturnsSessionForValidRoot(t *testing.T) {
	_, e := newTestController(t)
	root := t.TempDir()
	body, err := json.Marshal(map[string]string{"root_folder": root})
	require.NoError(t, err)

	rec := doRequest(e, http.MethodPost, "/import/start", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp.SessionID)
}

func TestImportStatusReturnsNotFoundForUnknownSession(t *testing.T) {
	_, e := newTestController(t)
	rec := doRequest(e, http.MethodGet, "/import/status/999999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelImportReturnsNotFoundForUnknownSession(t *testing.T) {
	_, e := newTestController(t)
	rec := doRequest(e, http.MethodPost, "/import/cancel/999999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
