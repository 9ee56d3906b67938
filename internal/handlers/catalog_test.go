package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/guanago/guanago/internal/airtable"
	"github.com/guanago/guanago/internal/catalog"
	"github.com/guanago/guanago/internal/database/testutil"
	"github.com/guanago/guanago/internal/store"
	"github.com/guanago/guanago/internal/webhooks"
)

type stubRemote struct {
	records []airtable.Record
	err     error
	calls   int
}

func (s *stubRemote) Configured() bool { return true }

func (s *stubRemote) ListRecords(_ context.Context, _ string, _ airtable.ListOptions) ([]airtable.Record, error) {
	s.calls++
	return s.records, s.err
}

func newCatalogRouter(t *testing.T, remote catalog.RemoteLister) *gin.Engine {
	t.Helper()

	kv := store.NewDatabaseStore(testutil.MustOpenTestDB(t))
	facade, err := catalog.NewFacade(kv, remote, catalog.FacadeConfig{})
	require.NoError(t, err)

	handler := NewCatalogHandler(facade, nil)
	router := gin.New()
	router.GET("/api/catalog/:resource", handler.Get)
	router.POST("/api/catalog/:resource/refresh", handler.Refresh)
	return router
}

func getCatalog(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestCatalogGetServesRemoteData(t *testing.T) {
	remote := &stubRemote{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Nombre": "Tour Acuario"}},
	}}
	router := newCatalogRouter(t, remote)

	recorder := getCatalog(router, http.MethodGet, "/api/catalog/services")
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	require.Equal(t, true, body["success"])

	meta := body["meta"].(map[string]any)
	require.Equal(t, "remote", meta["source"])
	require.Equal(t, float64(1), meta["total"])
	require.NotEmpty(t, meta["fetched_at"])

	records := body["data"].([]any)
	require.Equal(t, "Tour Acuario", records[0].(map[string]any)["name"])
}

func TestCatalogGetUnknownResource(t *testing.T) {
	router := newCatalogRouter(t, &stubRemote{})

	recorder := getCatalog(router, http.MethodGet, "/api/catalog/bookings")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCatalogGetFallbackWhenRemoteFails(t *testing.T) {
	remote := &stubRemote{err: errors.New("airtable: unreachable")}
	router := newCatalogRouter(t, remote)

	recorder := getCatalog(router, http.MethodGet, "/api/catalog/hotels")
	require.Equal(t, http.StatusOK, recorder.Code)

	meta := decodeBody(t, recorder)["meta"].(map[string]any)
	require.Equal(t, "fallback", meta["source"])
	// Fallback data carries no fetch timestamp.
	require.Nil(t, meta["fetched_at"])
}

func TestCatalogRefreshQueryBypassesCache(t *testing.T) {
	remote := &stubRemote{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Nombre": "Tour"}},
	}}
	router := newCatalogRouter(t, remote)

	getCatalog(router, http.MethodGet, "/api/catalog/services")
	getCatalog(router, http.MethodGet, "/api/catalog/services")
	require.Equal(t, 1, remote.calls)

	getCatalog(router, http.MethodGet, "/api/catalog/services?refresh=true")
	require.Equal(t, 2, remote.calls)
}

func TestCatalogForcedRefreshEndpoint(t *testing.T) {
	remote := &stubRemote{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Nombre": "Tour"}},
	}}
	router := newCatalogRouter(t, remote)

	getCatalog(router, http.MethodGet, "/api/catalog/services")

	recorder := getCatalog(router, http.MethodPost, "/api/catalog/services/refresh")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, remote.calls)

	meta := decodeBody(t, recorder)["meta"].(map[string]any)
	require.Equal(t, "remote", meta["source"])
}

func TestCatalogForcedRefreshEmitsTraceEvent(t *testing.T) {
	received := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := webhooks.NewNotifier(webhooks.Config{
		URLs: map[string]string{webhooks.EventTrace: server.URL},
	})

	remote := &stubRemote{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Nombre": "Tour"}},
	}}
	kv := store.NewDatabaseStore(testutil.MustOpenTestDB(t))
	facade, err := catalog.NewFacade(kv, remote, catalog.FacadeConfig{})
	require.NoError(t, err)

	handler := NewCatalogHandler(facade, notifier)
	router := gin.New()
	router.POST("/api/catalog/:resource/refresh", handler.Refresh)

	recorder := getCatalog(router, http.MethodPost, "/api/catalog/services/refresh")
	require.Equal(t, http.StatusOK, recorder.Code)

	select {
	case body := <-received:
		require.Equal(t, webhooks.EventTrace, body["event"])
		require.Equal(t, "catalog_force_refresh", body["action"])
		require.Equal(t, "services", body["resource"])
		require.Equal(t, "remote", body["source"])
	case <-time.After(2 * time.Second):
		t.Fatal("trace event was not delivered")
	}
}
