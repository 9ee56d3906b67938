package webhooks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guanago/guanago/internal/catalog"
)

func TestCatalogSinkDeliversRefreshEvent(t *testing.T) {
	received := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewNotifier(Config{URLs: map[string]string{EventCatalogRefresh: server.URL}})
	sink := NewCatalogSink(notifier)

	fetchedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sink.CatalogRefreshed(catalog.Snapshot{
		Resource:  catalog.ResourceServices,
		Records:   []map[string]any{{"id": "rec1", "name": "Tour Acuario"}},
		FetchedAt: fetchedAt,
		Source:    catalog.SourceRemote,
	})

	select {
	case body := <-received:
		require.Equal(t, EventCatalogRefresh, body["event"])
		require.Equal(t, "services", body["resource"])
		require.Equal(t, "remote", body["source"])
		require.Equal(t, fetchedAt.Format(time.RFC3339), body["fetched_at"])
		require.Equal(t, float64(1), body["records"])
	case <-time.After(2 * time.Second):
		t.Fatal("catalog refresh event was not delivered")
	}
}

func TestCatalogSinkWithoutNotifierIsNoOp(t *testing.T) {
	var sink *CatalogSink
	sink.CatalogRefreshed(catalog.Snapshot{Resource: catalog.ResourceServices})

	NewCatalogSink(nil).CatalogRefreshed(catalog.Snapshot{Resource: catalog.ResourceServices})
}
