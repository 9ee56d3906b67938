package airtable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		APIKey:  "key-test",
		BaseID:  "appBase",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
}

func TestListRecordsDecodesPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key-test", r.Header.Get("Authorization"))
		require.Equal(t, "/appBase/Servicios", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[{"id":"rec1","fields":{"Nombre":"Tour Acuario","Precio":75000},"createdTime":"2024-05-01T12:00:00.000Z"}]}`))
	})

	records, err := client.ListRecords(context.Background(), "Servicios", ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "rec1", records[0].ID)
	require.Equal(t, "Tour Acuario", records[0].Fields["Nombre"])
}

func TestListRecordsEncodesFilterAndLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "AND({Pin} = '0042', {Activo} = TRUE())", r.URL.Query().Get("filterByFormula"))
		require.Equal(t, "1", r.URL.Query().Get("maxRecords"))
		_, _ = w.Write([]byte(`{"records":[]}`))
	})

	_, err := client.ListRecords(context.Background(), "Administradores", ListOptions{
		FilterByFormula: "AND({Pin} = '0042', {Activo} = TRUE())",
		MaxRecords:      1,
	})
	require.NoError(t, err)
}

func TestListRecordsNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"INTERNAL"}`, http.StatusInternalServerError)
	})

	_, err := client.ListRecords(context.Background(), "Servicios", ListOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 500")
}

func TestListRecordsMalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway timeout</html>`))
	})

	_, err := client.ListRecords(context.Background(), "Servicios", ListOptions{})
	require.Error(t, err)
}

func TestListRecordsRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{})
	require.False(t, client.Configured())

	_, err := client.ListRecords(context.Background(), "Servicios", ListOptions{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestQuoteFormulaString(t *testing.T) {
	require.Equal(t, "'0042'", QuoteFormulaString("0042"))
	require.Equal(t, `'O\'Neill'`, QuoteFormulaString("O'Neill"))
}
