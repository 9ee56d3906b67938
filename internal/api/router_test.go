package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/guanago/guanago/internal/airtable"
	"github.com/guanago/guanago/internal/app"
	iauth "github.com/guanago/guanago/internal/auth"
	"github.com/guanago/guanago/internal/catalog"
	"github.com/guanago/guanago/internal/database/testutil"
	"github.com/guanago/guanago/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticRemote struct{}

func (staticRemote) Configured() bool { return false }

func (staticRemote) ListRecords(context.Context, string, airtable.ListOptions) ([]airtable.Record, error) {
	return nil, airtable.ErrNotConfigured
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	kv := store.NewDatabaseStore(db)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Auth.JWT.Secret = "test-secret"

	facade, err := catalog.NewFacade(kv, staticRemote{}, catalog.FacadeConfig{})
	require.NoError(t, err)

	validator, err := iauth.NewValidator(iauth.ValidatorConfig{
		Static: []iauth.AdminCredential{
			{ID: "admin-ops", PIN: "166400", Role: "admin", Active: true},
			{ID: "partner-hotel", PIN: "554433", Role: "partner", Active: true},
		},
	})
	require.NoError(t, err)

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{Secret: cfg.Auth.JWT.Secret})
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(db, jwtService, iauth.SessionConfig{})
	require.NoError(t, err)

	attempts, err := iauth.NewAttemptTracker(kv, cfg.Auth.Lockout.Threshold, cfg.Auth.Lockout.Window)
	require.NoError(t, err)

	router, err := NewRouter(Deps{
		Config:    cfg,
		Store:     kv,
		Facade:    facade,
		Validator: validator,
		JWT:       jwtService,
		Sessions:  sessions,
		Attempts:  attempts,
	})
	require.NoError(t, err)
	return router
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "guanago_")
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"success":false`)
}

func TestRouterPINFlowEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"pin": "166400"})
	req := httptest.NewRequest(http.MethodPost, "/api/validate-admin-pin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	token := payload["data"].(map[string]any)["token"].(string)

	// Forced refresh requires the issued token.
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/catalog/services/refresh", nil))
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/catalog/services/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func loginPIN(t *testing.T, router *gin.Engine, pin string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"pin": pin})
	req := httptest.NewRequest(http.MethodPost, "/api/validate-admin-pin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload["data"].(map[string]any)["token"].(string)
}

func TestRouterForcedRefreshNeedsAdminRole(t *testing.T) {
	router := newTestRouter(t)
	token := loginPIN(t, router, "554433")

	// Partner sessions can read the catalog but not force a refresh.
	req := httptest.NewRequest(http.MethodPost, "/api/catalog/services/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouterCatalogIsPublic(t *testing.T) {
	router := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/catalog/services", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	// No remote and no cache yet: the bundled dataset is served.
	require.Equal(t, "fallback", payload["meta"].(map[string]any)["source"])
}
