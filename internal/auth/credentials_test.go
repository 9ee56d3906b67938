package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guanago/guanago/internal/airtable"
	"github.com/guanago/guanago/pkg/crypto"
)

type adminTableServer struct {
	server     *httptest.Server
	queryCalls int
	scanCalls  int

	queryStatus  int
	queryRecords []map[string]any
	scanRecords  []map[string]any
}

// newAdminTableServer fakes the Admins table endpoint. Requests with
// maxRecords=1 are treated as the exact-match query, everything else as the
// bulk scan.
func newAdminTableServer(t *testing.T) *adminTableServer {
	t.Helper()

	fake := &adminTableServer{queryStatus: http.StatusOK}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query, err := url.ParseQuery(r.URL.RawQuery)
		require.NoError(t, err)

		var records []map[string]any
		if query.Get("maxRecords") == "1" {
			fake.queryCalls++
			if fake.queryStatus != http.StatusOK {
				w.WriteHeader(fake.queryStatus)
				return
			}
			records = fake.queryRecords
		} else {
			fake.scanCalls++
			records = fake.scanRecords
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"records": records}))
	}))
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *adminTableServer) client() *airtable.Client {
	return airtable.NewClient(airtable.Config{
		APIKey:  "key-test",
		BaseID:  "appTEST",
		BaseURL: f.server.URL,
	})
}

func staticAdmins() []AdminCredential {
	return []AdminCredential{
		{ID: "admin-ops", DisplayName: "Operaciones", PIN: "166400", Role: "admin", Active: true},
		{ID: "admin-off", DisplayName: "Deshabilitado", PIN: "999999", Role: "admin", Active: false},
	}
}

func TestValidatePINEmptyInput(t *testing.T) {
	validator, err := NewValidator(ValidatorConfig{Static: staticAdmins()})
	require.NoError(t, err)

	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := validator.ValidatePIN(context.Background(), input)
		require.ErrorIs(t, err, ErrEmptyPIN)
	}
}

func TestValidatePINStaticPriority(t *testing.T) {
	fake := newAdminTableServer(t)
	fake.queryRecords = []map[string]any{
		{"id": "recRemote", "fields": map[string]any{"Pin": "166400", "Nombre": "Remoto"}},
	}

	validator, err := NewValidator(ValidatorConfig{
		Static: staticAdmins(),
		Remote: fake.client(),
	})
	require.NoError(t, err)

	credential, err := validator.ValidatePIN(context.Background(), "166400")
	require.NoError(t, err)
	require.Equal(t, "admin-ops", credential.ID)

	// The static hit must not touch the network even though the remote
	// table holds the same PIN.
	require.Zero(t, fake.queryCalls)
	require.Zero(t, fake.scanCalls)
}

func TestValidatePINTrimsInput(t *testing.T) {
	validator, err := NewValidator(ValidatorConfig{Static: staticAdmins()})
	require.NoError(t, err)

	credential, err := validator.ValidatePIN(context.Background(), "  166400  ")
	require.NoError(t, err)
	require.Equal(t, "admin-ops", credential.ID)
}

func TestValidatePINInactiveStaticSkipped(t *testing.T) {
	validator, err := NewValidator(ValidatorConfig{Static: staticAdmins()})
	require.NoError(t, err)

	_, err = validator.ValidatePIN(context.Background(), "999999")
	require.ErrorIs(t, err, ErrPINNotMatched)
}

func TestValidatePINHashedStaticCredential(t *testing.T) {
	hash, err := crypto.HashPIN("424242")
	require.NoError(t, err)

	validator, err := NewValidator(ValidatorConfig{
		Static: []AdminCredential{{ID: "admin-hashed", PIN: hash, Active: true}},
	})
	require.NoError(t, err)

	credential, err := validator.ValidatePIN(context.Background(), "424242")
	require.NoError(t, err)
	require.Equal(t, "admin-hashed", credential.ID)

	_, err = validator.ValidatePIN(context.Background(), "424243")
	require.ErrorIs(t, err, ErrPINNotMatched)
}

func TestValidatePINRemoteExactQuery(t *testing.T) {
	fake := newAdminTableServer(t)
	fake.queryRecords = []map[string]any{
		{"id": "recQ", "fields": map[string]any{"Pin": "0042", "Nombre": "Consulta", "Rol": "partner"}},
	}

	validator, err := NewValidator(ValidatorConfig{
		Static: staticAdmins(),
		Remote: fake.client(),
	})
	require.NoError(t, err)

	credential, err := validator.ValidatePIN(context.Background(), "0042")
	require.NoError(t, err)
	require.Equal(t, "recQ", credential.ID)
	require.Equal(t, "Consulta", credential.DisplayName)
	require.Equal(t, "partner", credential.Role)
	require.True(t, credential.Active)

	require.Equal(t, 1, fake.queryCalls)
	require.Zero(t, fake.scanCalls)
}

func TestValidatePINScanAfterQueryError(t *testing.T) {
	fake := newAdminTableServer(t)
	fake.queryStatus = http.StatusUnprocessableEntity
	// The PIN is stored as a number, which is exactly the case the string
	// formula misses and the coercing scan catches.
	fake.scanRecords = []map[string]any{
		{"id": "recOther", "fields": map[string]any{"Pin": "1111"}},
		{"id": "recNum", "fields": map[string]any{"Pin": float64(42), "Nombre": "Numerico"}},
	}

	validator, err := NewValidator(ValidatorConfig{
		Static: staticAdmins(),
		Remote: fake.client(),
	})
	require.NoError(t, err)

	credential, err := validator.ValidatePIN(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, "recNum", credential.ID)

	require.Equal(t, 1, fake.queryCalls)
	require.Equal(t, 1, fake.scanCalls)
}

func TestValidatePINScanAfterEmptyQueryResult(t *testing.T) {
	fake := newAdminTableServer(t)
	fake.queryRecords = nil
	fake.scanRecords = []map[string]any{
		{"id": "recScan", "fields": map[string]any{"Pin": " 7777 "}},
	}

	validator, err := NewValidator(ValidatorConfig{
		Static: staticAdmins(),
		Remote: fake.client(),
	})
	require.NoError(t, err)

	credential, err := validator.ValidatePIN(context.Background(), "7777")
	require.NoError(t, err)
	require.Equal(t, "recScan", credential.ID)
}

func TestValidatePINTerminatesForAllInputClasses(t *testing.T) {
	fake := newAdminTableServer(t)
	fake.queryStatus = http.StatusInternalServerError

	validator, err := NewValidator(ValidatorConfig{
		Static: staticAdmins(),
		Remote: fake.client(),
	})
	require.NoError(t, err)

	// Nothing matches anywhere and the remote query errors: the chain still
	// terminates in the negative result instead of surfacing the failure.
	_, err = validator.ValidatePIN(context.Background(), "000000")
	require.ErrorIs(t, err, ErrPINNotMatched)
}

func TestValidatePINUnconfiguredRemoteShortCircuits(t *testing.T) {
	validator, err := NewValidator(ValidatorConfig{
		Static: staticAdmins(),
		Remote: airtable.NewClient(airtable.Config{}),
	})
	require.NoError(t, err)

	_, err = validator.ValidatePIN(context.Background(), "0042")
	require.ErrorIs(t, err, ErrPINNotMatched)
}

func TestNewValidatorRejectsDuplicateStaticPINs(t *testing.T) {
	_, err := NewValidator(ValidatorConfig{
		Static: []AdminCredential{
			{ID: "a", PIN: "1234", Active: true},
			{ID: "b", PIN: "1234", Active: true},
		},
	})
	require.Error(t, err)
}

func TestNewValidatorRejectsEmptyStaticPIN(t *testing.T) {
	_, err := NewValidator(ValidatorConfig{
		Static: []AdminCredential{{ID: "a", PIN: "   ", Active: true}},
	})
	require.Error(t, err)
}
