package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTServiceRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret: "test-secret",
		Issuer: "guanago",
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		AdminID:   "admin-ops",
		SessionID: "session-1",
		Role:      "admin",
		ExpiresAt: now.Add(8 * time.Hour),
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "admin-ops", claims.AdminID)
	require.Equal(t, "session-1", claims.SessionID)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "guanago", claims.Issuer)
}

func TestJWTServiceRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret: "test-secret",
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		AdminID:   "admin-ops",
		ExpiresAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTServiceRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "secret-a"})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "secret-b"})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(AccessTokenInput{
		AdminID:   "admin-ops",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTServiceRequiresConfig(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)

	svc, err := NewJWTService(JWTConfig{Secret: "x"})
	require.NoError(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{ExpiresAt: time.Now().Add(time.Hour)})
	require.Error(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{AdminID: "admin"})
	require.Error(t, err)
}
