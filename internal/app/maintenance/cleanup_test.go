package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/guanago/guanago/internal/auth"
	"github.com/guanago/guanago/internal/database/testutil"
	"github.com/guanago/guanago/internal/models"
	"github.com/guanago/guanago/internal/store"
)

func TestRunOncePurgesExpiredState(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	kv := store.NewDatabaseStore(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtService, iauth.SessionConfig{
		Clock: func() time.Time { return now },
	})
	require.NoError(t, err)

	_, err = sessions.Issue(iauth.AdminCredential{ID: "admin-ops", Role: "admin"}, iauth.SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, kv.Set(context.Background(), "stale", []byte("x"), time.Millisecond))
	require.NoError(t, kv.Set(context.Background(), "keep", []byte("y"), 0))
	time.Sleep(5 * time.Millisecond)

	now = now.Add(iauth.DefaultSessionTTL + time.Hour)

	cleaner := NewCleaner(sessions, kv, nil)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.AdminSession{}).Count(&sessionCount).Error)
	require.Zero(t, sessionCount)

	var entryCount int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&entryCount).Error)
	require.EqualValues(t, 1, entryCount)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	kv := store.NewDatabaseStore(db)

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtService, iauth.SessionConfig{})
	require.NoError(t, err)

	cleaner := NewCleaner(sessions, kv, nil,
		WithSessionSchedule("@every 1h"),
		WithStoreSchedule("@every 1h"),
	)
	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}

func TestCleanerWithoutJobs(t *testing.T) {
	cleaner := NewCleaner(nil, nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
