package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guanago/guanago/internal/database/testutil"
	"github.com/guanago/guanago/internal/store"
)

func newTracker(t *testing.T, threshold int) *AttemptTracker {
	t.Helper()

	kv := store.NewDatabaseStore(testutil.MustOpenTestDB(t))
	tracker, err := NewAttemptTracker(kv, threshold, time.Minute)
	require.NoError(t, err)
	return tracker
}

func TestAttemptTrackerCountdown(t *testing.T) {
	tracker := newTracker(t, 5)
	ctx := context.Background()

	for expected := int64(4); expected >= 1; expected-- {
		state := tracker.RegisterFailure(ctx, "203.0.113.7")
		require.Equal(t, expected, state.Remaining)
		require.False(t, state.Locked)
		require.False(t, tracker.Locked(ctx, "203.0.113.7"))
	}

	state := tracker.RegisterFailure(ctx, "203.0.113.7")
	require.Zero(t, state.Remaining)
	require.True(t, state.Locked)
	require.True(t, tracker.Locked(ctx, "203.0.113.7"))
}

func TestAttemptTrackerKeysAreIndependent(t *testing.T) {
	tracker := newTracker(t, 2)
	ctx := context.Background()

	tracker.RegisterFailure(ctx, "client-a")
	tracker.RegisterFailure(ctx, "client-a")
	require.True(t, tracker.Locked(ctx, "client-a"))
	require.False(t, tracker.Locked(ctx, "client-b"))
}

func TestAttemptTrackerReset(t *testing.T) {
	tracker := newTracker(t, 2)
	ctx := context.Background()

	tracker.RegisterFailure(ctx, "client-a")
	tracker.RegisterFailure(ctx, "client-a")
	require.True(t, tracker.Locked(ctx, "client-a"))

	tracker.Reset(ctx, "client-a")
	require.False(t, tracker.Locked(ctx, "client-a"))

	state := tracker.RegisterFailure(ctx, "client-a")
	require.EqualValues(t, 1, state.Attempts)
}

func TestAttemptTrackerDefaults(t *testing.T) {
	kv := store.NewDatabaseStore(testutil.MustOpenTestDB(t))

	tracker, err := NewAttemptTracker(kv, 0, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultLockoutThreshold, tracker.Threshold())

	_, err = NewAttemptTracker(nil, 5, time.Minute)
	require.Error(t, err)
}
