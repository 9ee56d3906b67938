package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/guanago/guanago/internal/store"
	"github.com/guanago/guanago/pkg/logger"
)

const (
	// DefaultLockoutThreshold is the failed-attempt count that locks a client.
	DefaultLockoutThreshold = 5
	// DefaultLockoutWindow is how long failed attempts are remembered.
	DefaultLockoutWindow = 15 * time.Minute

	attemptKeyPrefix = "pin_attempts:"
)

// AttemptTracker counts failed PIN validations per client key on the shared
// store. The lockout is advisory: it gates the HTTP handler and feeds the
// remaining-attempts indicator, and store failures degrade open so a broken
// store never locks admins out.
type AttemptTracker struct {
	kv        store.Store
	threshold int
	window    time.Duration
	log       *zap.Logger
}

// AttemptState describes a client's standing after a failed attempt.
type AttemptState struct {
	Attempts  int64
	Remaining int64
	Locked    bool
}

// NewAttemptTracker builds a tracker on the shared store.
func NewAttemptTracker(kv store.Store, threshold int, window time.Duration) (*AttemptTracker, error) {
	if kv == nil {
		return nil, errors.New("attempt tracker: store is required")
	}
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}

	return &AttemptTracker{
		kv:        kv,
		threshold: threshold,
		window:    window,
		log:       logger.WithModule("auth"),
	}, nil
}

// Threshold reports the configured attempt limit.
func (t *AttemptTracker) Threshold() int {
	return t.threshold
}

// RegisterFailure records a failed attempt and returns the updated state.
func (t *AttemptTracker) RegisterFailure(ctx context.Context, clientKey string) AttemptState {
	attempts, _, err := t.kv.IncrementWithTTL(ctx, attemptKeyPrefix+clientKey, t.window)
	if err != nil {
		t.log.Warn("recording failed pin attempt failed",
			zap.String("client", clientKey),
			zap.Error(err),
		)
		return AttemptState{Remaining: int64(t.threshold)}
	}
	return t.state(attempts)
}

// Locked reports whether the client has exhausted its attempts.
func (t *AttemptTracker) Locked(ctx context.Context, clientKey string) bool {
	raw, ok, err := t.kv.Get(ctx, attemptKeyPrefix+clientKey)
	if err != nil {
		t.log.Warn("reading pin attempt counter failed",
			zap.String("client", clientKey),
			zap.Error(err),
		)
		return false
	}
	if !ok {
		return false
	}
	return parseCounter(raw) >= int64(t.threshold)
}

// Reset clears the counter, called after a successful validation.
func (t *AttemptTracker) Reset(ctx context.Context, clientKey string) {
	if err := t.kv.Delete(ctx, attemptKeyPrefix+clientKey); err != nil {
		t.log.Warn("resetting pin attempt counter failed",
			zap.String("client", clientKey),
			zap.Error(err),
		)
	}
}

func (t *AttemptTracker) state(attempts int64) AttemptState {
	remaining := int64(t.threshold) - attempts
	if remaining < 0 {
		remaining = 0
	}
	return AttemptState{
		Attempts:  attempts,
		Remaining: remaining,
		Locked:    attempts >= int64(t.threshold),
	}
}

// parseCounter decodes the store's counter representation. Both backends
// store the count as ASCII digits.
func parseCounter(raw []byte) int64 {
	var n int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
