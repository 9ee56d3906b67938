package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/guanago/guanago/internal/auth"
	"github.com/guanago/guanago/internal/catalog"
	"github.com/guanago/guanago/pkg/logger"
)

const (
	defaultSessionSpec = "@hourly"
	defaultStoreSpec   = "@hourly"
)

// StorePurger removes expired key-value entries. The database-backed store
// implements it; the Redis backend expires keys on its own and passes nil.
type StorePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner coordinates background maintenance: purging expired admin sessions,
// pruning expired store entries, and optionally re-warming the catalog cache.
type Cleaner struct {
	sessions *iauth.SessionService
	purger   StorePurger
	facade   *catalog.Facade
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	enabled  bool

	sessionSchedule string
	storeSchedule   string
	warmupSchedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithStoreSchedule overrides the cron specification for store entry cleanup.
func WithStoreSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.storeSchedule = spec
		}
	}
}

// WithWarmupSchedule enables scheduled catalog warm-up refreshes.
func WithWarmupSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		cleaner.warmupSchedule = spec
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewCleaner(sessions *iauth.SessionService, purger StorePurger, facade *catalog.Facade, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		purger:          purger,
		facade:          facade,
		now:             time.Now,
		sessionSchedule: defaultSessionSpec,
		storeSchedule:   defaultStoreSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || cleaner.purger != nil ||
		(cleaner.facade != nil && cleaner.warmupSchedule != "")

	return cleaner
}

// Start registers jobs with the cron scheduler and launches it if at least
// one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			if _, err := c.sessions.CleanupExpired(); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.purger != nil {
		if _, err := c.cron.AddFunc(c.storeSchedule, func() {
			if _, err := c.purger.PurgeExpired(context.Background(), c.now()); err != nil {
				c.log.Warn("store cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.facade != nil && c.warmupSchedule != "" {
		if _, err := c.cron.AddFunc(c.warmupSchedule, func() {
			c.facade.WarmUp(context.Background())
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.purger != nil {
		if _, err := c.purger.PurgeExpired(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
