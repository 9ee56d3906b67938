package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/guanago/guanago/internal/airtable"
	"github.com/guanago/guanago/internal/api"
	"github.com/guanago/guanago/internal/app"
	"github.com/guanago/guanago/internal/app/maintenance"
	iauth "github.com/guanago/guanago/internal/auth"
	"github.com/guanago/guanago/internal/catalog"
	"github.com/guanago/guanago/internal/database"
	"github.com/guanago/guanago/internal/realtime"
	"github.com/guanago/guanago/internal/store"
	"github.com/guanago/guanago/internal/webhooks"
	"github.com/guanago/guanago/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Redis    *store.RedisClient
	Store    store.Store
	Facade   *catalog.Facade
	Sessions *iauth.SessionService
	Cleaner  *maintenance.Cleaner
	Hub      *realtime.Hub
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, stores, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := store.NewDatabaseStore(stack.DB)
	stack.Store = dbStore

	if cfg.Cache.Redis.Enabled {
		redisClient, redisErr := store.NewRedisClient(store.RedisConfig{
			Address:  cfg.Cache.Redis.Address,
			Username: cfg.Cache.Redis.Username,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Timeout:  cfg.Cache.Redis.Timeout,
		})
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed store", zap.Error(redisErr))
		} else {
			stack.Redis = redisClient
			stack.Store = redisClient
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	remote := airtable.NewClient(airtable.Config{
		APIKey:  cfg.Airtable.APIKey,
		BaseID:  cfg.Airtable.BaseID,
		BaseURL: cfg.Airtable.BaseURL,
		Timeout: cfg.Airtable.Timeout,
	})
	if !remote.Configured() {
		log.Warn("airtable not configured; catalog serves cached and bundled data only")
	}

	notifier := webhooks.NewNotifier(webhooks.Config{
		URLs:    cfg.Webhooks.URLs,
		Timeout: cfg.Webhooks.Timeout,
	})

	stack.Hub = realtime.NewHub()

	ttls := make(map[catalog.Resource]time.Duration, len(cfg.Catalog.TTLs))
	for name, ttl := range cfg.Catalog.TTLs {
		resource, parseErr := catalog.ParseResource(name)
		if parseErr != nil {
			log.Warn("ignoring ttl override for unknown resource", zap.String("resource", name))
			continue
		}
		ttls[resource] = ttl
	}

	stack.Facade, err = catalog.NewFacade(stack.Store, remote, catalog.FacadeConfig{
		DefaultTTL: cfg.Catalog.DefaultTTL,
		TTLs:       ttls,
		Sink: catalog.MultiSink(
			realtime.NewCatalogBridge(stack.Hub),
			webhooks.NewCatalogSink(notifier),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("initialise catalog facade: %w", err)
	}

	validator, err := iauth.NewValidator(iauth.ValidatorConfig{
		Static: staticCredentials(cfg),
		Remote: remote,
		Table:  cfg.Airtable.AdminTable,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise pin validator: %w", err)
	}

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: cfg.Auth.JWT.Secret,
		Issuer: cfg.Auth.JWT.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Sessions, err = iauth.NewSessionService(stack.DB, jwtService, iauth.SessionConfig{
		SessionTTL: cfg.Auth.Session.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	attempts, err := iauth.NewAttemptTracker(stack.Store, cfg.Auth.Lockout.Threshold, cfg.Auth.Lockout.Window)
	if err != nil {
		return nil, fmt.Errorf("initialise attempt tracker: %w", err)
	}

	// The database purge job runs even when Redis fronts the store, since
	// rate limit and lockout counters may have landed there earlier.
	stack.Cleaner = maintenance.NewCleaner(stack.Sessions, dbStore, stack.Facade,
		maintenance.WithWarmupSchedule(cfg.Catalog.WarmupCron))
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if cfg.Catalog.WarmupOnStart {
		go stack.Facade.WarmUp(ctx)
	}

	stack.Router, err = api.NewRouter(api.Deps{
		Config:    cfg,
		Store:     stack.Store,
		Facade:    stack.Facade,
		Validator: validator,
		JWT:       jwtService,
		Sessions:  stack.Sessions,
		Attempts:  attempts,
		Notifier:  notifier,
		Hub:       stack.Hub,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func staticCredentials(cfg *app.Config) []iauth.AdminCredential {
	credentials := make([]iauth.AdminCredential, 0, len(cfg.Auth.Admins))
	for _, admin := range cfg.Auth.Admins {
		credentials = append(credentials, iauth.AdminCredential{
			ID:          admin.ID,
			DisplayName: admin.Name,
			Email:       admin.Email,
			PIN:         admin.PIN,
			Role:        admin.Role,
			Active:      admin.Active,
		})
	}
	return credentials
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
