package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the GuanaGO backend.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Airtable AirtableConfig `mapstructure:"airtable"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Webhooks WebhookConfig  `mapstructure:"webhooks"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	LogLevel       string          `mapstructure:"log_level"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig controls the fixed-window request limiter.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes optional cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AirtableConfig points the remote table client at the hosted base.
type AirtableConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseID     string        `mapstructure:"base_id"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	AdminTable string        `mapstructure:"admin_table"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT     JWTSettings         `mapstructure:"jwt"`
	Session SessionSettings     `mapstructure:"session"`
	Lockout LockoutSettings     `mapstructure:"lockout"`
	Admins  []StaticAdminConfig `mapstructure:"admins"`
}

// JWTSettings configures signed admin tokens.
type JWTSettings struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// SessionSettings configures admin session lifetimes.
type SessionSettings struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// LockoutSettings controls the advisory failed-attempt lockout.
type LockoutSettings struct {
	Threshold int           `mapstructure:"threshold"`
	Window    time.Duration `mapstructure:"window"`
}

// StaticAdminConfig declares a break-glass admin credential in configuration.
// PIN may hold the plain value or a bcrypt hash.
type StaticAdminConfig struct {
	ID     string `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Email  string `mapstructure:"email"`
	PIN    string `mapstructure:"pin"`
	Role   string `mapstructure:"role"`
	Active bool   `mapstructure:"active"`
}

// CatalogConfig tunes the read-through cache.
type CatalogConfig struct {
	DefaultTTL    time.Duration            `mapstructure:"default_ttl"`
	TTLs          map[string]time.Duration `mapstructure:"ttls"`
	WarmupOnStart bool                     `mapstructure:"warmup_on_start"`
	WarmupCron    string                   `mapstructure:"warmup_cron"`
}

// WebhookConfig routes outbound automation events.
type WebhookConfig struct {
	URLs    map[string]string `mapstructure:"urls"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("GUANAGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Airtable credentials are also honoured under their conventional
	// unprefixed names so existing deployments keep working.
	_ = v.BindEnv("airtable.api_key", "GUANAGO_AIRTABLE_API_KEY", "AIRTABLE_API_KEY")
	_ = v.BindEnv("airtable.base_id", "GUANAGO_AIRTABLE_BASE_ID", "AIRTABLE_BASE_ID")

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.max_requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/guanago.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.timeout", "10s")
	v.SetDefault("airtable.admin_table", "Admins")

	v.SetDefault("auth.jwt.issuer", "guanago")
	v.SetDefault("auth.session.ttl", "8h")
	v.SetDefault("auth.lockout.threshold", 5)
	v.SetDefault("auth.lockout.window", "15m")

	v.SetDefault("catalog.default_ttl", "15m")
	v.SetDefault("catalog.warmup_on_start", true)
	v.SetDefault("catalog.warmup_cron", "")

	v.SetDefault("webhooks.timeout", "5s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
