package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Webhook   WebhookConfig
	Cafe24    PlatformAPIConfig
	Shopify   PlatformAPIConfig
	Queue     QueueConfig
	Scheduler SchedulerConfig
	Sync      SyncConfig
	Drift     DriftConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
}

// WebhookConfig holds webhook signature verification settings.
// Secrets are per-source; verification fails closed when a secret is missing.
type WebhookConfig struct {
	Cafe24Secret  string
	ShopifySecret string
	// AllowInsecure skips signature verification. Honored only outside
	// production; Load rejects it when App.Env is production.
	AllowInsecure bool
}

// PlatformAPIConfig holds one platform's API connection settings
type PlatformAPIConfig struct {
	BaseURL        string
	AccessToken    string
	ClientSecret   string
	TimeoutSeconds int
}

// QueueConfig holds the Redis Stream consumer settings
type QueueConfig struct {
	Stream        string
	Group         string
	Consumer      string
	Workers       int
	BatchSize     int
	BlockTimeout  time.Duration
	ClaimMinIdle  time.Duration
	ClaimInterval time.Duration
}

// SchedulerConfig holds the periodic job settings
type SchedulerConfig struct {
	Enabled               bool
	FullSyncEnabled       bool
	FullSyncInterval      time.Duration
	InventorySyncEnabled  bool
	InventorySyncInterval time.Duration
	PriceSyncEnabled      bool
	PriceSyncInterval     time.Duration
	DriftCheckEnabled     bool
	DriftCheckInterval    time.Duration
	LowStockEnabled       bool
	LowStockInterval      time.Duration
	JobTimeout            time.Duration
	RetryAttempts         int
	RetryDelay            time.Duration
}

// SyncConfig holds orchestrator settings
type SyncConfig struct {
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	ListBatchSize     int
	LowStockThreshold int64
	InterCallDelay    time.Duration
}

// DriftConfig holds reconciliation settings
type DriftConfig struct {
	PriceThresholdPercent float64
	InterCallDelay        time.Duration
	LockTTL               time.Duration
	AutoCorrect           bool
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with CSYNC_ prefix (e.g. CSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
		},
		Webhook: WebhookConfig{
			Cafe24Secret:  v.GetString("webhook.cafe24_secret"),
			ShopifySecret: v.GetString("webhook.shopify_secret"),
			AllowInsecure: v.GetBool("webhook.allow_insecure"),
		},
		Cafe24: PlatformAPIConfig{
			BaseURL:        v.GetString("cafe24.base_url"),
			AccessToken:    v.GetString("cafe24.access_token"),
			ClientSecret:   v.GetString("cafe24.client_secret"),
			TimeoutSeconds: v.GetInt("cafe24.timeout_seconds"),
		},
		Shopify: PlatformAPIConfig{
			BaseURL:        v.GetString("shopify.base_url"),
			AccessToken:    v.GetString("shopify.access_token"),
			ClientSecret:   v.GetString("shopify.client_secret"),
			TimeoutSeconds: v.GetInt("shopify.timeout_seconds"),
		},
		Queue: QueueConfig{
			Stream:        v.GetString("queue.stream"),
			Group:         v.GetString("queue.group"),
			Consumer:      v.GetString("queue.consumer"),
			Workers:       v.GetInt("queue.workers"),
			BatchSize:     v.GetInt("queue.batch_size"),
			BlockTimeout:  v.GetDuration("queue.block_timeout"),
			ClaimMinIdle:  v.GetDuration("queue.claim_min_idle"),
			ClaimInterval: v.GetDuration("queue.claim_interval"),
		},
		Scheduler: SchedulerConfig{
			Enabled:               v.GetBool("scheduler.enabled"),
			FullSyncEnabled:       v.GetBool("scheduler.full_sync_enabled"),
			FullSyncInterval:      v.GetDuration("scheduler.full_sync_interval"),
			InventorySyncEnabled:  v.GetBool("scheduler.inventory_sync_enabled"),
			InventorySyncInterval: v.GetDuration("scheduler.inventory_sync_interval"),
			PriceSyncEnabled:      v.GetBool("scheduler.price_sync_enabled"),
			PriceSyncInterval:     v.GetDuration("scheduler.price_sync_interval"),
			DriftCheckEnabled:     v.GetBool("scheduler.drift_check_enabled"),
			DriftCheckInterval:    v.GetDuration("scheduler.drift_check_interval"),
			LowStockEnabled:       v.GetBool("scheduler.low_stock_enabled"),
			LowStockInterval:      v.GetDuration("scheduler.low_stock_interval"),
			JobTimeout:            v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:         v.GetInt("scheduler.retry_attempts"),
			RetryDelay:            v.GetDuration("scheduler.retry_delay"),
		},
		Sync: SyncConfig{
			RetryAttempts:     v.GetInt("sync.retry_attempts"),
			RetryBaseDelay:    v.GetDuration("sync.retry_base_delay"),
			RetryMaxDelay:     v.GetDuration("sync.retry_max_delay"),
			ListBatchSize:     v.GetInt("sync.list_batch_size"),
			LowStockThreshold: v.GetInt64("sync.low_stock_threshold"),
			InterCallDelay:    v.GetDuration("sync.inter_call_delay"),
		},
		Drift: DriftConfig{
			PriceThresholdPercent: v.GetFloat64("drift.price_threshold_percent"),
			InterCallDelay:        v.GetDuration("drift.inter_call_delay"),
			LockTTL:               v.GetDuration("drift.lock_ttl"),
			AutoCorrect:           v.GetBool("drift.auto_correct"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelsync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "channelsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // webhooks are small
	}
	if cfg.Cafe24.TimeoutSeconds == 0 {
		cfg.Cafe24.TimeoutSeconds = 30
	}
	if cfg.Shopify.TimeoutSeconds == 0 {
		cfg.Shopify.TimeoutSeconds = 30
	}
	if cfg.Queue.Stream == "" {
		cfg.Queue.Stream = "channelsync:events"
	}
	if cfg.Queue.Group == "" {
		cfg.Queue.Group = "sync-workers"
	}
	if cfg.Queue.Consumer == "" {
		cfg.Queue.Consumer = "worker-1"
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 16
	}
	if cfg.Queue.BlockTimeout == 0 {
		cfg.Queue.BlockTimeout = 5 * time.Second
	}
	if cfg.Queue.ClaimMinIdle == 0 {
		cfg.Queue.ClaimMinIdle = time.Minute
	}
	if cfg.Queue.ClaimInterval == 0 {
		cfg.Queue.ClaimInterval = 30 * time.Second
	}
	if cfg.Scheduler.FullSyncInterval == 0 {
		cfg.Scheduler.FullSyncInterval = 6 * time.Hour
	}
	if cfg.Scheduler.InventorySyncInterval == 0 {
		cfg.Scheduler.InventorySyncInterval = 15 * time.Minute
	}
	if cfg.Scheduler.PriceSyncInterval == 0 {
		cfg.Scheduler.PriceSyncInterval = time.Hour
	}
	if cfg.Scheduler.DriftCheckInterval == 0 {
		cfg.Scheduler.DriftCheckInterval = time.Hour
	}
	if cfg.Scheduler.LowStockInterval == 0 {
		cfg.Scheduler.LowStockInterval = 30 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 15 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = time.Minute
	}
	if cfg.Sync.RetryAttempts == 0 {
		cfg.Sync.RetryAttempts = 3
	}
	if cfg.Sync.RetryBaseDelay == 0 {
		cfg.Sync.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.Sync.RetryMaxDelay == 0 {
		cfg.Sync.RetryMaxDelay = 10 * time.Second
	}
	if cfg.Sync.ListBatchSize == 0 {
		cfg.Sync.ListBatchSize = 100
	}
	if cfg.Sync.LowStockThreshold == 0 {
		cfg.Sync.LowStockThreshold = 5
	}
	if cfg.Sync.InterCallDelay == 0 {
		cfg.Sync.InterCallDelay = 100 * time.Millisecond
	}
	if cfg.Drift.PriceThresholdPercent == 0 {
		cfg.Drift.PriceThresholdPercent = 10.0
	}
	if cfg.Drift.InterCallDelay == 0 {
		cfg.Drift.InterCallDelay = 500 * time.Millisecond
	}
	if cfg.Drift.LockTTL == 0 {
		cfg.Drift.LockTTL = 30 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Drift.PriceThresholdPercent < 0 || c.Drift.PriceThresholdPercent > 100 {
		return fmt.Errorf("drift.price_threshold_percent must be between 0 and 100")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}

	if c.App.Env == "production" {
		if c.Webhook.AllowInsecure {
			return fmt.Errorf("webhook.allow_insecure must be false in production")
		}
		if c.Webhook.Cafe24Secret == "" || c.Webhook.ShopifySecret == "" {
			return fmt.Errorf("webhook secrets are required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
