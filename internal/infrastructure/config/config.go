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
	Sync      SyncConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
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

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string
	CORSAllowOrigins  []string
}

// TelemetryConfig holds distributed tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
}

// PlatformConfig holds one upstream platform's credentials and gateway tuning
type PlatformConfig struct {
	Enabled           bool
	APIKey            string
	APIBaseURL        string
	RequestsPerSecond float64
	MaxRetries        int
	RetryCooldown     time.Duration
	MaxInFlight       int
	BatchSize         int
	BatchPause        time.Duration
}

// SyncConfig holds synchronization engine settings
type SyncConfig struct {
	// DefaultBatchSize bounds concurrent persistence per batch
	DefaultBatchSize int
	// DefaultLookback is the delta window when no checkpoint exists
	DefaultLookback time.Duration
	// JobTimeout bounds one background sync run
	JobTimeout time.Duration
	// BatchPause is the rest between persisted batches within one campaign
	BatchPause time.Duration
	// Lemlist, Smartlead and Woodpecker carry per-platform settings
	Lemlist    PlatformConfig
	Smartlead  PlatformConfig
	Woodpecker PlatformConfig
}

// CacheConfig holds resolver and key-generator cache settings
type CacheConfig struct {
	// NamespaceTTL bounds how long the resolver serves namespaces without reloading
	NamespaceTTL time.Duration
	// CollisionCapacity bounds the key generator's collision cache
	CollisionCapacity int
	// MirrorDedupTTL bounds analytics mirror deduplication
	MirrorDedupTTL time.Duration
}

// AnalyticsConfig holds the analytics mirror settings
type AnalyticsConfig struct {
	Enabled bool
	Stream  string
}

// SchedulerConfig holds the periodic delta sync scheduler settings
type SchedulerConfig struct {
	Enabled       bool
	DeltaInterval time.Duration
	Platforms     []string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ENGAGESYNC_ prefix (e.g., ENGAGESYNC_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("ENGAGESYNC")
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
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
		},
		Sync: SyncConfig{
			DefaultBatchSize: v.GetInt("sync.default_batch_size"),
			DefaultLookback:  v.GetDuration("sync.default_lookback"),
			JobTimeout:       v.GetDuration("sync.job_timeout"),
			BatchPause:       v.GetDuration("sync.batch_pause"),
			Lemlist:          loadPlatform(v, "sync.lemlist"),
			Smartlead:        loadPlatform(v, "sync.smartlead"),
			Woodpecker:       loadPlatform(v, "sync.woodpecker"),
		},
		Cache: CacheConfig{
			NamespaceTTL:      v.GetDuration("cache.namespace_ttl"),
			CollisionCapacity: v.GetInt("cache.collision_capacity"),
			MirrorDedupTTL:    v.GetDuration("cache.mirror_dedup_ttl"),
		},
		Analytics: AnalyticsConfig{
			Enabled: v.GetBool("analytics.enabled"),
			Stream:  v.GetString("analytics.stream"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			DeltaInterval: v.GetDuration("scheduler.delta_interval"),
			Platforms:     v.GetStringSlice("scheduler.platforms"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadPlatform reads one platform section
func loadPlatform(v *viper.Viper, prefix string) PlatformConfig {
	return PlatformConfig{
		Enabled:           v.GetBool(prefix + ".enabled"),
		APIKey:            v.GetString(prefix + ".api_key"),
		APIBaseURL:        v.GetString(prefix + ".api_base_url"),
		RequestsPerSecond: v.GetFloat64(prefix + ".requests_per_second"),
		MaxRetries:        v.GetInt(prefix + ".max_retries"),
		RetryCooldown:     v.GetDuration(prefix + ".retry_cooldown"),
		MaxInFlight:       v.GetInt(prefix + ".max_in_flight"),
		BatchSize:         v.GetInt(prefix + ".batch_size"),
		BatchPause:        v.GetDuration(prefix + ".batch_pause"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "engagesync-backend"
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
		cfg.Database.DBName = "engagesync"
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
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Sync.DefaultBatchSize == 0 {
		cfg.Sync.DefaultBatchSize = 25
	}
	if cfg.Sync.DefaultLookback == 0 {
		cfg.Sync.DefaultLookback = 30 * 24 * time.Hour
	}
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 30 * time.Minute
	}
	if cfg.Sync.BatchPause == 0 {
		cfg.Sync.BatchPause = 100 * time.Millisecond
	}
	applyPlatformDefaults(&cfg.Sync.Lemlist)
	applyPlatformDefaults(&cfg.Sync.Smartlead)
	applyPlatformDefaults(&cfg.Sync.Woodpecker)

	if cfg.Cache.NamespaceTTL == 0 {
		cfg.Cache.NamespaceTTL = 5 * time.Minute
	}
	if cfg.Cache.CollisionCapacity == 0 {
		cfg.Cache.CollisionCapacity = 1000
	}
	if cfg.Cache.MirrorDedupTTL == 0 {
		cfg.Cache.MirrorDedupTTL = 24 * time.Hour
	}
	if cfg.Analytics.Stream == "" {
		cfg.Analytics.Stream = "engagement:events"
	}
	if cfg.Scheduler.DeltaInterval == 0 {
		cfg.Scheduler.DeltaInterval = time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// applyPlatformDefaults sets gateway defaults for one platform section
func applyPlatformDefaults(p *PlatformConfig) {
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = 5
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	if p.RetryCooldown == 0 {
		p.RetryCooldown = 2 * time.Second
	}
	if p.BatchSize == 0 {
		p.BatchSize = 10
	}
	if p.BatchPause == 0 {
		p.BatchPause = time.Second
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

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, p := range []struct {
			name string
			cfg  PlatformConfig
		}{
			{"lemlist", c.Sync.Lemlist},
			{"smartlead", c.Sync.Smartlead},
			{"woodpecker", c.Sync.Woodpecker},
		} {
			if p.cfg.Enabled && p.cfg.APIKey == "" {
				return fmt.Errorf("sync.%s.api_key is required when the platform is enabled in production", p.name)
			}
		}
	}

	if c.Cache.CollisionCapacity < 0 {
		return fmt.Errorf("cache.collision_capacity cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}
	return nil
}

// EnabledPlatforms lists the platform sections with Enabled set
func (c *SyncConfig) EnabledPlatforms() map[string]PlatformConfig {
	out := make(map[string]PlatformConfig, 3)
	if c.Lemlist.Enabled {
		out["lemlist"] = c.Lemlist
	}
	if c.Smartlead.Enabled {
		out["smartlead"] = c.Smartlead
	}
	if c.Woodpecker.Enabled {
		out["woodpecker"] = c.Woodpecker
	}
	return out
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
