package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	Sync     SyncConfig
	Insights InsightsConfig
	Kiwify   KiwifyConfig
	Hotmart  HotmartConfig
	MetaAds  MetaAdsConfig

	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FUNNELTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"FUNNELTRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FUNNELTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FUNNELTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FUNNELTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FUNNELTRACK_DB_DSN"`
	Driver string `envconfig:"FUNNELTRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FUNNELTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"FUNNELTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FUNNELTRACK_DB_USER"`
	LegacyPassword string `envconfig:"FUNNELTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FUNNELTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FUNNELTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FUNNELTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FUNNELTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FUNNELTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FUNNELTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FUNNELTRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FUNNELTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"FUNNELTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FUNNELTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FUNNELTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FUNNELTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FUNNELTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FUNNELTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FUNNELTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SyncConfig governs the reconciliation window planner and the worker cadence.
type SyncConfig struct {
	FirstSyncDays         int           `envconfig:"FUNNELTRACK_SYNC_FIRST_SYNC_DAYS" default:"90"`
	IncrementalMarginDays int           `envconfig:"FUNNELTRACK_SYNC_INCREMENTAL_MARGIN_DAYS" default:"7"`
	ReportingTimezone     string        `envconfig:"FUNNELTRACK_SYNC_REPORTING_TIMEZONE" default:"America/Sao_Paulo"`
	WorkerInterval        time.Duration `envconfig:"FUNNELTRACK_SYNC_WORKER_INTERVAL" default:"6h"`
	SourceTimeout         time.Duration `envconfig:"FUNNELTRACK_SYNC_SOURCE_TIMEOUT" default:"5m"`
	MaxRetries            int           `envconfig:"FUNNELTRACK_SYNC_MAX_RETRIES" default:"3"`
	RetryBaseDelay        time.Duration `envconfig:"FUNNELTRACK_SYNC_RETRY_BASE_DELAY" default:"500ms"`
	RunMarkerTTL          time.Duration `envconfig:"FUNNELTRACK_SYNC_RUN_MARKER_TTL" default:"10m"`
}

// InsightsConfig governs the derived-metrics snapshot cache.
type InsightsConfig struct {
	CacheTTL         time.Duration `envconfig:"FUNNELTRACK_INSIGHTS_CACHE_TTL" default:"5m"`
	WriteDebounce    time.Duration `envconfig:"FUNNELTRACK_INSIGHTS_WRITE_DEBOUNCE" default:"500ms"`
	SnapshotMaxAge   time.Duration `envconfig:"FUNNELTRACK_INSIGHTS_SNAPSHOT_MAX_AGE" default:"168h"`
	DefaultRangeDays int           `envconfig:"FUNNELTRACK_INSIGHTS_DEFAULT_RANGE_DAYS" default:"30"`
}

type KiwifyConfig struct {
	BaseURL  string        `envconfig:"FUNNELTRACK_KIWIFY_BASE_URL" default:"https://public-api.kiwify.com"`
	PageSize int           `envconfig:"FUNNELTRACK_KIWIFY_PAGE_SIZE" default:"100"`
	Timeout  time.Duration `envconfig:"FUNNELTRACK_KIWIFY_TIMEOUT" default:"30s"`
}

type HotmartConfig struct {
	BaseURL  string        `envconfig:"FUNNELTRACK_HOTMART_BASE_URL" default:"https://developers.hotmart.com"`
	AuthURL  string        `envconfig:"FUNNELTRACK_HOTMART_AUTH_URL" default:"https://api-sec-vlc.hotmart.com"`
	PageSize int           `envconfig:"FUNNELTRACK_HOTMART_PAGE_SIZE" default:"100"`
	Timeout  time.Duration `envconfig:"FUNNELTRACK_HOTMART_TIMEOUT" default:"30s"`
}

type MetaAdsConfig struct {
	BaseURL    string        `envconfig:"FUNNELTRACK_META_BASE_URL" default:"https://graph.facebook.com"`
	APIVersion string        `envconfig:"FUNNELTRACK_META_API_VERSION" default:"v19.0"`
	PageSize   int           `envconfig:"FUNNELTRACK_META_PAGE_SIZE" default:"100"`
	Timeout    time.Duration `envconfig:"FUNNELTRACK_META_TIMEOUT" default:"60s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FUNNELTRACK_FEATURE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
